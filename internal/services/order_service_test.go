package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsite/internal/models"
)

type fakeProductRepo struct {
	products map[int]*models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: map[int]*models.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(p *models.Product) error { r.products[p.ID] = p; return nil }
func (r *fakeProductRepo) GetByID(id int) (*models.Product, error) {
	return r.products[id], nil
}
func (r *fakeProductRepo) Update(p *models.Product) error { return nil }
func (r *fakeProductRepo) Delete(id int) error            { delete(r.products, id); return nil }
func (r *fakeProductRepo) List(limit, offset int) ([]*models.Product, error) {
	return nil, nil
}
func (r *fakeProductRepo) SearchByTitle(query string, limit, offset int) ([]*models.Product, error) {
	return nil, nil
}
func (r *fakeProductRepo) DecrementStock(id, quantity int) error {
	p := r.products[id]
	if p == nil || p.Quantity < quantity {
		return fmt.Errorf("insufficient stock for product %d", id)
	}
	p.Quantity -= quantity
	return nil
}

type fakeCartRepo struct {
	cart        *models.Cart
	items       []*models.CartItem
	deactivated bool
}

func (r *fakeCartRepo) GetOrCreateForUser(userID int) (*models.Cart, error)    { return r.cart, nil }
func (r *fakeCartRepo) GetOrCreateForSession(key string) (*models.Cart, error) { return r.cart, nil }
func (r *fakeCartRepo) GetActiveForUser(userID int) (*models.Cart, error)      { return r.cart, nil }
func (r *fakeCartRepo) GetItems(cartID int) ([]*models.CartItem, error)        { return r.items, nil }
func (r *fakeCartRepo) UpdateItemQuantity(itemID, quantity int) error          { return nil }
func (r *fakeCartRepo) RemoveItem(itemID int) error                            { return nil }
func (r *fakeCartRepo) MergeSessionCartIntoUser(key string, userID int) error  { return nil }
func (r *fakeCartRepo) Deactivate(cartID int) error                            { r.deactivated = true; return nil }
func (r *fakeCartRepo) AddOrUpdateItem(cartID, productID, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{ID: len(r.items) + 1, CartID: cartID, ProductID: productID, Quantity: quantity}
	r.items = append(r.items, item)
	return item, nil
}

type fakeOrderRepo struct {
	nextID int
	orders map[int]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int]*models.Order{}}
}

func (r *fakeOrderRepo) CreateWithItems(order *models.Order) error {
	r.nextID++
	order.ID = r.nextID
	r.orders[order.ID] = order
	return nil
}
func (r *fakeOrderRepo) GetByID(id int) (*models.Order, error) { return r.orders[id], nil }
func (r *fakeOrderRepo) GetByIDAndUser(id, userID int) (*models.Order, error) {
	o := r.orders[id]
	if o == nil || o.UserID != userID {
		return nil, nil
	}
	return o, nil
}
func (r *fakeOrderRepo) GetItems(orderID int) ([]*models.OrderItem, error) {
	if o := r.orders[orderID]; o != nil {
		return o.Items, nil
	}
	return nil, nil
}
func (r *fakeOrderRepo) ListByUser(userID int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}
func (r *fakeOrderRepo) List(limit, offset int) ([]*models.Order, error) { return nil, nil }
func (r *fakeOrderRepo) UpdateStatus(id int, status string) error {
	if o := r.orders[id]; o != nil {
		o.Status = status
	}
	return nil
}
func (r *fakeOrderRepo) Delete(id int) error { delete(r.orders, id); return nil }

type recordingNotifier struct {
	orders []*models.Order
	err    error
}

func (n *recordingNotifier) NotifyNewOrder(order *models.Order) error {
	n.orders = append(n.orders, order)
	return n.err
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newCheckoutFixture() (*fakeOrderRepo, *fakeCartRepo, *fakeProductRepo) {
	book := &models.Product{ID: 1, Title: "Book", Price: price("19.99"), Quantity: 10}
	pen := &models.Product{ID: 2, Title: "Pen", Price: price("2.50"), Quantity: 5}
	carts := &fakeCartRepo{
		cart: &models.Cart{ID: 7, IsActive: true},
		items: []*models.CartItem{
			{ID: 1, CartID: 7, ProductID: 1, Quantity: 2, Product: book},
			{ID: 2, CartID: 7, ProductID: 2, Quantity: 3, Product: pen},
		},
	}
	return newFakeOrderRepo(), carts, newFakeProductRepo(book, pen)
}

func TestCheckout(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	notifier := &recordingNotifier{}
	svc := NewOrderService(orders, carts, products, notifier)

	order, err := svc.Checkout(42, "1 Main St", "card")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 42, order.UserID)
	// 2*19.99 + 3*2.50
	assert.True(t, order.TotalAmount.Equal(price("47.48")), "total = %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Book", order.Items[0].ProductTitle)
	assert.True(t, order.Items[0].Price.Equal(price("39.98")))

	assert.Equal(t, 8, products.products[1].Quantity)
	assert.Equal(t, 2, products.products[2].Quantity)
	assert.True(t, carts.deactivated)

	require.Len(t, notifier.orders, 1)
	assert.Equal(t, order.ID, notifier.orders[0].ID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	svc := NewOrderService(orders, carts, products, nil)

	carts.items = nil
	_, err := svc.Checkout(42, "1 Main St", "card")
	assert.ErrorIs(t, err, ErrEmptyCart)

	carts.cart = nil
	_, err = svc.Checkout(42, "1 Main St", "card")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	svc := NewOrderService(orders, carts, products, nil)

	products.products[2].Quantity = 1
	_, err := svc.Checkout(42, "1 Main St", "card")
	require.Error(t, err)
	assert.False(t, carts.deactivated)
	assert.Empty(t, orders.orders)
}

func TestCheckoutNotifierFailureIsNonFatal(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	notifier := &recordingNotifier{err: fmt.Errorf("telegram down")}
	svc := NewOrderService(orders, carts, products, notifier)

	order, err := svc.Checkout(42, "1 Main St", "card")
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestTrackOrderScopedToUser(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	svc := NewOrderService(orders, carts, products, nil)

	order, err := svc.Checkout(42, "1 Main St", "card")
	require.NoError(t, err)

	got, err := svc.TrackOrder(42, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.TrackOrder(99, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	orders, carts, products := newCheckoutFixture()
	svc := NewOrderService(orders, carts, products, nil)

	order, err := svc.Checkout(42, "1 Main St", "card")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	_, err = svc.UpdateStatus(order.ID, "teleported")
	assert.Error(t, err)

	_, err = svc.UpdateStatus(9999, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCartServiceTotals(t *testing.T) {
	_, carts, products := newCheckoutFixture()
	svc := NewCartService(carts, products)

	items, total, err := svc.GetItems(7)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, total.Equal(price("47.48")), "total = %s", total)
}

func TestCartServiceAddProduct(t *testing.T) {
	_, carts, products := newCheckoutFixture()
	svc := NewCartService(carts, products)
	cart := &models.Cart{ID: 7}

	item, err := svc.AddProduct(cart, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Book", item.Product.Title)

	_, err = svc.AddProduct(cart, 1, 0)
	assert.Error(t, err)

	_, err = svc.AddProduct(cart, 999, 1)
	assert.Error(t, err)

	// more than in stock
	_, err = svc.AddProduct(cart, 2, 6)
	assert.Error(t, err)
}

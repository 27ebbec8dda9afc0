package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"shopsite/internal/models"
	"shopsite/internal/repositories"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
)

type OrderService interface {
	Checkout(userID int, address, paymentMethod string) (*models.Order, error)
	GetOrderDetails(orderID int) (*models.Order, error)
	TrackOrder(userID, orderID int) (*models.Order, error)
	GetOrderHistory(userID int) ([]*models.Order, error)
	List(limit, offset int) ([]*models.Order, error)
	UpdateStatus(orderID int, status string) (*models.Order, error)
	Delete(orderID int) error
}

type orderService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	products repositories.ProductRepository
	notifier OrderNotifier // optional
}

func NewOrderService(
	orders repositories.OrderRepository,
	carts repositories.CartRepository,
	products repositories.ProductRepository,
	notifier OrderNotifier,
) OrderService {
	return &orderService{
		orders:   orders,
		carts:    carts,
		products: products,
		notifier: notifier,
	}
}

// Checkout turns the user's active cart into a pending order: line prices are
// copied at purchase time, stock is decremented, the cart is deactivated.
func (s *orderService) Checkout(userID int, address, paymentMethod string) (*models.Order, error) {
	cart, err := s.carts.GetActiveForUser(userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrEmptyCart
	}
	items, err := s.carts.GetItems(cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		TotalAmount:     decimal.Zero,
	}
	for _, item := range items {
		line := item.LineTotal()
		order.TotalAmount = order.TotalAmount.Add(line)
		order.Items = append(order.Items, &models.OrderItem{
			ProductID:    item.ProductID,
			ProductTitle: item.Product.Title,
			Quantity:     item.Quantity,
			Price:        line,
		})
	}

	for _, item := range items {
		if err := s.products.DecrementStock(item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}
	if err := s.orders.CreateWithItems(order); err != nil {
		return nil, err
	}
	if err := s.carts.Deactivate(cart.ID); err != nil {
		return nil, err
	}

	log.Printf("[order][checkout] order=%d user=%d total=%s", order.ID, userID, order.TotalAmount)
	if s.notifier != nil {
		if err := s.notifier.NotifyNewOrder(order); err != nil {
			log.Printf("[order][checkout] warning: notify failed for order=%d: %v", order.ID, err)
		}
	}
	return order, nil
}

func (s *orderService) GetOrderDetails(orderID int) (*models.Order, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	items, err := s.orders.GetItems(orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *orderService) TrackOrder(userID, orderID int) (*models.Order, error) {
	order, err := s.orders.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetOrderHistory(userID int) ([]*models.Order, error) {
	return s.orders.ListByUser(userID)
}

func (s *orderService) List(limit, offset int) ([]*models.Order, error) {
	return s.orders.List(limit, offset)
}

func (s *orderService) UpdateStatus(orderID int, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.orders.UpdateStatus(orderID, status); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

func (s *orderService) Delete(orderID int) error {
	return s.orders.Delete(orderID)
}

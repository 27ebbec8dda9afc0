package repositories

import (
	"database/sql"
	"fmt"

	"shopsite/internal/models"
)

type OrderRepository interface {
	CreateWithItems(order *models.Order) error
	GetByID(id int) (*models.Order, error)
	GetByIDAndUser(id, userID int) (*models.Order, error)
	GetItems(orderID int) ([]*models.OrderItem, error)
	ListByUser(userID int) ([]*models.Order, error)
	List(limit, offset int) ([]*models.Order, error)
	UpdateStatus(id int, status string) error
	Delete(id int) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// CreateWithItems writes the order and its lines in one transaction.
func (r *orderRepository) CreateWithItems(order *models.Order) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("create order begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO orders (user_id, status, shipping_address, payment_method, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_date
	`
	if err := tx.QueryRow(q,
		order.UserID, order.Status, order.ShippingAddress, order.PaymentMethod, order.TotalAmount,
	).Scan(&order.ID, &order.OrderDate); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	const iq = `
		INSERT INTO order_items (order_id, product_id, product_title, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for _, item := range order.Items {
		item.OrderID = order.ID
		if err := tx.QueryRow(iq,
			order.ID, item.ProductID, item.ProductTitle, item.Quantity, item.Price,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return tx.Commit()
}

const orderColumns = `id, user_id, status, shipping_address, payment_method, total_amount, order_date`

func (r *orderRepository) GetByID(id int) (*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.DB.QueryRow(q, id))
}

func (r *orderRepository) GetByIDAndUser(id, userID int) (*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	return scanOrder(r.DB.QueryRow(q, id, userID))
}

func (r *orderRepository) GetItems(orderID int) ([]*models.OrderItem, error) {
	const q = `
		SELECT id, order_id, product_id, product_title, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := r.DB.Query(q, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductTitle, &item.Quantity, &item.Price,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *orderRepository) ListByUser(userID int) ([]*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY order_date DESC`
	return r.queryOrders(q, userID)
}

func (r *orderRepository) List(limit, offset int) ([]*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders ORDER BY order_date DESC LIMIT $1 OFFSET $2`
	return r.queryOrders(q, limit, offset)
}

func (r *orderRepository) UpdateStatus(id int, status string) error {
	if _, err := r.DB.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *orderRepository) Delete(id int) error {
	if _, err := r.DB.Exec(`DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.ShippingAddress,
		&o.PaymentMethod, &o.TotalAmount, &o.OrderDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

func (r *orderRepository) queryOrders(q string, args ...any) ([]*models.Order, error) {
	rows, err := r.DB.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.ShippingAddress,
			&o.PaymentMethod, &o.TotalAmount, &o.OrderDate,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

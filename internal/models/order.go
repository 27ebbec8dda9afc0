package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              int             `json:"id"`
	UserID          int             `json:"user_id"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	OrderDate       time.Time       `json:"order_date"`
	Items           []*OrderItem    `json:"items,omitempty"`
}

type OrderItem struct {
	ID           int             `json:"id"`
	OrderID      int             `json:"order_id"`
	ProductID    int             `json:"product_id"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"` // line total at purchase time
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required"`
}

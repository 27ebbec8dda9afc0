package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs either to a user or to an anonymous session key, never both.
type Cart struct {
	ID         int       `json:"id"`
	UserID     *int      `json:"user_id,omitempty"`
	SessionKey *string   `json:"session_key,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type CartItem struct {
	ID        int      `json:"id"`
	CartID    int      `json:"cart_id"`
	ProductID int      `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

func (i *CartItem) LineTotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"shopsite/internal/models"
	"shopsite/internal/repositories"
)

type CartService interface {
	GetCartForUser(userID int) (*models.Cart, error)
	GetCartForSession(sessionKey string) (*models.Cart, error)
	AddProduct(cart *models.Cart, productID, quantity int) (*models.CartItem, error)
	GetItems(cartID int) ([]*models.CartItem, decimal.Decimal, error)
	UpdateItemQuantity(itemID, quantity int) error
	RemoveItem(itemID int) error
	MergeGuestCart(sessionKey string, userID int) error
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) GetCartForUser(userID int) (*models.Cart, error) {
	return s.carts.GetOrCreateForUser(userID)
}

func (s *cartService) GetCartForSession(sessionKey string) (*models.Cart, error) {
	return s.carts.GetOrCreateForSession(sessionKey)
}

func (s *cartService) AddProduct(cart *models.Cart, productID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	product, err := s.products.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %d not found", productID)
	}
	if product.Quantity < quantity {
		return nil, fmt.Errorf("only %d of %q in stock", product.Quantity, product.Title)
	}
	item, err := s.carts.AddOrUpdateItem(cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	item.Product = product
	return item, nil
}

// GetItems returns the cart lines with their products and the cart total.
func (s *cartService) GetItems(cartID int) ([]*models.CartItem, decimal.Decimal, error) {
	items, err := s.carts.GetItems(cartID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return items, total, nil
}

func (s *cartService) UpdateItemQuantity(itemID, quantity int) error {
	if quantity <= 0 {
		return s.carts.RemoveItem(itemID)
	}
	return s.carts.UpdateItemQuantity(itemID, quantity)
}

func (s *cartService) RemoveItem(itemID int) error {
	return s.carts.RemoveItem(itemID)
}

func (s *cartService) MergeGuestCart(sessionKey string, userID int) error {
	return s.carts.MergeSessionCartIntoUser(sessionKey, userID)
}

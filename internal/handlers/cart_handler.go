package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopsite/internal/models"
	"shopsite/internal/services"
)

type CartHandler struct {
	carts services.CartService
}

func NewCartHandler(carts services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// cart resolves the active cart: by user when logged in, else by the guest
// session cookie.
func (h *CartHandler) cart(c *gin.Context) (*models.Cart, error) {
	if userID, ok := currentUserID(c); ok {
		return h.carts.GetCartForUser(userID)
	}
	return h.carts.GetCartForSession(guestSessionKey(c))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req struct {
		ProductID int `json:"product_id" binding:"required"`
		Quantity  int `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.cart(c)
	if err != nil {
		log.Printf("[cart][add] cart lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cart unavailable"})
		return
	}
	item, err := h.carts.AddProduct(cart, req.ProductID, req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item added to cart", "item": item})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cart(c)
	if err != nil {
		log.Printf("[cart][get] cart lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cart unavailable"})
		return
	}
	items, total, err := h.carts.GetItems(cart.ID)
	if err != nil {
		log.Printf("[cart][get] items failed for cart=%d: %v", cart.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cart unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart, "items": items, "total": total})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	var req struct {
		Quantity int `json:"quantity" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.carts.UpdateItemQuantity(id, req.Quantity); err != nil {
		log.Printf("[cart][update] item=%d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}
	if err := h.carts.RemoveItem(id); err != nil {
		log.Printf("[cart][remove] item=%d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

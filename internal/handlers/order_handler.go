package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopsite/internal/models"
	"shopsite/internal/pdf"
	"shopsite/internal/services"
)

type OrderHandler struct {
	orders   services.OrderService
	users    services.UserService
	invoices pdf.Generator
}

func NewOrderHandler(orders services.OrderService, users services.UserService, invoices pdf.Generator) *OrderHandler {
	return &OrderHandler{orders: orders, users: users, invoices: invoices}
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Checkout(userID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
			return
		}
		log.Printf("[order][checkout] failed for userID=%d: %v", userID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "order": order})
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.GetOrderDetails(id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		log.Printf("[order][get] id=%d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	orders, err := h.orders.GetOrderHistory(userID)
	if err != nil {
		log.Printf("[order][history] userID=%d failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) Track(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.TrackOrder(userID, id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "status": order.Status})
}

func (h *OrderHandler) List(c *gin.Context) {
	limit, offset := limitOffset(c)
	orders, err := h.orders.List(limit, offset)
	if err != nil {
		log.Printf("[order][list] failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orders.UpdateStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// Invoice renders the order's PDF invoice and streams it back.
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orders.GetOrderDetails(id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your order"})
		return
	}

	user, err := h.users.GetUserByID(order.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	data := pdf.InvoiceData{
		OrderID:   order.ID,
		Customer:  user.Username,
		Address:   order.ShippingAddress,
		Total:     order.TotalAmount,
		OrderDate: order.OrderDate,
	}
	for _, item := range order.Items {
		data.Lines = append(data.Lines, pdf.InvoiceLine{
			Title:    item.ProductTitle,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	path, err := h.invoices.GenerateInvoice(data)
	if err != nil {
		log.Printf("[order][invoice] order=%d failed: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invoice generation failed"})
		return
	}
	c.FileAttachment(path, "invoice.pdf")
}

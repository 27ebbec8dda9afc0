package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopsite/internal/models"
	"shopsite/internal/services"
)

type AuthHandler struct {
	users services.UserService
	auth  services.AuthService
	carts services.CartService
}

func NewAuthHandler(users services.UserService, auth services.AuthService, carts services.CartService) *AuthHandler {
	return &AuthHandler{users: users, auth: auth, carts: carts}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) || errors.Is(err, services.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth][register] failed for %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		log.Printf("[auth][login] error for %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.auth.GenerateAccessToken(user.ID)
	if err != nil {
		log.Printf("[auth][login] sign token failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	// A guest cart built before login follows the user in.
	if key, cerr := c.Cookie(guestCartCookie); cerr == nil && key != "" {
		if err := h.carts.MergeGuestCart(key, user.ID); err != nil {
			log.Printf("[auth][login] warning: cart merge failed for userID=%d: %v", user.ID, err)
		}
	}

	log.Printf("[auth][login] success userID=%d", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         user,
		"access_token": token,
	})
}

package routes

import (
	"github.com/gin-gonic/gin"

	"shopsite/internal/handlers"
	"shopsite/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	resetHandler *handlers.PasswordResetHandler,
	productHandler *handlers.ProductHandler,
	cartHandler *handlers.CartHandler,
	orderHandler *handlers.OrderHandler,
) *gin.Engine {

	// ---- public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	reset := r.Group("/password-reset")
	{
		reset.POST("/request", resetHandler.Request)
		reset.POST("/resend", resetHandler.Resend)
		reset.POST("/verify", resetHandler.Verify)
		reset.POST("/confirm", resetHandler.Reset)
	}

	// catalog browsing and the guest cart need no login
	r.GET("/products", productHandler.List)
	r.GET("/products/:id", productHandler.GetByID)

	cart := r.Group("/cart", middleware.OptionalAuth(jwtSecret))
	{
		cart.GET("/", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:id", cartHandler.UpdateItem)
		cart.DELETE("/items/:id", cartHandler.RemoveItem)
	}

	// ---- protected
	auth := r.Group("/", middleware.AuthMiddleware(jwtSecret))
	{
		auth.POST("/products", productHandler.Create)
		auth.PUT("/products/:id", productHandler.Update)
		auth.DELETE("/products/:id", productHandler.Delete)

		orders := auth.Group("/orders")
		{
			orders.POST("/checkout", orderHandler.Checkout)
			orders.GET("/", orderHandler.List)
			orders.GET("/history", orderHandler.History)
			orders.GET("/:id", orderHandler.GetByID)
			orders.GET("/:id/track", orderHandler.Track)
			orders.GET("/:id/invoice", orderHandler.Invoice)
			orders.POST("/:id/status", orderHandler.UpdateStatus)
		}
	}

	return r
}

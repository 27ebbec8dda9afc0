package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"shopsite/internal/config"
	"shopsite/internal/handlers"
	"shopsite/internal/pdf"
	"shopsite/internal/repositories"
	"shopsite/internal/routes"
	"shopsite/internal/services"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Redis (ephemeral session state) ===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("failed to close redis: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	otpRepo := repositories.NewPasswordOTPRepository(db)
	productRepo := repositories.NewProductRepository(db)
	cartRepo := repositories.NewCartRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	throttleStore := repositories.NewThrottleStore(rdb)

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	userService := services.NewUserService(userRepo, emailService, authService)
	otpService := services.NewOTPService(userRepo, otpRepo, emailService, authService, cfg.Auth.ResetSecret, cfg.Auth.SiteURL)
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	notifier := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
	orderService := services.NewOrderService(orderRepo, cartRepo, productRepo, notifier)

	invoiceGen := pdf.NewInvoiceGenerator(cfg.Files.RootDir)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService, cartService)
	resetHandler := handlers.NewPasswordResetHandler(otpService, throttleStore)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService, userService, invoiceGen)

	// === Gin ===
	router := gin.Default()
	router.Use(corsMiddleware())

	routes.SetupRoutes(
		router,
		[]byte(cfg.Auth.JWTSecret),
		authHandler,
		resetHandler,
		productHandler,
		cartHandler,
		orderHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server failed: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

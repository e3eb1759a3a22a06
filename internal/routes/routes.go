package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/handlers"
	"github.com/example/tesfa/internal/middleware"
	"github.com/example/tesfa/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	gateway := services.NewChapaService(cfg.ChapaBaseURL, cfg.ChapaSecretKey, cfg.FrontendURL)

	authService := services.NewAuthService(db)
	paymentService := services.NewPaymentService(db, gateway, telegramService, rdb)
	userService := services.NewUserService(db, rdb)

	authHandler := handlers.NewAuthHandler(cfg, authService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	userHandler := handlers.NewUserHandler(cfg, userService)
	adminHandler := handlers.NewAdminHandler(userService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	app.Static("/uploads", cfg.UploadDir)

	// Auth routes
	auth := app.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Profile routes
	users := app.Group("/users", middleware.Auth(cfg))
	users.Get("/me", userHandler.Me)
	users.Put("/me", userHandler.UpdateMe)

	// Donation routes. The literal admin/all path is registered before the
	// :tx_ref wildcard so it is not captured as a reference.
	payments := app.Group("/payments", middleware.Auth(cfg))
	payments.Post("/initialize", paymentHandler.Initialize)
	payments.Get("/verify/:tx_ref", paymentHandler.Verify)
	payments.Get("/history", paymentHandler.History)
	payments.Get("/admin/all", paymentHandler.AdminAll)
	payments.Get("/:tx_ref", paymentHandler.GetByTxRef)
	payments.Put("/:tx_ref/status", paymentHandler.UpdateStatus)

	// Administrative routes
	admin := app.Group("/admin", middleware.Auth(cfg), middleware.RequireAdmin())
	admin.Get("/dashboard/stats", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Put("/users/:id", adminHandler.UpdateUser)
	admin.Delete("/users/:id", adminHandler.DeleteUser)
}

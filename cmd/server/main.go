package main

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/database"
	"github.com/example/tesfa/internal/routes"
	"github.com/example/tesfa/internal/services"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database handle")
	}

	rdb := connectRedis(cfg)

	app := fiber.New(fiber.Config{
		AppName:      "Tesfa Donations",
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: apperr.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	routes.Register(app, db, rdb, cfg)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logrus.WithError(err).Error("failed to create upload directory")
	}

	// Schema setup and the admin bootstrap run behind the listener so the
	// server accepts requests even while the database is still coming up.
	go func() {
		if err := database.Init(db, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Error("database initialization failed")
			return
		}
		if err := services.NewAuthService(db).CreateInitialAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logrus.WithError(err).Error("admin bootstrap failed")
		}
	}()

	logrus.WithField("port", cfg.AppPort).Info("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logrus.WithError(err).Fatal("fiber.Listen error")
	}
}

// connectRedis returns a working client or nil. The cache is optional and
// every consumer tolerates a nil client.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unavailable, caching disabled")
		return nil
	}
	return rdb
}

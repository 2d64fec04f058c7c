package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gozba-na-klik/checkout-gateway/config"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/controller"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/repository"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/service"
	"github.com/gozba-na-klik/checkout-gateway/internal/db"
	"github.com/gozba-na-klik/checkout-gateway/internal/middleware"
	"github.com/gozba-na-klik/checkout-gateway/internal/router"
	"github.com/gozba-na-klik/checkout-gateway/internal/scheduler"
	"github.com/gozba-na-klik/checkout-gateway/internal/websocket"
	"github.com/gozba-na-klik/checkout-gateway/pkg/gozba"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
	"github.com/gozba-na-klik/checkout-gateway/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Gozba checkout gateway", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the last-active-cart hint; the gateway runs without it.
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, last-active-cart hints disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redis.Close()
	}

	// Upstream core API client
	apiClient, err := gozba.NewClient(gozba.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to configure core API client", err)
	}

	// Order tracking hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	cartRepo := repository.NewCartRepository(db.GetDB())

	// Initialize services
	cartService := service.NewCartService(cartRepo, service.NewRedisActiveCartRecorder())
	checkoutService := service.NewCheckoutService(apiClient, cartService, hub, cfg.Checkout.PreviewDebounce)

	// Initialize controllers
	cartController := controller.NewCartController(cartService)
	checkoutController := controller.NewCheckoutController(checkoutService)
	trackingController := controller.NewTrackingController(hub)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Abandoned-cart cleanup
	janitor := scheduler.NewCartJanitor(cartRepo, cfg.Checkout.CartTTL)
	if err := janitor.Start(); err != nil {
		logger.Fatal("Failed to start cart janitor", err)
	}
	defer janitor.Stop()

	// Setup router
	r := router.NewRouter(
		cartController,
		checkoutController,
		trackingController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}

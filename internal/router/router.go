package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gozba-na-klik/checkout-gateway/config"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/controller"
	"github.com/gozba-na-klik/checkout-gateway/internal/middleware"
)

type Router struct {
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	trackingController *controller.TrackingController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	trackingController *controller.TrackingController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:     cartController,
		checkoutController: checkoutController,
		trackingController: trackingController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Gozba checkout gateway is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("/active", r.cartController.ActiveCarts)

			cart.GET("/:restaurantId", r.cartController.GetCart)
			cart.POST("/:restaurantId", r.cartController.AddLine)
			cart.DELETE("/:restaurantId", r.cartController.Clear)
			cart.GET("/:restaurantId/count", r.cartController.ItemCount)

			cart.PATCH("/:restaurantId/lines/:lineId", r.cartController.UpdateQuantity)
			cart.DELETE("/:restaurantId/lines/:lineId", r.cartController.RemoveLine)
			cart.DELETE("/:restaurantId/positions/:index", r.cartController.RemoveLineAt)
		}

		checkout := v1.Group("/checkout")
		checkout.Use(r.authMiddleware.Authenticate())
		{
			checkout.POST("/:restaurantId", r.checkoutController.Begin)
			checkout.GET("/:restaurantId", r.checkoutController.State)
			checkout.DELETE("/:restaurantId", r.checkoutController.Close)

			checkout.PUT("/:restaurantId/address", r.checkoutController.SetAddress)
			checkout.PUT("/:restaurantId/note", r.checkoutController.SetNote)
			checkout.PATCH("/:restaurantId/lines/:lineId", r.checkoutController.UpdateLine)

			checkout.POST("/:restaurantId/allergens/accept", r.checkoutController.AcceptAllergens)
			checkout.POST("/:restaurantId/allergens/decline", r.checkoutController.DeclineAllergens)
			checkout.POST("/:restaurantId/submit", r.checkoutController.Submit)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("/:orderId/track", r.trackingController.Track)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

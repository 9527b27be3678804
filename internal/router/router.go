// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/daviddelgadop/greencart-backend/internal/config"
	"github.com/daviddelgadop/greencart-backend/internal/handlers"
	"github.com/daviddelgadop/greencart-backend/internal/middleware"
	"github.com/daviddelgadop/greencart-backend/internal/services"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	impactService := services.NewImpactService(db)
	inventoryService := services.NewInventoryService(db)
	rewardService := services.NewRewardService(db)
	authService := services.NewAuthService(db, cfg)
	checkoutService := services.NewCheckoutService(db, inventoryService, impactService, rewardService)
	orderService := services.NewOrderService(db, impactService)
	attributionService := services.NewAttributionService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(checkoutService, orderService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	reportingHandler := handlers.NewReportingHandler(attributionService)
	adminHandler := handlers.NewAdminHandler(orderService, impactService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", middleware.CheckoutRateLimit(), orderHandler.Checkout)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/rating", orderHandler.RateOrder)
			orders.POST("/:id/items/:item_id/rating", orderHandler.RateOrderItem)
		}

		// Reward routes
		rewards := v1.Group("/rewards")
		{
			rewards.GET("/tiers", middleware.OptionalAuth(), rewardHandler.GetTiers)

			protected := rewards.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("", rewardHandler.GetRewards)
				protected.GET("/progress", rewardHandler.GetProgress)
			}
		}

		// Reporting routes
		reporting := v1.Group("/reporting")
		reporting.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			reporting.GET("/attribution", reportingHandler.GetAttribution)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			adminOrders := admin.Group("/orders")
			{
				adminOrders.POST("/:id/recompute", adminHandler.RecomputeOrder)
				adminOrders.POST("/recompute-zero-impact", adminHandler.RecomputeZeroImpactOrders)
			}

			adminBundles := admin.Group("/bundles")
			{
				adminBundles.POST("/:id/recompute-impact", adminHandler.RecomputeBundleImpact)
			}
		}
	}

	return r
}

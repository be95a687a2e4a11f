package api

import (
	"fact-check-api/internal/config"
	"fact-check-api/internal/metrics"
	"fact-check-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles the wired endpoint handlers.
type Handlers struct {
	FactCheck *FactCheckHandler
	Tokens    *TokensHandler
	Payment   *PaymentHandler
}

// SetupRoutes sets up all routes.
func SetupRoutes(r *gin.Engine, cfg *config.Config, h *Handlers, redisClient *redis.Client) {
	api := r.Group("/api/v1")
	api.Use(middleware.DeviceID())
	{
		api.POST("/check", middleware.RateLimit(redisClient, cfg.RateLimitPerMinute), h.FactCheck.Check)
		api.GET("/trial-status", h.FactCheck.TrialStatus)
		api.GET("/tokens/balance", h.Tokens.Balance)

		api.POST("/checkout/create", h.Payment.CreateCheckout)
		api.POST("/webhook/creem", h.Payment.Webhook)
		api.GET("/products", h.Payment.Products)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": cfg.ToolName,
		})
	})

	// Prometheus exposition
	r.GET("/metrics", metrics.Handler())
}

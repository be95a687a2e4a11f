package main

import (
	"context"
	"log"
	"time"

	"fact-check-api/internal/api"
	"fact-check-api/internal/config"
	"fact-check-api/internal/database"
	"fact-check-api/internal/services"
	"fact-check-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	// Initialize logging
	logging.InitLogging(cfg.LogLevel, cfg.LogFile)

	// Initialize database
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	// Redis is optional; without it the rate limiter is a pass-through.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to parse REDIS_URL: ", err)
		}
		redisClient = redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Warnf("Redis unreachable, rate limiting disabled: %v", err)
			redisClient = nil
		}
		cancel()
	}

	// Wire services
	repos := database.NewRepos(db)
	tokenService := services.NewTokenService(repos)
	llmService := services.NewLLMService(cfg)
	paymentService := services.NewPaymentService(cfg, tokenService, repos.Transactions)

	handlers := &api.Handlers{
		FactCheck: api.NewFactCheckHandler(tokenService, llmService, cfg.ToolName),
		Tokens:    api.NewTokensHandler(tokenService),
		Payment:   api.NewPaymentHandler(paymentService, cfg.ToolName),
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, cfg, handlers, redisClient)

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration (optional, enables per-device rate limiting)
	RedisURL string

	// Logging configuration
	LogLevel string
	LogFile  string

	// LLM proxy configuration
	LLMProxyURL string
	LLMProxyKey string
	LLMModel    string

	// Creem payment configuration
	CreemAPIKey        string
	CreemProductIDs    string // JSON map of public product id -> Creem product id
	CreemWebhookSecret string

	// Metrics labeling
	ToolName string

	// Rate limiting (requests per device per window, 0 disables)
	RateLimitPerMinute int
}

// Load reads configuration from the environment. A .env file is honored
// when present. The returned Config is passed explicitly into component
// constructors; nothing reads it as global state.
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Mode:               getEnv("GIN_MODE", "debug"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		LLMProxyURL:        getEnv("LLM_PROXY_URL", ""),
		LLMProxyKey:        getEnv("LLM_PROXY_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", "claude-sonnet-4-20250514"),
		CreemAPIKey:        getEnv("CREEM_API_KEY", ""),
		CreemProductIDs:    getEnv("CREEM_PRODUCT_IDS", ""),
		CreemWebhookSecret: getEnv("CREEM_WEBHOOK_SECRET", ""),
		ToolName:           getEnv("TOOL_NAME", "fact-checker"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
	}

	if cfg.LLMProxyURL == "" {
		return nil, fmt.Errorf("LLM_PROXY_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

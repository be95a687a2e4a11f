package middleware

import (
	"fmt"
	"net/http"
	"time"

	"fact-check-api/internal/response"
	"fact-check-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit enforces a fixed-window per-device request limit backed by
// Redis. With no client or a zero limit it is a pass-through. Redis
// outages fail open: quota enforcement, not rate limiting, is the billing
// source of truth.
func RateLimit(client *redis.Client, perMinute int) gin.HandlerFunc {
	if client == nil || perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		deviceID := GetDeviceID(c)
		key := fmt.Sprintf("rate_limit:%s:%s", deviceID, time.Now().UTC().Format("200601021504"))

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logging.Warnf("Rate limit check failed, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(c.Request.Context(), key, time.Minute).Err(); err != nil {
				logging.Warnf("Rate limit expiry set failed for %s: %v", key, err)
			}
		}

		if count > int64(perMinute) {
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			c.Abort()
			return
		}

		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
)

// AnonymousDevice pools every caller that sends no X-Device-Id header into
// one shared quota bucket. That shared bucket is intentional: the header is
// opaque and unauthenticated, and headerless traffic gets a single
// collective free trial rather than an unlimited one.
const AnonymousDevice = "anonymous"

const deviceIDKey = "device_id"

// DeviceID resolves the caller device id from the X-Device-Id header and
// stores it in the request context.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader("X-Device-Id")
		if deviceID == "" {
			deviceID = AnonymousDevice
		}
		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

// GetDeviceID returns the device id resolved by the DeviceID middleware.
func GetDeviceID(c *gin.Context) string {
	if v, ok := c.Get(deviceIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return AnonymousDevice
}

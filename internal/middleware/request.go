package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header the request ID is read from and echoed to.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a unique ID, reusing one supplied by the
// caller, and exposes it on the response and the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs method, path, status and latency for every request,
// tagged with its request ID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		id, _ := c.Get("requestID")
		log.Printf("[%v] %s %s -> %d (%s)",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// GetRequestIDFromContext returns the request ID set by RequestID.
func GetRequestIDFromContext(c *gin.Context) (string, bool) {
	id, exists := c.Get("requestID")
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trendora/platform/logger"
)

// RequestIDHeader carries the request id between the gateway and services.
const RequestIDHeader = "X-Request-Id"

// RequestID injects a unique request id into every request/response and
// exposes it under logger.FieldRequestID so downstream logs correlate.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(logger.FieldRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the request id injected by RequestID, or "" when the
// middleware did not run.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(logger.FieldRequestID)
}

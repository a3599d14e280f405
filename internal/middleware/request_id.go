package middleware

import (
	"github.com/gin-gonic/gin"

	"chat-sync/internal/observability"
	"chat-sync/internal/telemetry"
)

const RequestIDKey = "request_id"

// RequestID assigns every request an id, echoes it back and attaches it to the request context
// so audit events raised by actions carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		c.Set(RequestIDKey, id)
		c.Header(observability.RequestIDHeader, id)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

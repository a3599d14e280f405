package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		ctx := telemetry.WithRequestID(c.Request.Context(), requestIDFromContext(c))
		emitter.Emit(ctx, "info", "debug.audit_test", "", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

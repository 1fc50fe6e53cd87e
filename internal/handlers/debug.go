package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"study-chat/internal/telemetry"
)

type connectionCounter interface {
	ConnectionCount() int
}

// RegisterHealthRoutes wires GET /healthz.
func RegisterHealthRoutes(router gin.IRoutes, conns connectionCounter) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": conns.ConnectionCount()})
	})
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(c, emitter, telemetry.AuditEvent{Level: "debug", Action: "audit_test", Text: "audit test"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

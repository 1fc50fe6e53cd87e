package handlers

import (
	"github.com/gin-gonic/gin"

	"study-chat/internal/apperr"
	"study-chat/internal/middleware"
	"study-chat/internal/observability"
	"study-chat/internal/telemetry"
)

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, ev telemetry.AuditEvent) {
	if audit == nil {
		return
	}
	ev.RequestID = observability.RequestID(c)
	ev.UserID = c.GetString(middleware.UserIDKey)
	audit.Emit(c.Request.Context(), ev)
}

// respondError writes err as {"error","code"} with the matching status.
func respondError(c *gin.Context, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Public(err), "code": apperr.CodeOf(err)})
}

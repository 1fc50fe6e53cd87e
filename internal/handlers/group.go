package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"study-chat/internal/apperr"
	"study-chat/internal/middleware"
	"study-chat/internal/models"
	"study-chat/internal/telemetry"
	"study-chat/internal/ws"
)

type groupService interface {
	Members(ctx context.Context, userID, groupID string) ([]models.MemberView, error)
	Leave(ctx context.Context, userID, groupID string) error
}

type adminChecker interface {
	RequireAdmin(ctx context.Context, groupID, userID string) (models.GroupMembership, error)
}

type roomNotifier interface {
	NotifyGroup(ctx context.Context, n ws.GroupNotification) error
}

// GroupHandler manages membership endpoints and room announcements.
type GroupHandler struct {
	groups   groupService
	admins   adminChecker
	notifier roomNotifier
	audit    *telemetry.AuditEmitter
}

func NewGroupHandler(groups groupService, admins adminChecker, notifier roomNotifier, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groups: groups, admins: admins, notifier: notifier, audit: audit}
}

// ListMembers handles GET /groups/:group_id/members.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.groups.Members(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("group_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// LeaveGroup handles DELETE /groups/:group_id/members/me.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	if err := h.groups.Leave(c.Request.Context(), c.GetString(middleware.UserIDKey), groupID); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, telemetry.AuditEvent{Action: telemetry.ActionGroupLeft, Text: "left group", GroupID: groupID})
	c.Status(http.StatusNoContent)
}

// PostNotification handles POST /groups/:group_id/notifications. Admins only.
func (h *GroupHandler) PostNotification(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg("invalid request payload"))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" && req.Body == "" {
		respondError(c, apperr.InvalidArg("title or body is required"))
		return
	}

	groupID := c.Param("group_id")
	identity := middleware.Identity(c)
	if _, err := h.admins.RequireAdmin(c.Request.Context(), groupID, identity.UserID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.notifier.NotifyGroup(c.Request.Context(), ws.GroupNotification{
		GroupID: groupID,
		Title:   req.Title,
		Body:    req.Body,
		From:    identity.Summary(),
	}); err != nil {
		respondError(c, apperr.Internal("broadcast announcement", err))
		return
	}

	emitAudit(c, h.audit, telemetry.AuditEvent{Action: telemetry.ActionAnnouncement, Text: req.Title, GroupID: groupID})
	c.Status(http.StatusAccepted)
}

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"study-chat/internal/apperr"
	"study-chat/internal/chat"
	"study-chat/internal/middleware"
	"study-chat/internal/models"
	"study-chat/internal/telemetry"
)

type messageService interface {
	Send(ctx context.Context, sender models.Identity, req chat.SendRequest) (models.MessageView, error)
	Edit(ctx context.Context, userID, messageID, content string) (models.MessageView, error)
	Delete(ctx context.Context, userID, messageID string) (string, error)
	History(ctx context.Context, userID, groupID string, limit, offset int) (chat.HistoryPage, error)
}

// MessageHandler is the REST mirror of the socket message operations.
type MessageHandler struct {
	messages messageService
	audit    *telemetry.AuditEmitter
}

func NewMessageHandler(messages messageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, audit: audit}
}

// GetGroupMessages handles GET /groups/:group_id/messages.
func (h *MessageHandler) GetGroupMessages(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.messages.History(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("group_id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PostGroupMessage handles POST /groups/:group_id/messages. Nothing is pushed to sockets.
func (h *MessageHandler) PostGroupMessage(c *gin.Context) {
	var req struct {
		Content   string  `json:"content"`
		ReplyToID *string `json:"replyToId"`
		Type      string  `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg("invalid request payload"))
		return
	}

	view, err := h.messages.Send(c.Request.Context(), middleware.Identity(c), chat.SendRequest{
		GroupID:   c.Param("group_id"),
		Content:   req.Content,
		ReplyToID: req.ReplyToID,
		Type:      req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, telemetry.AuditEvent{Action: telemetry.ActionMessageSent, Text: "message sent over rest", GroupID: view.GroupID, MessageID: view.ID})
	c.JSON(http.StatusCreated, view)
}

// EditMessage handles PUT /messages/:message_id.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArg("invalid request payload"))
		return
	}

	view, err := h.messages.Edit(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("message_id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, telemetry.AuditEvent{Action: telemetry.ActionMessageEdited, Text: "message edited", GroupID: view.GroupID, MessageID: view.ID})
	c.JSON(http.StatusOK, view)
}

// DeleteMessage handles DELETE /messages/:message_id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	groupID, err := h.messages.Delete(c.Request.Context(), c.GetString(middleware.UserIDKey), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, telemetry.AuditEvent{Action: telemetry.ActionMessageDeleted, Text: "message deleted", GroupID: groupID, MessageID: messageID})
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArg("invalid " + key)
	}
	return n, nil
}

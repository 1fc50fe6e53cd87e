package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

// MessageOptions bounds message content and history pages.
type MessageOptions struct {
	MaxLength    int
	DefaultLimit int
	MaxLimit     int
}

// SendRequest is a message submitted over the socket or the REST fallback.
type SendRequest struct {
	GroupID   string
	Content   string
	ReplyToID *string
	Type      string
}

// HistoryPage is one window of a group's history in ascending creation order.
type HistoryPage struct {
	Messages []models.MessageView `json:"messages"`
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// MessagePipeline validates, persists and hydrates chat messages.
type MessagePipeline struct {
	authority *MembershipAuthority
	messages  repositories.GroupMessageRepository
	opts      MessageOptions
}

func NewMessagePipeline(authority *MembershipAuthority, messages repositories.GroupMessageRepository, opts MessageOptions) *MessagePipeline {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 4000
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	return &MessagePipeline{authority: authority, messages: messages, opts: opts}
}

// Send persists a message and returns it hydrated with the author's role at send time.
// Nothing is persisted unless the sender is a member.
func (p *MessagePipeline) Send(ctx context.Context, sender models.Identity, req SendRequest) (models.MessageView, error) {
	typ, ok := models.ParseMessageType(req.Type)
	if !ok {
		return models.MessageView{}, apperr.InvalidArg("unsupported message type")
	}
	content, err := p.validContent(req.Content)
	if err != nil {
		return models.MessageView{}, err
	}

	membership, err := p.authority.Require(ctx, req.GroupID, sender.UserID)
	if err != nil {
		return models.MessageView{}, err
	}

	var replyTo *models.ReplySummary
	replyToID := req.ReplyToID
	if replyToID != nil && *replyToID == "" {
		replyToID = nil
	}
	if replyToID != nil {
		target, err := p.messages.GetGroupMessage(ctx, *replyToID)
		if err != nil && !errors.Is(err, repositories.ErrMessageNotFound) {
			return models.MessageView{}, apperr.Internal("load reply target", err)
		}
		if err != nil || target.GroupID != req.GroupID {
			return models.MessageView{}, apperr.NotFound("reply target not found")
		}
		replyTo = target.Summary()
	}

	msg, err := p.messages.CreateGroupMessage(ctx, models.NewMessage{
		GroupID:     req.GroupID,
		UserID:      sender.UserID,
		Content:     content,
		ReplyToID:   replyToID,
		MessageType: typ,
	})
	if err != nil {
		return models.MessageView{}, apperr.Internal("persist message", err)
	}

	return models.MessageView{
		ID:      msg.ID,
		GroupID: msg.GroupID,
		Content: msg.Content,
		Type:    msg.MessageType,
		Author: models.AuthorView{
			ID:     sender.UserID,
			Name:   sender.Name,
			Avatar: sender.Avatar,
			Role:   models.RoleLabel(membership.Role),
		},
		ReplyTo:   replyTo,
		IsEdited:  msg.IsEdited,
		EditedAt:  msg.EditedAt,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// Edit replaces the content of a message. Only its author may edit it.
func (p *MessagePipeline) Edit(ctx context.Context, userID, messageID, content string) (models.MessageView, error) {
	rec, err := p.authoredMessage(ctx, userID, messageID, "edit")
	if err != nil {
		return models.MessageView{}, err
	}
	content, err = p.validContent(content)
	if err != nil {
		return models.MessageView{}, err
	}

	updated, err := p.messages.UpdateGroupMessage(ctx, messageID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.MessageView{}, apperr.NotFound("message not found")
		}
		return models.MessageView{}, apperr.Internal("update message", err)
	}
	rec.ChatMessage = updated
	return rec.View(), nil
}

// Delete removes a message. Only its author may delete it. Returns the message's group.
func (p *MessagePipeline) Delete(ctx context.Context, userID, messageID string) (string, error) {
	rec, err := p.authoredMessage(ctx, userID, messageID, "delete")
	if err != nil {
		return "", err
	}
	if err := p.messages.DeleteGroupMessage(ctx, messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return "", apperr.NotFound("message not found")
		}
		return "", apperr.Internal("delete message", err)
	}
	return rec.GroupID, nil
}

// History returns the newest window of messages, reordered oldest first.
func (p *MessagePipeline) History(ctx context.Context, userID, groupID string, limit, offset int) (HistoryPage, error) {
	if _, err := p.authority.Require(ctx, groupID, userID); err != nil {
		return HistoryPage{}, err
	}
	if limit <= 0 {
		limit = p.opts.DefaultLimit
	}
	if limit > p.opts.MaxLimit {
		limit = p.opts.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := p.messages.ListGroupMessages(ctx, groupID, limit, offset)
	if err != nil {
		return HistoryPage{}, apperr.Internal("list messages", err)
	}
	total, err := p.messages.CountGroupMessages(ctx, groupID)
	if err != nil {
		return HistoryPage{}, apperr.Internal("count messages", err)
	}

	views := make([]models.MessageView, len(recs))
	for i, rec := range recs {
		views[len(recs)-1-i] = rec.View()
	}
	return HistoryPage{Messages: views, Total: total, Limit: limit, Offset: offset}, nil
}

func (p *MessagePipeline) authoredMessage(ctx context.Context, userID, messageID, action string) (models.MessageRecord, error) {
	rec, err := p.messages.GetGroupMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.MessageRecord{}, apperr.NotFound("message not found")
		}
		return models.MessageRecord{}, apperr.Internal("load message", err)
	}
	if _, err := p.authority.Require(ctx, rec.GroupID, userID); err != nil {
		return models.MessageRecord{}, err
	}
	if rec.UserID != userID {
		return models.MessageRecord{}, apperr.Forbidden(fmt.Sprintf("only the author can %s this message", action))
	}
	return rec, nil
}

func (p *MessagePipeline) validContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", apperr.InvalidArg("content is required")
	}
	if utf8.RuneCountInString(content) > p.opts.MaxLength {
		return "", apperr.InvalidArg(fmt.Sprintf("content exceeds %d characters", p.opts.MaxLength))
	}
	return content, nil
}

package models

import (
	"strings"
	"time"
)

// MessageType tags the payload kind of a chat message.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeFile   MessageType = "FILE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// ParseMessageType normalizes a client supplied type. Empty means TEXT.
func ParseMessageType(raw string) (MessageType, bool) {
	if strings.TrimSpace(raw) == "" {
		return MessageTypeText, true
	}
	switch t := MessageType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return t, true
	}
	return "", false
}

// ChatMessage represents a message sent in a group chat.
type ChatMessage struct {
	ID          string      `db:"id" json:"id"`
	GroupID     string      `db:"group_id" json:"group_id"`
	UserID      string      `db:"user_id" json:"user_id"`
	Content     string      `db:"content" json:"content"`
	ReplyToID   *string     `db:"reply_to_id" json:"reply_to_id,omitempty"`
	MessageType MessageType `db:"message_type" json:"message_type"`
	IsEdited    bool        `db:"is_edited" json:"is_edited"`
	EditedAt    *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// NewMessage carries the fields a caller supplies when creating a message.
type NewMessage struct {
	GroupID     string
	UserID      string
	Content     string
	ReplyToID   *string
	MessageType MessageType
}

// MessageRecord is a message joined with its author profile and reply summary.
type MessageRecord struct {
	ChatMessage
	AuthorName      string  `db:"author_name"`
	AuthorAvatar    string  `db:"author_avatar"`
	ReplyContent    *string `db:"reply_content"`
	ReplyAuthorID   *string `db:"reply_author_id"`
	ReplyAuthorName *string `db:"reply_author_name"`
}

// AuthorView is the author block of an outbound message.
type AuthorView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ReplySummary describes the message being replied to.
type ReplySummary struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

// MessageView is the fully hydrated message delivered to clients.
type MessageView struct {
	ID        string        `json:"id"`
	GroupID   string        `json:"groupId"`
	Content   string        `json:"content"`
	Type      MessageType   `json:"type"`
	Author    AuthorView    `json:"author"`
	ReplyTo   *ReplySummary `json:"replyTo,omitempty"`
	IsEdited  bool          `json:"isEdited"`
	EditedAt  *time.Time    `json:"editedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// View hydrates a stored record. Role is left empty; it is only known at send time.
func (r MessageRecord) View() MessageView {
	v := MessageView{
		ID:        r.ID,
		GroupID:   r.GroupID,
		Content:   r.Content,
		Type:      r.MessageType,
		Author:    AuthorView{ID: r.UserID, Name: r.AuthorName, Avatar: r.AuthorAvatar},
		IsEdited:  r.IsEdited,
		EditedAt:  r.EditedAt,
		CreatedAt: r.CreatedAt,
	}
	if r.ReplyToID != nil && r.ReplyContent != nil {
		v.ReplyTo = &ReplySummary{ID: *r.ReplyToID, Content: *r.ReplyContent}
		if r.ReplyAuthorID != nil {
			v.ReplyTo.AuthorID = *r.ReplyAuthorID
		}
		if r.ReplyAuthorName != nil {
			v.ReplyTo.AuthorName = *r.ReplyAuthorName
		}
	}
	return v
}

// Summary builds the reply block other messages show when they reply to r.
func (r MessageRecord) Summary() *ReplySummary {
	return &ReplySummary{ID: r.ID, Content: r.Content, AuthorID: r.UserID, AuthorName: r.AuthorName}
}

// RoleLabel renders a membership role the way clients display it.
func RoleLabel(role Role) string {
	return strings.ToLower(string(role))
}

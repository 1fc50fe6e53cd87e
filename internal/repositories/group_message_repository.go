package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"study-chat/internal/models"
)

// GroupMessageRepository defines interactions for group chat messages.
type GroupMessageRepository interface {
	CreateGroupMessage(ctx context.Context, msg models.NewMessage) (models.ChatMessage, error)
	GetGroupMessage(ctx context.Context, messageID string) (models.MessageRecord, error)
	ListGroupMessages(ctx context.Context, groupID string, limit, offset int) ([]models.MessageRecord, error)
	CountGroupMessages(ctx context.Context, groupID string) (int, error)
	UpdateGroupMessage(ctx context.Context, messageID string, content string) (models.ChatMessage, error)
	DeleteGroupMessage(ctx context.Context, messageID string) error
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

const messageColumns = `id, group_id, user_id, content, reply_to_id, message_type, is_edited, edited_at, created_at`

const messageRecordSelect = `SELECT m.id, m.group_id, m.user_id, m.content, m.reply_to_id, m.message_type, m.is_edited, m.edited_at, m.created_at,
        COALESCE(u.name, '') AS author_name, COALESCE(u.avatar, '') AS author_avatar,
        r.content AS reply_content, r.user_id AS reply_author_id, ru.name AS reply_author_name
        FROM chat_messages m
        LEFT JOIN users u ON u.id = m.user_id
        LEFT JOIN chat_messages r ON r.id = m.reply_to_id
        LEFT JOIN users ru ON ru.id = r.user_id`

// CreateGroupMessage persists a group message.
func (r *GroupMessageRepo) CreateGroupMessage(ctx context.Context, in models.NewMessage) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (id, group_id, user_id, content, reply_to_id, message_type)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		uuid.NewString(), in.GroupID, in.UserID, in.Content, in.ReplyToID, in.MessageType).StructScan(&msg)
	return msg, err
}

// GetGroupMessage fetches a single message with author and reply details.
func (r *GroupMessageRepo) GetGroupMessage(ctx context.Context, messageID string) (models.MessageRecord, error) {
	var rec models.MessageRecord
	err := r.db.GetContext(ctx, &rec, messageRecordSelect+` WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageRecord{}, ErrMessageNotFound
	}
	return rec, err
}

// ListGroupMessages returns one page of messages, newest first.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID string, limit, offset int) ([]models.MessageRecord, error) {
	recs := []models.MessageRecord{}
	err := r.db.SelectContext(ctx, &recs, messageRecordSelect+` WHERE m.group_id=$1 ORDER BY m.created_at DESC, m.id DESC LIMIT $2 OFFSET $3`, groupID, limit, offset)
	return recs, err
}

// CountGroupMessages returns the number of stored messages in the group.
func (r *GroupMessageRepo) CountGroupMessages(ctx context.Context, groupID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_messages WHERE group_id=$1`, groupID)
	return count, err
}

// UpdateGroupMessage replaces the content and marks the message edited.
func (r *GroupMessageRepo) UpdateGroupMessage(ctx context.Context, messageID string, content string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `UPDATE chat_messages SET content=$2, is_edited=TRUE, edited_at=NOW() WHERE id=$1 RETURNING `+messageColumns,
		messageID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteGroupMessage removes a message. Reactions cascade; replies keep a NULL reference.
func (r *GroupMessageRepo) DeleteGroupMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"study-chat/internal/models"
)

// ReactionRepository defines interactions for message reactions.
type ReactionRepository interface {
	FindReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error)
	CreateReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error)
	DeleteReaction(ctx context.Context, reactionID string) error
	ListReactions(ctx context.Context, messageID string) ([]models.ReactionRecord, error)
}

// ReactionRepo is a sqlx-backed implementation.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

func (r *ReactionRepo) FindReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.GetContext(ctx, &reaction, `SELECT id, message_id, user_id, emoji, created_at FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageReaction{}, ErrReactionNotFound
	}
	return reaction, err
}

// CreateReaction inserts the triple. A concurrent duplicate yields ErrDuplicate.
func (r *ReactionRepo) CreateReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.QueryRowxContext(ctx, `INSERT INTO message_reactions (id, message_id, user_id, emoji) VALUES ($1, $2, $3, $4) RETURNING id, message_id, user_id, emoji, created_at`,
		uuid.NewString(), messageID, userID, emoji).StructScan(&reaction)
	if err != nil {
		return models.MessageReaction{}, mapWriteErr(err)
	}
	return reaction, nil
}

func (r *ReactionRepo) DeleteReaction(ctx context.Context, reactionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE id=$1`, reactionID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrReactionNotFound
	}
	return nil
}

// ListReactions returns every reaction on the message in creation order.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageID string) ([]models.ReactionRecord, error) {
	recs := []models.ReactionRecord{}
	err := r.db.SelectContext(ctx, &recs, `SELECT mr.id, mr.message_id, mr.user_id, mr.emoji, mr.created_at, COALESCE(u.name, '') AS user_name
        FROM message_reactions mr
        LEFT JOIN users u ON u.id = mr.user_id
        WHERE mr.message_id=$1
        ORDER BY mr.created_at ASC, mr.id ASC`, messageID)
	return recs, err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"study-chat/internal/models"
)

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	GetGroup(ctx context.Context, groupID string) (models.Group, error)
	FindMembership(ctx context.Context, groupID string, userID string) (models.GroupMembership, error)
	ListMembers(ctx context.Context, groupID string) ([]models.MemberView, error)
	DeleteMembership(ctx context.Context, groupID string, userID string) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, owner_id, is_private, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// FindMembership returns the membership row for (group, user).
func (r *GroupRepo) FindMembership(ctx context.Context, groupID string, userID string) (models.GroupMembership, error) {
	var m models.GroupMembership
	err := r.db.GetContext(ctx, &m, `SELECT group_id, user_id, role, joined_at FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupMembership{}, ErrMembershipNotFound
	}
	return m, err
}

// ListMembers returns admins first, then everyone else by join time.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]models.MemberView, error) {
	members := []models.MemberView{}
	err := r.db.SelectContext(ctx, &members, `SELECT gm.user_id, COALESCE(u.name, '') AS name, COALESCE(u.avatar, '') AS avatar, gm.role, gm.joined_at
        FROM group_members gm
        LEFT JOIN users u ON u.id = gm.user_id
        WHERE gm.group_id=$1
        ORDER BY CASE WHEN gm.role = 'ADMIN' THEN 0 ELSE 1 END, gm.joined_at ASC`, groupID)
	return members, err
}

// DeleteMembership removes the caller's membership row.
func (r *GroupRepo) DeleteMembership(ctx context.Context, groupID string, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

package chat

import (
	"context"
	"errors"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

// MembershipAuthority answers whether a user belongs to a group and with which role.
type MembershipAuthority struct {
	groups repositories.GroupRepository
}

func NewMembershipAuthority(groups repositories.GroupRepository) *MembershipAuthority {
	return &MembershipAuthority{groups: groups}
}

// Require returns the membership of userID in groupID or a PERMISSION_DENIED error.
func (a *MembershipAuthority) Require(ctx context.Context, groupID, userID string) (models.GroupMembership, error) {
	if groupID == "" {
		return models.GroupMembership{}, apperr.InvalidArg("groupId is required")
	}
	m, err := a.groups.FindMembership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return models.GroupMembership{}, apperr.Forbidden("not a member of this group")
		}
		return models.GroupMembership{}, apperr.Internal("membership check", err)
	}
	return m, nil
}

// RequireAdmin is Require plus an ADMIN role check.
func (a *MembershipAuthority) RequireAdmin(ctx context.Context, groupID, userID string) (models.GroupMembership, error) {
	m, err := a.Require(ctx, groupID, userID)
	if err != nil {
		return m, err
	}
	if !m.IsAdmin() {
		return models.GroupMembership{}, apperr.Forbidden("group admin role required")
	}
	return m, nil
}

package chat

import (
	"context"
	"errors"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

// GroupService serves membership listings and self-service leave.
type GroupService struct {
	authority *MembershipAuthority
	groups    repositories.GroupRepository
}

func NewGroupService(authority *MembershipAuthority, groups repositories.GroupRepository) *GroupService {
	return &GroupService{authority: authority, groups: groups}
}

// Members lists the group's members, admins first then by join time.
func (s *GroupService) Members(ctx context.Context, userID, groupID string) ([]models.MemberView, error) {
	if _, err := s.authority.Require(ctx, groupID, userID); err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	return members, nil
}

// Leave deletes the caller's membership. The owner must transfer ownership first.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("load group", err)
	}
	if group.OwnerID == userID {
		return apperr.Conflict("group owner cannot leave without transferring ownership")
	}
	if err := s.groups.DeleteMembership(ctx, groupID, userID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return apperr.Forbidden("not a member of this group")
		}
		return apperr.Internal("delete membership", err)
	}
	return nil
}

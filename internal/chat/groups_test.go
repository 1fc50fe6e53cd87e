package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"study-chat/internal/apperr"
	"study-chat/internal/mocks"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

func TestRequireAdmin(t *testing.T) {
	groups := new(mocks.GroupRepositoryMock)
	authority := NewMembershipAuthority(groups)
	groups.On("FindMembership", mock.Anything, "g1", "u-admin").Return(models.GroupMembership{Role: models.RoleAdmin}, nil)
	groups.On("FindMembership", mock.Anything, "g1", "u-member").Return(models.GroupMembership{Role: models.RoleMember}, nil)

	_, err := authority.RequireAdmin(context.Background(), "g1", "u-admin")
	require.NoError(t, err)

	_, err = authority.RequireAdmin(context.Background(), "g1", "u-member")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
}

func TestRequireEmptyGroup(t *testing.T) {
	authority := NewMembershipAuthority(new(mocks.GroupRepositoryMock))
	_, err := authority.Require(context.Background(), "", "u1")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestLeaveOwnerConflict(t *testing.T) {
	groups := new(mocks.GroupRepositoryMock)
	svc := NewGroupService(NewMembershipAuthority(groups), groups)
	groups.On("GetGroup", mock.Anything, "g1").Return(models.Group{ID: "g1", OwnerID: "u-owner"}, nil)

	err := svc.Leave(context.Background(), "u-owner", "g1")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	groups.AssertNotCalled(t, "DeleteMembership", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaveDeletesMembership(t *testing.T) {
	groups := new(mocks.GroupRepositoryMock)
	svc := NewGroupService(NewMembershipAuthority(groups), groups)
	groups.On("GetGroup", mock.Anything, "g1").Return(models.Group{ID: "g1", OwnerID: "u-owner"}, nil)
	groups.On("DeleteMembership", mock.Anything, "g1", "u-bob").Return(nil).Once()
	groups.On("DeleteMembership", mock.Anything, "g1", "u-eve").Return(repositories.ErrMembershipNotFound).Once()

	require.NoError(t, svc.Leave(context.Background(), "u-bob", "g1"))
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(svc.Leave(context.Background(), "u-eve", "g1")))
	groups.AssertExpectations(t)
}

func TestMembersRequiresMembership(t *testing.T) {
	groups := new(mocks.GroupRepositoryMock)
	svc := NewGroupService(NewMembershipAuthority(groups), groups)
	groups.On("FindMembership", mock.Anything, "g1", "u-eve").Return(nil, repositories.ErrMembershipNotFound)

	_, err := svc.Members(context.Background(), "u-eve", "g1")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	groups.AssertNotCalled(t, "ListMembers", mock.Anything, mock.Anything)
}

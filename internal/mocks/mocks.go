package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) FindMembership(ctx context.Context, groupID string, userID string) (models.GroupMembership, error) {
	args := m.Called(ctx, groupID, userID)
	var membership models.GroupMembership
	if val := args.Get(0); val != nil {
		membership = val.(models.GroupMembership)
	}
	return membership, args.Error(1)
}

func (m *GroupRepositoryMock) ListMembers(ctx context.Context, groupID string) ([]models.MemberView, error) {
	args := m.Called(ctx, groupID)
	var members []models.MemberView
	if val := args.Get(0); val != nil {
		members = val.([]models.MemberView)
	}
	return members, args.Error(1)
}

func (m *GroupRepositoryMock) DeleteMembership(ctx context.Context, groupID string, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) CreateGroupMessage(ctx context.Context, msg models.NewMessage) (models.ChatMessage, error) {
	args := m.Called(ctx, msg)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *GroupMessageRepositoryMock) GetGroupMessage(ctx context.Context, messageID string) (models.MessageRecord, error) {
	args := m.Called(ctx, messageID)
	var rec models.MessageRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.MessageRecord)
	}
	return rec, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListGroupMessages(ctx context.Context, groupID string, limit, offset int) ([]models.MessageRecord, error) {
	args := m.Called(ctx, groupID, limit, offset)
	var recs []models.MessageRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.MessageRecord)
	}
	return recs, args.Error(1)
}

func (m *GroupMessageRepositoryMock) CountGroupMessages(ctx context.Context, groupID string) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

func (m *GroupMessageRepositoryMock) UpdateGroupMessage(ctx context.Context, messageID string, content string) (models.ChatMessage, error) {
	args := m.Called(ctx, messageID, content)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *GroupMessageRepositoryMock) DeleteGroupMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) FindReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var r models.MessageReaction
	if val := args.Get(0); val != nil {
		r = val.(models.MessageReaction)
	}
	return r, args.Error(1)
}

func (m *ReactionRepositoryMock) CreateReaction(ctx context.Context, messageID, userID, emoji string) (models.MessageReaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	var r models.MessageReaction
	if val := args.Get(0); val != nil {
		r = val.(models.MessageReaction)
	}
	return r, args.Error(1)
}

func (m *ReactionRepositoryMock) DeleteReaction(ctx context.Context, reactionID string) error {
	args := m.Called(ctx, reactionID)
	return args.Error(0)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageID string) ([]models.ReactionRecord, error) {
	args := m.Called(ctx, messageID)
	var recs []models.ReactionRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.ReactionRecord)
	}
	return recs, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

// AuthenticatorMock satisfies auth.Authenticator.
type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	args := m.Called(ctx, token)
	var id models.Identity
	if val := args.Get(0); val != nil {
		id = val.(models.Identity)
	}
	return id, args.Error(1)
}

var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)
var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)

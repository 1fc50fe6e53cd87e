package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"study-chat/internal/apperr"
	"study-chat/internal/mocks"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

type reactionFixture struct {
	pipeline  *ReactionPipeline
	groups    *mocks.GroupRepositoryMock
	messages  *mocks.GroupMessageRepositoryMock
	reactions *mocks.ReactionRepositoryMock
}

func newReactionFixture() reactionFixture {
	f := reactionFixture{
		groups:    new(mocks.GroupRepositoryMock),
		messages:  new(mocks.GroupMessageRepositoryMock),
		reactions: new(mocks.ReactionRepositoryMock),
	}
	f.pipeline = NewReactionPipeline(NewMembershipAuthority(f.groups), f.messages, f.reactions)
	f.messages.On("GetGroupMessage", mock.Anything, "m1").Return(models.MessageRecord{ChatMessage: models.ChatMessage{ID: "m1", GroupID: "g1"}}, nil)
	return f
}

func reaction(id, userID, name, emoji string) models.ReactionRecord {
	return models.ReactionRecord{MessageReaction: models.MessageReaction{ID: id, MessageID: "m1", UserID: userID, Emoji: emoji}, UserName: name}
}

func TestToggleAddsThenRemoves(t *testing.T) {
	f := newReactionFixture()
	f.groups.On("FindMembership", mock.Anything, "g1", "u-bob").Return(models.GroupMembership{}, nil)

	f.reactions.On("FindReaction", mock.Anything, "m1", "u-bob", "👍").Return(nil, repositories.ErrReactionNotFound).Once()
	f.reactions.On("CreateReaction", mock.Anything, "m1", "u-bob", "👍").Return(models.MessageReaction{ID: "r1"}, nil).Once()
	f.reactions.On("ListReactions", mock.Anything, "m1").Return([]models.ReactionRecord{reaction("r1", "u-bob", "Bob", "👍")}, nil).Once()

	update, err := f.pipeline.Toggle(context.Background(), "u-bob", "m1", "👍")
	require.NoError(t, err)
	assert.True(t, update.Added)
	assert.Equal(t, "g1", update.GroupID)
	require.Len(t, update.Reactions, 1)
	assert.Equal(t, models.ReactionGroup{Emoji: "👍", Count: 1, Users: []models.ReactionUser{{ID: "u-bob", Name: "Bob"}}}, update.Reactions[0])

	f.reactions.On("FindReaction", mock.Anything, "m1", "u-bob", "👍").Return(models.MessageReaction{ID: "r1"}, nil).Once()
	f.reactions.On("DeleteReaction", mock.Anything, "r1").Return(nil).Once()
	f.reactions.On("ListReactions", mock.Anything, "m1").Return([]models.ReactionRecord{}, nil).Once()

	update, err = f.pipeline.Toggle(context.Background(), "u-bob", "m1", "👍")
	require.NoError(t, err)
	assert.False(t, update.Added)
	assert.NotNil(t, update.Reactions)
	assert.Empty(t, update.Reactions)
	f.reactions.AssertExpectations(t)
}

func TestToggleAggregatesAcrossUsers(t *testing.T) {
	f := newReactionFixture()
	f.groups.On("FindMembership", mock.Anything, "g1", "u-carol").Return(models.GroupMembership{}, nil)
	f.reactions.On("FindReaction", mock.Anything, "m1", "u-carol", "👍").Return(nil, repositories.ErrReactionNotFound).Once()
	f.reactions.On("CreateReaction", mock.Anything, "m1", "u-carol", "👍").Return(models.MessageReaction{ID: "r3"}, nil).Once()
	f.reactions.On("ListReactions", mock.Anything, "m1").Return([]models.ReactionRecord{
		reaction("r1", "u-bob", "Bob", "👍"),
		reaction("r2", "u-bob", "Bob", "🎉"),
		reaction("r3", "u-carol", "Carol", "👍"),
	}, nil).Once()

	update, err := f.pipeline.Toggle(context.Background(), "u-carol", "m1", "👍")
	require.NoError(t, err)
	require.Len(t, update.Reactions, 2)
	assert.Equal(t, "👍", update.Reactions[0].Emoji)
	assert.Equal(t, 2, update.Reactions[0].Count)
	assert.Equal(t, "🎉", update.Reactions[1].Emoji)
}

func TestToggleRequiresMembership(t *testing.T) {
	f := newReactionFixture()
	f.groups.On("FindMembership", mock.Anything, "g1", "u-eve").Return(nil, repositories.ErrMembershipNotFound)

	_, err := f.pipeline.Toggle(context.Background(), "u-eve", "m1", "👍")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	f.reactions.AssertNotCalled(t, "CreateReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleUnknownMessage(t *testing.T) {
	f := newReactionFixture()
	f.messages.On("GetGroupMessage", mock.Anything, "ghost").Return(nil, repositories.ErrMessageNotFound)

	_, err := f.pipeline.Toggle(context.Background(), "u-bob", "ghost", "👍")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestToggleValidatesEmoji(t *testing.T) {
	f := newReactionFixture()
	for _, emoji := range []string{"", "  ", strings.Repeat("x", 65)} {
		_, err := f.pipeline.Toggle(context.Background(), "u-bob", "m1", emoji)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	}
}

func TestToggleDuplicateCreateIsConflict(t *testing.T) {
	f := newReactionFixture()
	f.groups.On("FindMembership", mock.Anything, "g1", "u-bob").Return(models.GroupMembership{}, nil)
	f.reactions.On("FindReaction", mock.Anything, "m1", "u-bob", "👍").Return(nil, repositories.ErrReactionNotFound).Once()
	f.reactions.On("CreateReaction", mock.Anything, "m1", "u-bob", "👍").Return(nil, repositories.ErrDuplicate).Once()

	_, err := f.pipeline.Toggle(context.Background(), "u-bob", "m1", "👍")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"study-chat/internal/apperr"
	"study-chat/internal/mocks"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

var alice = models.Identity{UserID: "u-alice", Name: "Alice", Avatar: "a.png"}

func newMessagePipeline() (*MessagePipeline, *mocks.GroupRepositoryMock, *mocks.GroupMessageRepositoryMock) {
	groups := new(mocks.GroupRepositoryMock)
	messages := new(mocks.GroupMessageRepositoryMock)
	p := NewMessagePipeline(NewMembershipAuthority(groups), messages, MessageOptions{MaxLength: 10, DefaultLimit: 2, MaxLimit: 3})
	return p, groups, messages
}

func TestSendPersistsAndHydratesRole(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{GroupID: "g1", UserID: "u-alice", Role: models.RoleAdmin}, nil).Once()
	messages.On("CreateGroupMessage", mock.Anything, models.NewMessage{GroupID: "g1", UserID: "u-alice", Content: "hi", MessageType: models.MessageTypeText}).
		Return(models.ChatMessage{ID: "m1", GroupID: "g1", UserID: "u-alice", Content: "hi", MessageType: models.MessageTypeText, CreatedAt: created}, nil).Once()

	view, err := p.Send(context.Background(), alice, SendRequest{GroupID: "g1", Content: "  hi  "})
	require.NoError(t, err)
	assert.Equal(t, "m1", view.ID)
	assert.Equal(t, "admin", view.Author.Role)
	assert.Equal(t, "Alice", view.Author.Name)
	assert.Nil(t, view.ReplyTo)
	assert.Equal(t, created, view.CreatedAt)
	groups.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestSendNonMemberPersistsNothing(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(nil, repositories.ErrMembershipNotFound).Once()

	_, err := p.Send(context.Background(), alice, SendRequest{GroupID: "g1", Content: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	messages.AssertNotCalled(t, "CreateGroupMessage", mock.Anything, mock.Anything)
}

func TestSendRejectsInvalidContent(t *testing.T) {
	p, _, messages := newMessagePipeline()

	cases := map[string]SendRequest{
		"blank":    {GroupID: "g1", Content: "   "},
		"too long": {GroupID: "g1", Content: strings.Repeat("é", 11)},
		"bad type": {GroupID: "g1", Content: "hi", Type: "video"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Send(context.Background(), alice, req)
			assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
	messages.AssertNotCalled(t, "CreateGroupMessage", mock.Anything, mock.Anything)
}

func TestSendReplyMustBelongToSameGroup(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	replyTo := "m0"

	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{Role: models.RoleMember}, nil)
	messages.On("GetGroupMessage", mock.Anything, "m0").Return(models.MessageRecord{ChatMessage: models.ChatMessage{ID: "m0", GroupID: "g2"}}, nil).Once()

	_, err := p.Send(context.Background(), alice, SendRequest{GroupID: "g1", Content: "yo", ReplyToID: &replyTo})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	messages.AssertNotCalled(t, "CreateGroupMessage", mock.Anything, mock.Anything)
}

func TestSendReplyCarriesSummary(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	replyTo := "m0"

	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{Role: models.RoleMember}, nil)
	messages.On("GetGroupMessage", mock.Anything, "m0").
		Return(models.MessageRecord{ChatMessage: models.ChatMessage{ID: "m0", GroupID: "g1", UserID: "u-bob", Content: "question"}, AuthorName: "Bob"}, nil).Once()
	messages.On("CreateGroupMessage", mock.Anything, mock.MatchedBy(func(m models.NewMessage) bool {
		return m.ReplyToID != nil && *m.ReplyToID == "m0"
	})).Return(models.ChatMessage{ID: "m1", GroupID: "g1", UserID: "u-alice", Content: "answer", ReplyToID: &replyTo}, nil).Once()

	view, err := p.Send(context.Background(), alice, SendRequest{GroupID: "g1", Content: "answer", ReplyToID: &replyTo})
	require.NoError(t, err)
	require.NotNil(t, view.ReplyTo)
	assert.Equal(t, "u-bob", view.ReplyTo.AuthorID)
	assert.Equal(t, "Bob", view.ReplyTo.AuthorName)
	assert.Equal(t, "member", view.Author.Role)
}

func TestSendStoreFailureIsInternal(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{Role: models.RoleMember}, nil)
	messages.On("CreateGroupMessage", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := p.Send(context.Background(), alice, SendRequest{GroupID: "g1", Content: "hi"})
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.Equal(t, "internal error", apperr.Public(err))
}

func TestHistoryReturnsAscendingWindow(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{Role: models.RoleMember}, nil)
	messages.On("ListGroupMessages", mock.Anything, "g1", 3, 0).Return([]models.MessageRecord{
		{ChatMessage: models.ChatMessage{ID: "m3"}},
		{ChatMessage: models.ChatMessage{ID: "m2"}},
		{ChatMessage: models.ChatMessage{ID: "m1"}},
	}, nil).Once()
	messages.On("CountGroupMessages", mock.Anything, "g1").Return(7, nil).Once()

	page, err := p.History(context.Background(), "u-alice", "g1", 50, -4)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "m1", page.Messages[0].ID)
	assert.Equal(t, "m3", page.Messages[2].ID)
}

func TestHistoryDefaultLimit(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{}, nil)
	messages.On("ListGroupMessages", mock.Anything, "g1", 2, 4).Return([]models.MessageRecord{}, nil).Once()
	messages.On("CountGroupMessages", mock.Anything, "g1").Return(4, nil).Once()

	page, err := p.History(context.Background(), "u-alice", "g1", 0, 4)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.NotNil(t, page.Messages)
	messages.AssertExpectations(t)
}

func TestEditOnlyByAuthor(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	messages.On("GetGroupMessage", mock.Anything, "m1").Return(models.MessageRecord{ChatMessage: models.ChatMessage{ID: "m1", GroupID: "g1", UserID: "u-bob"}}, nil)
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{}, nil)

	_, err := p.Edit(context.Background(), "u-alice", "m1", "changed")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	_, err = p.Delete(context.Background(), "u-alice", "m1")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	messages.AssertNotCalled(t, "UpdateGroupMessage", mock.Anything, mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "DeleteGroupMessage", mock.Anything, mock.Anything)
}

func TestEditMarksEdited(t *testing.T) {
	p, groups, messages := newMessagePipeline()
	now := time.Now()
	messages.On("GetGroupMessage", mock.Anything, "m1").
		Return(models.MessageRecord{ChatMessage: models.ChatMessage{ID: "m1", GroupID: "g1", UserID: "u-alice", Content: "old"}, AuthorName: "Alice"}, nil)
	groups.On("FindMembership", mock.Anything, "g1", "u-alice").Return(models.GroupMembership{}, nil)
	messages.On("UpdateGroupMessage", mock.Anything, "m1", "new").
		Return(models.ChatMessage{ID: "m1", GroupID: "g1", UserID: "u-alice", Content: "new", IsEdited: true, EditedAt: &now}, nil).Once()

	view, err := p.Edit(context.Background(), "u-alice", "m1", " new ")
	require.NoError(t, err)
	assert.True(t, view.IsEdited)
	assert.Equal(t, "new", view.Content)
	assert.Equal(t, "Alice", view.Author.Name)
}

func TestDeleteMissingMessage(t *testing.T) {
	p, _, messages := newMessagePipeline()
	messages.On("GetGroupMessage", mock.Anything, "nope").Return(nil, repositories.ErrMessageNotFound)

	_, err := p.Delete(context.Background(), "u-alice", "nope")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

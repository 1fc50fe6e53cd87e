package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"study-chat/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "study-chat", "test", zap.NewNop())

	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.EventType == "audit_log" &&
			env.Service == "study-chat" &&
			env.UserID != nil && *env.UserID == "u1" &&
			env.Payload.Action == ActionMessageSent &&
			env.Payload.Level == "info" &&
			env.Payload.GroupID == "g1"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), AuditEvent{Action: ActionMessageSent, UserID: "u1", GroupID: "g1", Text: "message sent"})
	pub.AssertExpectations(t)
}

func TestEmitOmitsEmptyUser(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "study-chat", "test", zap.NewNop())

	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.UserID == nil
	})).Return(errors.New("channel closed")).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), AuditEvent{Action: ActionConnect})
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), AuditEvent{Action: ActionConnect})
	})
}

package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"study-chat/internal/observability"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Audit actions emitted by the gateway and the REST mirror.
const (
	ActionConnect         = "ws_connect"
	ActionDisconnect      = "ws_disconnect"
	ActionMessageSent     = "message_sent"
	ActionMessageEdited   = "message_edited"
	ActionMessageDeleted  = "message_deleted"
	ActionReactionToggled = "reaction_toggled"
	ActionGroupLeft       = "group_left"
	ActionAnnouncement    = "group_announcement"
)

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	log         *zap.Logger
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level     string `json:"level"`
	Action    string `json:"action"`
	Text      string `json:"text"`
	GroupID   string `json:"group_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	ConnID    string `json:"conn_id,omitempty"`
}

// AuditEvent is what callers hand to Emit.
type AuditEvent struct {
	Level     string
	Action    string
	Text      string
	RequestID string
	UserID    string
	GroupID   string
	MessageID string
	ConnID    string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, log *zap.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		log:         log.Named("audit"),
	}
}

// Emit publishes an audit envelope. Failures are logged and counted, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, ev AuditEvent) {
	if e == nil || e.publisher == nil {
		return
	}
	if ev.Level == "" {
		ev.Level = "info"
	}

	var userID *string
	if ev.UserID != "" {
		userID = &ev.UserID
	}

	e.log.Debug("audit emit",
		zap.String("action", ev.Action),
		zap.String("request_id", ev.RequestID),
		zap.String("user_id", ev.UserID),
	)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     ev.RequestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:     ev.Level,
			Action:    ev.Action,
			Text:      ev.Text,
			GroupID:   ev.GroupID,
			MessageID: ev.MessageID,
			ConnID:    ev.ConnID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		observability.IncAMQPPublishError()
		e.log.Warn("audit publish failed", zap.String("action", ev.Action), zap.Error(err))
	}
}

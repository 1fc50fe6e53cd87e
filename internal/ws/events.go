package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
)

// Inbound event names.
const (
	EventJoinGroup   = "join_group"
	EventLeaveGroup  = "leave_group"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventAddReaction = "add_reaction"
)

// Outbound event names.
const (
	EventJoinedGroup       = "joined_group"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventNewMessage        = "new_message"
	EventUserTyping        = "user_typing"
	EventReactionUpdated   = "message_reaction_updated"
	EventNotification      = "notification"
	EventGroupNotification = "group_notification"
	EventError             = "error"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is one of the client events below. The set is closed.
type Inbound interface {
	inboundName() string
}

type JoinGroup struct {
	GroupID string `json:"groupId"`
}

type LeaveGroup struct {
	GroupID string `json:"groupId"`
}

type SendMessage struct {
	GroupID   string  `json:"groupId"`
	Content   string  `json:"content"`
	ReplyToID *string `json:"replyToId,omitempty"`
	Type      string  `json:"type,omitempty"`
}

type TypingStart struct {
	GroupID string `json:"groupId"`
}

type TypingStop struct {
	GroupID string `json:"groupId"`
}

type AddReaction struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

func (JoinGroup) inboundName() string   { return EventJoinGroup }
func (LeaveGroup) inboundName() string  { return EventLeaveGroup }
func (SendMessage) inboundName() string { return EventSendMessage }
func (TypingStart) inboundName() string { return EventTypingStart }
func (TypingStop) inboundName() string  { return EventTypingStop }
func (AddReaction) inboundName() string { return EventAddReaction }

// DecodeInbound parses a client frame. Unknown types and malformed payloads are INVALID_ARGUMENT.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperr.InvalidArg("malformed event")
	}

	switch env.Type {
	case EventJoinGroup:
		return decodeData[JoinGroup](env)
	case EventLeaveGroup:
		return decodeData[LeaveGroup](env)
	case EventSendMessage:
		return decodeData[SendMessage](env)
	case EventTypingStart:
		return decodeData[TypingStart](env)
	case EventTypingStop:
		return decodeData[TypingStop](env)
	case EventAddReaction:
		return decodeData[AddReaction](env)
	case "":
		return nil, apperr.InvalidArg("event type is required")
	default:
		return nil, apperr.InvalidArg(fmt.Sprintf("unknown event %q", env.Type))
	}
}

func decodeData[T Inbound](env envelope) (Inbound, error) {
	var ev T
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ev, nil
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apperr.InvalidArg(fmt.Sprintf("malformed %s payload", env.Type))
	}
	return ev, nil
}

// Outbound is one of the server events below. The set is closed.
type Outbound interface {
	outboundName() string
}

type JoinedGroup struct {
	GroupID string       `json:"groupId"`
	Typing  []TypingUser `json:"typing"`
}

type UserJoined struct {
	GroupID string             `json:"groupId"`
	User    models.UserSummary `json:"user"`
}

type UserLeft struct {
	GroupID string             `json:"groupId"`
	User    models.UserSummary `json:"user"`
}

type NewMessage struct {
	models.MessageView
}

type UserTyping struct {
	GroupID string       `json:"groupId"`
	Users   []TypingUser `json:"users"`
}

type ReactionUpdated struct {
	MessageID string                 `json:"messageId"`
	GroupID   string                 `json:"groupId"`
	Reactions []models.ReactionGroup `json:"reactions"`
}

// Notification is delivered to a single user rather than a room.
type Notification struct {
	Kind      string             `json:"kind"`
	GroupID   string             `json:"groupId"`
	MessageID string             `json:"messageId,omitempty"`
	From      models.UserSummary `json:"from"`
	Preview   string             `json:"preview,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// GroupNotification is a room-wide announcement.
type GroupNotification struct {
	GroupID   string             `json:"groupId"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	From      models.UserSummary `json:"from"`
	CreatedAt time.Time          `json:"createdAt"`
}

type ErrorEvent struct {
	Message string      `json:"message"`
	Code    apperr.Code `json:"code"`
	Event   string      `json:"event,omitempty"`
}

func (JoinedGroup) outboundName() string       { return EventJoinedGroup }
func (UserJoined) outboundName() string        { return EventUserJoined }
func (UserLeft) outboundName() string          { return EventUserLeft }
func (NewMessage) outboundName() string        { return EventNewMessage }
func (UserTyping) outboundName() string        { return EventUserTyping }
func (ReactionUpdated) outboundName() string   { return EventReactionUpdated }
func (Notification) outboundName() string      { return EventNotification }
func (GroupNotification) outboundName() string { return EventGroupNotification }
func (ErrorEvent) outboundName() string        { return EventError }

// Encode renders ev in the {"type","data"} envelope.
func Encode(ev Outbound) ([]byte, error) {
	return json.Marshal(struct {
		Type string   `json:"type"`
		Data Outbound `json:"data"`
	}{Type: ev.outboundName(), Data: ev})
}

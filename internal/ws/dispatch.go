package ws

import (
	"context"
	"strings"
	"unicode/utf8"

	"study-chat/internal/apperr"
	"study-chat/internal/chat"
	"study-chat/internal/telemetry"
)

const replyPreviewRunes = 120

func (g *Gateway) joinGroup(ctx context.Context, c *Conn, e JoinGroup) error {
	if _, err := g.deps.Members.Require(ctx, e.GroupID, c.User.UserID); err != nil {
		return err
	}
	g.rooms.Join(e.GroupID, c)
	g.broadcast(ctx, e.GroupID, UserJoined{GroupID: e.GroupID, User: c.User.Summary()}, c.ID)
	g.sendTo(c, JoinedGroup{GroupID: e.GroupID, Typing: g.typing.Snapshot(e.GroupID)})
	return nil
}

// leaveGroup is idempotent; the remaining subscribers always hear user_left.
func (g *Gateway) leaveGroup(ctx context.Context, c *Conn, e LeaveGroup) error {
	if e.GroupID == "" {
		return apperr.InvalidArg("groupId is required")
	}
	g.rooms.Leave(e.GroupID, c)
	if users, removed := g.typing.Stop(e.GroupID, c.User.UserID); removed {
		g.broadcast(ctx, e.GroupID, UserTyping{GroupID: e.GroupID, Users: users}, c.ID)
	}
	g.broadcast(ctx, e.GroupID, UserLeft{GroupID: e.GroupID, User: c.User.Summary()}, c.ID)
	return nil
}

func (g *Gateway) sendMessage(ctx context.Context, c *Conn, e SendMessage) error {
	view, err := g.deps.Messages.Send(ctx, c.User, chat.SendRequest{
		GroupID:   e.GroupID,
		Content:   e.Content,
		ReplyToID: e.ReplyToID,
		Type:      e.Type,
	})
	if err != nil {
		return err
	}

	g.broadcast(ctx, view.GroupID, NewMessage{MessageView: view}, "")

	if view.ReplyTo != nil && view.ReplyTo.AuthorID != "" && view.ReplyTo.AuthorID != c.User.UserID {
		g.NotifyUser(view.ReplyTo.AuthorID, Notification{
			Kind:      "reply",
			GroupID:   view.GroupID,
			MessageID: view.ID,
			From:      c.User.Summary(),
			Preview:   preview(view.Content),
			CreatedAt: view.CreatedAt,
		})
	}

	g.deps.Audit.Emit(ctx, telemetry.AuditEvent{
		Action:    telemetry.ActionMessageSent,
		Text:      "message sent over websocket",
		RequestID: c.Info.RequestID,
		UserID:    c.User.UserID,
		GroupID:   view.GroupID,
		MessageID: view.ID,
		ConnID:    c.ID,
	})
	return nil
}

func (g *Gateway) typingStart(ctx context.Context, c *Conn, e TypingStart) error {
	if e.GroupID == "" {
		return apperr.InvalidArg("groupId is required")
	}
	if !g.rooms.Has(e.GroupID, c.ID) {
		return apperr.Forbidden("join the group before typing")
	}
	users := g.typing.Start(e.GroupID, c.User)
	g.broadcast(ctx, e.GroupID, UserTyping{GroupID: e.GroupID, Users: users}, c.ID)
	return nil
}

func (g *Gateway) typingStop(ctx context.Context, c *Conn, e TypingStop) error {
	if e.GroupID == "" {
		return apperr.InvalidArg("groupId is required")
	}
	users, _ := g.typing.Stop(e.GroupID, c.User.UserID)
	g.broadcast(ctx, e.GroupID, UserTyping{GroupID: e.GroupID, Users: users}, c.ID)
	return nil
}

func (g *Gateway) addReaction(ctx context.Context, c *Conn, e AddReaction) error {
	update, err := g.deps.Reactions.Toggle(ctx, c.User.UserID, e.MessageID, e.Emoji)
	if err != nil {
		return err
	}
	g.broadcast(ctx, update.GroupID, ReactionUpdated{
		MessageID: update.MessageID,
		GroupID:   update.GroupID,
		Reactions: update.Reactions,
	}, "")

	g.deps.Audit.Emit(ctx, telemetry.AuditEvent{
		Action:    telemetry.ActionReactionToggled,
		Text:      strings.TrimSpace(e.Emoji),
		RequestID: c.Info.RequestID,
		UserID:    c.User.UserID,
		GroupID:   update.GroupID,
		MessageID: update.MessageID,
		ConnID:    c.ID,
	})
	return nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= replyPreviewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:replyPreviewRunes]) + "…"
}

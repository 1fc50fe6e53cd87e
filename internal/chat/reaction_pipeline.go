package chat

import (
	"context"
	"errors"
	"strings"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

const maxEmojiBytes = 64

// ReactionUpdate is the full reaction aggregate of a message after a toggle.
type ReactionUpdate struct {
	MessageID string
	GroupID   string
	Added     bool
	Reactions []models.ReactionGroup
}

// ReactionPipeline toggles reactions and recomputes the per-message aggregate.
// The aggregate is re-read and re-grouped on every toggle, so its cost grows with
// the number of reactions on the message.
type ReactionPipeline struct {
	authority *MembershipAuthority
	messages  repositories.GroupMessageRepository
	reactions repositories.ReactionRepository
}

func NewReactionPipeline(authority *MembershipAuthority, messages repositories.GroupMessageRepository, reactions repositories.ReactionRepository) *ReactionPipeline {
	return &ReactionPipeline{authority: authority, messages: messages, reactions: reactions}
}

// Toggle adds the (message, user, emoji) reaction if absent and removes it otherwise.
func (p *ReactionPipeline) Toggle(ctx context.Context, userID, messageID, emoji string) (ReactionUpdate, error) {
	emoji = strings.TrimSpace(emoji)
	if messageID == "" {
		return ReactionUpdate{}, apperr.InvalidArg("messageId is required")
	}
	if emoji == "" || len(emoji) > maxEmojiBytes {
		return ReactionUpdate{}, apperr.InvalidArg("invalid emoji")
	}

	msg, err := p.messages.GetGroupMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return ReactionUpdate{}, apperr.NotFound("message not found")
		}
		return ReactionUpdate{}, apperr.Internal("load message", err)
	}
	if _, err := p.authority.Require(ctx, msg.GroupID, userID); err != nil {
		return ReactionUpdate{}, err
	}

	added := false
	existing, err := p.reactions.FindReaction(ctx, messageID, userID, emoji)
	switch {
	case err == nil:
		if err := p.reactions.DeleteReaction(ctx, existing.ID); err != nil && !errors.Is(err, repositories.ErrReactionNotFound) {
			return ReactionUpdate{}, apperr.Internal("delete reaction", err)
		}
	case errors.Is(err, repositories.ErrReactionNotFound):
		if _, err := p.reactions.CreateReaction(ctx, messageID, userID, emoji); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ReactionUpdate{}, apperr.Conflict("reaction already recorded")
			}
			return ReactionUpdate{}, apperr.Internal("create reaction", err)
		}
		added = true
	default:
		return ReactionUpdate{}, apperr.Internal("find reaction", err)
	}

	records, err := p.reactions.ListReactions(ctx, messageID)
	if err != nil {
		return ReactionUpdate{}, apperr.Internal("list reactions", err)
	}

	return ReactionUpdate{
		MessageID: messageID,
		GroupID:   msg.GroupID,
		Added:     added,
		Reactions: models.GroupReactions(records),
	}, nil
}

package models

import "time"

// MessageReaction is one (message, user, emoji) triple.
type MessageReaction struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionRecord is a reaction joined with the reacting user's name.
type ReactionRecord struct {
	MessageReaction
	UserName string `db:"user_name"`
}

type ReactionUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReactionGroup is the aggregate view of one emoji on a message.
type ReactionGroup struct {
	Emoji string         `json:"emoji"`
	Count int            `json:"count"`
	Users []ReactionUser `json:"users"`
}

// GroupReactions folds reactions into per-emoji groups, keeping first-seen emoji order.
func GroupReactions(records []ReactionRecord) []ReactionGroup {
	groups := make([]ReactionGroup, 0)
	index := map[string]int{}
	for _, r := range records {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji, Users: []ReactionUser{}})
		}
		groups[i].Users = append(groups[i].Users, ReactionUser{ID: r.UserID, Name: r.UserName})
		groups[i].Count++
	}
	return groups
}

package models

import "time"

// Role is a member's role inside a group.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Group represents a study group with a chat channel.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	IsPrivate bool      `db:"is_private" json:"is_private"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupMembership is the durable (user, group, role) record that gates chat access.
type GroupMembership struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

func (m GroupMembership) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// MemberView is a membership joined with the member's profile.
type MemberView struct {
	UserID   string    `db:"user_id" json:"user_id"`
	Name     string    `db:"name" json:"name"`
	Avatar   string    `db:"avatar" json:"avatar"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

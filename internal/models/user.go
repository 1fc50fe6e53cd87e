package models

// User is the read-only profile row owned by the account service.
type User struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Avatar string `db:"avatar" json:"avatar"`
	Role   string `db:"role" json:"role"`
}

// Identity is a verified user resolved from a bearer credential.
type Identity struct {
	UserID string
	Name   string
	Avatar string
	Role   string
}

// UserSummary is the public profile attached to outbound events.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func (i Identity) Summary() UserSummary {
	return UserSummary{ID: i.UserID, Name: i.Name, Avatar: i.Avatar}
}

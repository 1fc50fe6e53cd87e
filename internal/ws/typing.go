package ws

import (
	"sort"
	"sync"
	"time"

	"study-chat/internal/models"
)

// TypingUser is one entry of a room's typing set.
type TypingUser struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	StartedAt time.Time `json:"startedAt"`
}

// TypingTracker holds, per group, the users currently typing.
type TypingTracker struct {
	mu     sync.Mutex
	groups map[string]map[string]TypingUser
	now    func() time.Time
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		groups: make(map[string]map[string]TypingUser),
		now:    time.Now,
	}
}

// Start upserts the user's entry with the current time and returns the group's set.
func (t *TypingTracker) Start(groupID string, user models.Identity) []TypingUser {
	t.mu.Lock()
	defer t.mu.Unlock()
	group, ok := t.groups[groupID]
	if !ok {
		group = make(map[string]TypingUser)
		t.groups[groupID] = group
	}
	group[user.UserID] = TypingUser{UserID: user.UserID, UserName: user.Name, StartedAt: t.now()}
	return snapshotLocked(group)
}

// Stop removes the user's entry if present and returns the group's set.
func (t *TypingTracker) Stop(groupID, userID string) ([]TypingUser, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := t.removeLocked(groupID, userID)
	return snapshotLocked(t.groups[groupID]), removed
}

func (t *TypingTracker) Snapshot(groupID string) []TypingUser {
	t.mu.Lock()
	defer t.mu.Unlock()
	return snapshotLocked(t.groups[groupID])
}

// RemoveUser clears the user's entries in every group and returns the groups touched.
func (t *TypingTracker) RemoveUser(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var affected []string
	for groupID := range t.groups {
		if t.removeLocked(groupID, userID) {
			affected = append(affected, groupID)
		}
	}
	sort.Strings(affected)
	return affected
}

// Sweep drops entries older than ttl and returns the groups touched.
func (t *TypingTracker) Sweep(ttl time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-ttl)
	var affected []string
	for groupID, group := range t.groups {
		expired := false
		for userID, entry := range group {
			if entry.StartedAt.Before(cutoff) {
				delete(group, userID)
				expired = true
			}
		}
		if len(group) == 0 {
			delete(t.groups, groupID)
		}
		if expired {
			affected = append(affected, groupID)
		}
	}
	sort.Strings(affected)
	return affected
}

// Len counts entries across all groups.
func (t *TypingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, group := range t.groups {
		n += len(group)
	}
	return n
}

func (t *TypingTracker) removeLocked(groupID, userID string) bool {
	group, ok := t.groups[groupID]
	if !ok {
		return false
	}
	if _, ok := group[userID]; !ok {
		return false
	}
	delete(group, userID)
	if len(group) == 0 {
		delete(t.groups, groupID)
	}
	return true
}

// snapshotLocked orders entries by start time, then user id.
func snapshotLocked(group map[string]TypingUser) []TypingUser {
	users := make([]TypingUser, 0, len(group))
	for _, entry := range group {
		users = append(users, entry)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].StartedAt.Equal(users[j].StartedAt) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].StartedAt.Before(users[j].StartedAt)
	})
	return users
}

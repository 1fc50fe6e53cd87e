package ws

import "sync"

// Registry maps users to their live connection for direct delivery.
// The most recent connection of a user wins.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Conn
	byID   map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Conn),
		byID:   make(map[string]*Conn),
	}
}

// Register makes c the user's current connection and returns the one it displaced, if any.
func (r *Registry) Register(c *Conn) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[c.User.UserID]
	r.byUser[c.User.UserID] = c
	r.byID[c.ID] = c
	return prev
}

// Unregister removes c. If c was the user's current connection, the user's most
// recent remaining connection takes over.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, c.ID)
	if r.byUser[c.User.UserID] != c {
		return
	}
	delete(r.byUser, c.User.UserID)

	var next *Conn
	for _, other := range r.byID {
		if other.User.UserID != c.User.UserID {
			continue
		}
		if next == nil || other.Info.ConnectedAt.After(next.Info.ConnectedAt) {
			next = other
		}
	}
	if next != nil {
		r.byUser[c.User.UserID] = next
	}
}

func (r *Registry) Lookup(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Connected reports whether the user still has any live connection.
func (r *Registry) Connected(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

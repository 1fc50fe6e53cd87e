package ws

import (
	"context"
	"sort"
	"sync"

	"study-chat/internal/observability"
)

// RoomManager tracks which connections are subscribed to which group rooms.
type RoomManager interface {
	Join(groupID string, c *Conn) bool
	Leave(groupID string, c *Conn) bool
	LeaveAll(c *Conn) []string
	Has(groupID, connID string) bool
	Subscribers(groupID string) []string
	Deliver(groupID string, payload []byte, exceptConnID string) int
}

// Broadcaster fans a frame out to a room. The local implementation delivers in
// process; a backplane implementation delivers on every instance.
type Broadcaster interface {
	Broadcast(ctx context.Context, groupID string, payload []byte, exceptConnID string) error
}

// Rooms is the in-memory RoomManager.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Conn
	byConn map[string]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]*Conn),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes c to groupID. It reports false if c was already subscribed.
func (r *Rooms) Join(groupID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[groupID]
	if !ok {
		room = make(map[string]*Conn)
		r.rooms[groupID] = room
	}
	if _, exists := room[c.ID]; exists {
		return false
	}
	room[c.ID] = c
	if _, ok := r.byConn[c.ID]; !ok {
		r.byConn[c.ID] = make(map[string]struct{})
	}
	r.byConn[c.ID][groupID] = struct{}{}
	observability.AddRoomSubscriptions(1)
	return true
}

// Leave unsubscribes c from groupID. It reports false if c was not subscribed.
func (r *Rooms) Leave(groupID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(groupID, c.ID)
}

// LeaveAll drops every subscription of c and returns the groups it was in.
func (r *Rooms) LeaveAll(c *Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make([]string, 0, len(r.byConn[c.ID]))
	for groupID := range r.byConn[c.ID] {
		groups = append(groups, groupID)
	}
	for _, groupID := range groups {
		r.leaveLocked(groupID, c.ID)
	}
	sort.Strings(groups)
	return groups
}

func (r *Rooms) leaveLocked(groupID, connID string) bool {
	room, ok := r.rooms[groupID]
	if !ok {
		return false
	}
	if _, ok := room[connID]; !ok {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, groupID)
	}
	if groups, ok := r.byConn[connID]; ok {
		delete(groups, groupID)
		if len(groups) == 0 {
			delete(r.byConn, connID)
		}
	}
	observability.AddRoomSubscriptions(-1)
	return true
}

func (r *Rooms) Has(groupID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[groupID][connID]
	return ok
}

// Subscribers returns the sorted connection ids subscribed to groupID.
func (r *Rooms) Subscribers(groupID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms[groupID]))
	for id := range r.rooms[groupID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Deliver enqueues payload on every local subscriber except exceptConnID and
// returns how many connections accepted it.
func (r *Rooms) Deliver(groupID string, payload []byte, exceptConnID string) int {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.rooms[groupID]))
	for id, c := range r.rooms[groupID] {
		if id != exceptConnID {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Send(payload) {
			delivered++
		}
	}
	return delivered
}

// LocalBroadcaster delivers to subscribers in this process only.
type LocalBroadcaster struct {
	Rooms RoomManager
}

func (b LocalBroadcaster) Broadcast(_ context.Context, groupID string, payload []byte, exceptConnID string) error {
	b.Rooms.Deliver(groupID, payload, exceptConnID)
	return nil
}

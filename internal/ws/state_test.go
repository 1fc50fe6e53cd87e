package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-chat/internal/models"
)

func TestRegistryLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	first := testConn("u1", "Ann")
	second := testConn("u1", "Ann")
	second.Info.ConnectedAt = first.Info.ConnectedAt.Add(time.Second)

	assert.Nil(t, r.Register(first))
	assert.Same(t, first, r.Register(second))

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)

	r.Unregister(first)
	got, _ = r.Lookup("u1")
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryFallsBackToRemainingConnection(t *testing.T) {
	r := NewRegistry()
	first := testConn("u1", "Ann")
	second := testConn("u1", "Ann")
	r.Register(first)
	r.Register(second)

	r.Unregister(second)
	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, first, got)

	r.Unregister(first)
	assert.False(t, r.Connected("u1"))
	assert.Zero(t, r.Count())
}

func TestRoomsJoinLeaveDeliver(t *testing.T) {
	rooms := NewRooms()
	a, b := testConn("ua", "A"), testConn("ub", "B")

	assert.True(t, rooms.Join("g1", a))
	assert.False(t, rooms.Join("g1", a))
	rooms.Join("g1", b)
	rooms.Join("g2", a)

	assert.Equal(t, 1, rooms.Deliver("g1", []byte(`{"type":"x"}`), a.ID))
	assert.Empty(t, drain(t, a))
	assert.Len(t, drain(t, b), 1)

	assert.True(t, rooms.Leave("g1", b))
	assert.False(t, rooms.Leave("g1", b))
	assert.Equal(t, []string{a.ID}, rooms.Subscribers("g1"))

	assert.Equal(t, []string{"g1", "g2"}, rooms.LeaveAll(a))
	assert.Empty(t, rooms.Subscribers("g1"))
	assert.False(t, rooms.Has("g2", a.ID))
	assert.Empty(t, rooms.LeaveAll(a))
}

func TestDeliverSkipsClosedConnections(t *testing.T) {
	rooms := NewRooms()
	a, b := testConn("ua", "A"), testConn("ub", "B")
	rooms.Join("g1", a)
	rooms.Join("g1", b)
	b.Close()

	assert.Equal(t, 1, rooms.Deliver("g1", []byte(`{}`), ""))
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	c := newConn(nil, models.Identity{UserID: "u1"}, ConnInfo{}, 1, testConn("u", "u").log)
	assert.True(t, c.Send([]byte("1")))
	assert.False(t, c.Send([]byte("2")))
}

func TestTypingTracker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTypingTracker()
	tr.now = func() time.Time { return now }

	ann := models.Identity{UserID: "u1", Name: "Ann"}
	bob := models.Identity{UserID: "u2", Name: "Bob"}

	tr.Start("g1", ann)
	now = now.Add(time.Second)
	users := tr.Start("g1", bob)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].UserID)

	now = now.Add(time.Second)
	users = tr.Start("g1", ann)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].UserID, "restart moves the entry to the back")

	tr.Start("g2", ann)
	assert.Equal(t, []string{"g1", "g2"}, tr.RemoveUser("u1"))
	assert.Equal(t, 1, tr.Len())

	users, removed := tr.Stop("g1", "u2")
	assert.True(t, removed)
	assert.Empty(t, users)
	assert.NotNil(t, users)

	_, removed = tr.Stop("g1", "u2")
	assert.False(t, removed)
}

func TestTypingSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTypingTracker()
	tr.now = func() time.Time { return now }

	tr.Start("g1", models.Identity{UserID: "old"})
	now = now.Add(8 * time.Second)
	tr.Start("g1", models.Identity{UserID: "fresh"})
	tr.Start("g2", models.Identity{UserID: "fresh"})
	now = now.Add(4 * time.Second)

	assert.Equal(t, []string{"g1"}, tr.Sweep(10*time.Second))
	users := tr.Snapshot("g1")
	require.Len(t, users, 1)
	assert.Equal(t, "fresh", users[0].UserID)
	assert.Empty(t, tr.Sweep(10*time.Second))
}

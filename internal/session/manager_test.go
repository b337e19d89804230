package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewManager()

	s := m.CreateSession("user-1", time.Hour)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "user-1", s.UserID)

	got, ok := m.GetSession(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	m.DeleteSession(s.ID)
	_, ok = m.GetSession(s.ID)
	assert.False(t, ok)
}

func TestExpiredSessionIsDroppedOnRead(t *testing.T) {
	m := NewManager()
	s := m.CreateSession("user-1", -time.Minute)

	_, ok := m.GetSession(s.ID)
	assert.False(t, ok, "expired session must not resolve")
	assert.Equal(t, 0, m.ActiveCount(), "lookup evicts the expired entry")
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := NewManager()
	m.CreateSession("user-1", -time.Minute)
	m.CreateSession("user-2", -time.Minute)
	live := m.CreateSession("user-3", time.Hour)

	removed := m.CleanupExpiredSessions()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.ActiveCount())

	_, ok := m.GetSession(live.ID)
	assert.True(t, ok)
}

func TestDeleteSessionsForUser(t *testing.T) {
	m := NewManager()
	m.CreateSession("user-1", time.Hour)
	m.CreateSession("user-1", time.Hour)
	other := m.CreateSession("user-2", time.Hour)

	removed := m.DeleteSessionsForUser("user-1")
	assert.Equal(t, 2, removed)

	_, ok := m.GetSession(other.ID)
	assert.True(t, ok)
}

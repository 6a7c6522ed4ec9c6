// internal/session/store_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegames/gamesvc/internal/engine"
)

func seedSession(t *testing.T, store Store, id string, status Status, startedAt time.Time, players ...string) {
	t.Helper()
	err := store.Save(context.Background(), &Session{
		SessionID: id,
		GameType:  "connect_four",
		PlayerIDs: players,
		Status:    status,
		GameState: engine.Document{},
		StartedAt: startedAt,
	})
	require.NoError(t, err)
}

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore()
	seedSession(t, store, "s1", StatusActive, time.Now(), "a", "b")

	s, err := store.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.SessionID)

	_, err = store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	store := NewMemoryStore()
	seedSession(t, store, "s1", StatusActive, time.Now(), "a", "b")

	first, err := store.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	first.Status = StatusFinished
	first.GameState["tampered"] = true

	second, err := store.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, second.Status, "mutating a returned session must not affect the store")
	assert.NotContains(t, second.GameState, "tampered")
}

func TestMemoryStoreFindByPlayerID(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	seedSession(t, store, "old", StatusFinished, base.Add(-2*time.Hour), "a", "b")
	seedSession(t, store, "new", StatusFinished, base.Add(-1*time.Hour), "a", "c")
	seedSession(t, store, "active", StatusActive, base, "a", "d")
	seedSession(t, store, "other", StatusFinished, base, "x", "y")

	got, err := store.FindByPlayerID(context.Background(), "a", 10, StatusFinished)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].SessionID, "results are newest first")
	assert.Equal(t, "old", got[1].SessionID)

	got, err = store.FindByPlayerID(context.Background(), "a", 1, StatusFinished)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].SessionID)
}

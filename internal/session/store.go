// internal/session/store.go
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by stores when no session matches.
var ErrNotFound = errors.New("session not found")

// Store persists session records keyed by session id. Save is last-write-wins
// per record; a single logical owner per session is assumed upstream.
type Store interface {
	Save(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	FindByGameID(ctx context.Context, gameID string) ([]*Session, error)

	// FindByPlayerID returns sessions containing playerID, most recent first.
	// status narrows the result when non-empty; limit <= 0 means no limit.
	FindByPlayerID(ctx context.Context, playerID string, limit int, status Status) ([]*Session, error)
}

// MemoryStore is a mutex-guarded in-memory Store, used in tests and when no
// database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) FindByGameID(ctx context.Context, gameID string) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.GameID == gameID {
			out = append(out, s.Clone())
		}
	}
	sortByStartedDesc(out)
	return out, nil
}

func (m *MemoryStore) FindByPlayerID(ctx context.Context, playerID string, limit int, status Status) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if !s.HasPlayer(playerID) {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s.Clone())
	}
	sortByStartedDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByStartedDesc(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
}

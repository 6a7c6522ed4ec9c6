// internal/session/session.go
package session

import (
	"time"

	"github.com/lanegames/gamesvc/internal/engine"
)

// Status is the lifecycle state of a session. Valid transitions are
// created -> active -> (paused <-> active) -> finished | abandoned.
// Terminal states never transition backward.
type Status string

const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status ends the session.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusAbandoned
}

// Session is the aggregate root for one game between a fixed set of players.
// It is mutated only by the Orchestrator; the store treats it as a record.
type Session struct {
	SessionID       string                 `json:"session_id"`
	GameID          string                 `json:"game_id"`
	GameType        string                 `json:"game_type"`
	LobbyID         string                 `json:"lobby_id,omitempty"`
	PlayerIDs       []string               `json:"player_ids"`
	CurrentPlayerID string                 `json:"current_player_id"`
	Status          Status                 `json:"status"`
	GameState       engine.Document        `json:"game_state"`
	StartedAt       time.Time              `json:"started_at"`
	EndedAt         *time.Time             `json:"ended_at,omitempty"`
	WinnerID        string                 `json:"winner_id,omitempty"`
	TotalMoves      int                    `json:"total_moves"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Session) IsActive() bool { return s.Status == StatusActive }

func (s *Session) HasPlayer(playerID string) bool {
	for _, id := range s.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// Finish marks the session finished, stamping the end time. winnerID may be
// empty for a draw.
func (s *Session) Finish(winnerID string) {
	now := time.Now().UTC()
	s.Status = StatusFinished
	s.WinnerID = winnerID
	s.EndedAt = &now
}

func (s *Session) Pause() {
	if s.Status == StatusActive {
		s.Status = StatusPaused
	}
}

func (s *Session) Resume() {
	if s.Status == StatusPaused {
		s.Status = StatusActive
	}
}

// Clone returns a deep-enough copy for handing across goroutine boundaries:
// slices are copied, document maps are copied one level deep.
func (s *Session) Clone() *Session {
	out := *s
	out.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.GameState != nil {
		out.GameState = make(engine.Document, len(s.GameState))
		for k, v := range s.GameState {
			out.GameState[k] = v
		}
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

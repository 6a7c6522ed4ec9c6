// internal/session/events.go
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lanegames/gamesvc/internal/engine"
)

// Routing keys on the shared topic exchange. The inbound key is consumed by
// the session consumer; the rest are published by the Orchestrator.
const (
	RouteSessionStartRequested = "game.session.start.requested"
	RouteSessionStarted        = "game.session.started"
	RouteMoveApplied           = "game.move.applied"
	RouteSessionEnded          = "game.session.ended"
)

// Event type markers carried in every payload so consumers can dispatch
// without inspecting the routing key.
const (
	EventTypeSessionStarted = "GAME_SESSION_STARTED"
	EventTypeMoveApplied    = "GAME_MOVE_APPLIED"
	EventTypeSessionEnded   = "GAME_SESSION_ENDED"
)

// EventPublisher pushes a structured event onto the shared broker. Publish
// failures never abort an already-committed mutation; the store is the
// source of truth and events are best-effort notification.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event map[string]interface{}) error
}

func eventEnvelope(eventType string, ts time.Time) map[string]interface{} {
	return map[string]interface{}{
		"eventId":   uuid.NewString(),
		"timestamp": ts.UTC().Format(time.RFC3339Nano),
		"type":      eventType,
	}
}

// SessionStartedEvent carries the full state snapshot of a freshly created
// session.
func SessionStartedEvent(s *Session) map[string]interface{} {
	ev := eventEnvelope(EventTypeSessionStarted, s.StartedAt)
	ev["session_id"] = s.SessionID
	ev["game_id"] = s.GameID
	ev["game_type"] = s.GameType
	ev["lobby_id"] = s.LobbyID
	ev["status"] = string(s.Status)
	ev["game_state"] = s.GameState
	ev["player_ids"] = s.PlayerIDs
	ev["current_player_id"] = s.CurrentPlayerID
	return ev
}

// MoveAppliedEvent describes one accepted move and the resulting state.
func MoveAppliedEvent(s *Session, playerID string, moveData engine.Document) map[string]interface{} {
	ev := eventEnvelope(EventTypeMoveApplied, time.Now())
	ev["session_id"] = s.SessionID
	ev["game_id"] = s.GameID
	ev["game_type"] = s.GameType
	ev["player_id"] = playerID
	ev["move_data"] = moveData
	ev["game_state"] = s.GameState
	ev["current_player_id"] = s.CurrentPlayerID
	ev["status"] = string(s.Status)
	if s.WinnerID != "" {
		ev["winner_id"] = s.WinnerID
	}
	return ev
}

// SessionEndedEvent describes a terminal session. abandonedBy is empty for
// sessions that finished through play.
func SessionEndedEvent(s *Session, abandonedBy string) map[string]interface{} {
	ts := time.Now()
	if s.EndedAt != nil {
		ts = *s.EndedAt
	}
	ev := eventEnvelope(EventTypeSessionEnded, ts)
	ev["session_id"] = s.SessionID
	ev["game_id"] = s.GameID
	ev["game_type"] = s.GameType
	ev["status"] = string(s.Status)
	if s.WinnerID != "" {
		ev["winner_id"] = s.WinnerID
	}
	ev["final_game_state"] = s.GameState
	ev["total_moves"] = s.TotalMoves
	if abandonedBy != "" {
		ev["abandoned_by"] = abandonedBy
	}
	return ev
}

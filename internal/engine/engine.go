// internal/engine/engine.go
package engine

import (
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// Document is the generic key-value form every game state and move can be
// serialized to. It is what the session store persists and what travels on
// the event bus, so it must stay JSON-compatible.
type Document map[string]interface{}

// Status describes the outcome of a game state.
type Status string

const (
	StatusOngoing Status = "ongoing"
	StatusDraw    Status = "draw"
)

// WinStatus returns the terminal status for a win by the given 1-based
// player number (position in the player list).
func WinStatus(playerNum int) Status {
	switch playerNum {
	case 1:
		return "win_p1"
	case 2:
		return "win_p2"
	default:
		return StatusOngoing
	}
}

// Terminal reports whether the status ends the game.
func (s Status) Terminal() bool { return s != StatusOngoing }

// State is an opaque, game-type-specific value. Implementations must treat
// states as immutable: ApplyMove returns a fresh copy.
type State interface {
	Document() Document
}

// Move is a game-type-specific move value.
type Move interface {
	Document() Document
}

// Game is the capability set every ruleset implements. New game types
// register a constructor with the Registry; nothing outside the ruleset
// package branches on the game type string.
type Game interface {
	GameType() string

	CreateInitialState(playerIDs []string, startingPlayerID string, config Document) (State, error)
	ApplyMove(state State, move Move, playerID string) (State, error)
	LegalMoves(state State, playerID string) []Move

	Status(state State) Status
	WinnerID(state State) (string, bool)
	CurrentPlayerID(state State) string

	// StateFromDocument and MoveFromDocument rebuild typed values from their
	// canonical document form. They are the inverse of Document().
	StateFromDocument(doc Document) (State, error)
	MoveFromDocument(doc Document) (Move, error)
}

// InvalidMove builds the validation failure every ruleset raises when a move
// is illegal, out of turn, or structurally malformed.
func InvalidMove(format string, args ...interface{}) error {
	return gameerr.Validation(format, args...)
}

// internal/engine/connectfour/connectfour.go
package connectfour

import (
	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/gameerr"
)

const (
	// GameType is the registry key for this ruleset.
	GameType = "connect_four"

	Rows = 6
	Cols = 7
)

// State is the full board position. Row 0 is the top of the board; pieces
// fall toward row Rows-1. Cell values: 0 empty, 1 first player, 2 second.
type State struct {
	Board           [][]int
	CurrentPlayerID string
	PlayerIDs       []string
	MoveNumber      int
}

// Move selects the column (0-6) to drop a piece into.
type Move struct {
	Column int
}

func (m Move) Document() engine.Document {
	return engine.Document{"column": m.Column}
}

func (s *State) Document() engine.Document {
	board := make([]interface{}, Rows)
	for r := 0; r < Rows; r++ {
		row := make([]interface{}, Cols)
		for c := 0; c < Cols; c++ {
			row[c] = s.Board[r][c]
		}
		board[r] = row
	}
	players := make([]interface{}, len(s.PlayerIDs))
	for i, id := range s.PlayerIDs {
		players[i] = id
	}
	return engine.Document{
		"game_type":         GameType,
		"board":             board,
		"current_player_id": s.CurrentPlayerID,
		"player_ids":        players,
		"move_number":       s.MoveNumber,
	}
}

func (s *State) clone() *State {
	board := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		board[r] = make([]int, Cols)
		copy(board[r], s.Board[r])
	}
	players := make([]string, len(s.PlayerIDs))
	copy(players, s.PlayerIDs)
	return &State{
		Board:           board,
		CurrentPlayerID: s.CurrentPlayerID,
		PlayerIDs:       players,
		MoveNumber:      s.MoveNumber,
	}
}

func emptyBoard() [][]int {
	board := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		board[r] = make([]int, Cols)
	}
	return board
}

// Game implements the connect-four ruleset.
type Game struct{}

func New() engine.Game { return &Game{} }

func (g *Game) GameType() string { return GameType }

// MaxMoves is the playout cap: the board holds at most Rows*Cols pieces.
func (g *Game) MaxMoves() int { return Rows * Cols }

func (g *Game) CreateInitialState(playerIDs []string, startingPlayerID string, config engine.Document) (engine.State, error) {
	if len(playerIDs) != 2 {
		return nil, gameerr.Validation("connect four requires exactly 2 players, got %d", len(playerIDs))
	}
	for _, id := range playerIDs {
		if id == "" {
			return nil, gameerr.Validation("player id cannot be empty")
		}
	}
	if startingPlayerID == "" {
		return nil, gameerr.Validation("starting player id must be non-empty")
	}
	if indexOf(playerIDs, startingPlayerID) < 0 {
		return nil, gameerr.Validation("starting player %s not in player list", startingPlayerID)
	}
	players := make([]string, len(playerIDs))
	copy(players, playerIDs)
	return &State{
		Board:           emptyBoard(),
		CurrentPlayerID: startingPlayerID,
		PlayerIDs:       players,
		MoveNumber:      0,
	}, nil
}

func (g *Game) ApplyMove(state engine.State, move engine.Move, playerID string) (engine.State, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, engine.InvalidMove("invalid state type for connect four")
	}
	m, ok := move.(Move)
	if !ok {
		return nil, engine.InvalidMove("invalid move type for connect four")
	}
	if s.CurrentPlayerID != playerID {
		return nil, engine.InvalidMove("it is not player %s's turn", playerID)
	}
	if m.Column < 0 || m.Column >= Cols {
		return nil, engine.InvalidMove("column %d out of range", m.Column)
	}
	idx := indexOf(s.PlayerIDs, playerID)
	if idx < 0 {
		return nil, engine.InvalidMove("player %s not in game", playerID)
	}

	next := s.clone()
	placed := false
	for r := Rows - 1; r >= 0; r-- {
		if next.Board[r][m.Column] == 0 {
			next.Board[r][m.Column] = idx + 1
			placed = true
			break
		}
	}
	if !placed {
		return nil, engine.InvalidMove("column %d is full", m.Column)
	}

	next.CurrentPlayerID = s.PlayerIDs[(idx+1)%len(s.PlayerIDs)]
	next.MoveNumber = s.MoveNumber + 1
	return next, nil
}

func (g *Game) LegalMoves(state engine.State, playerID string) []engine.Move {
	s, ok := state.(*State)
	if !ok {
		return nil
	}
	if checkWinner(s.Board) != 0 {
		return nil
	}
	var moves []engine.Move
	for c := 0; c < Cols; c++ {
		if s.Board[0][c] == 0 {
			moves = append(moves, Move{Column: c})
		}
	}
	return moves
}

func (g *Game) Status(state engine.State) engine.Status {
	s, ok := state.(*State)
	if !ok {
		return engine.StatusOngoing
	}
	if winner := checkWinner(s.Board); winner != 0 {
		return engine.WinStatus(winner)
	}
	for c := 0; c < Cols; c++ {
		if s.Board[0][c] == 0 {
			return engine.StatusOngoing
		}
	}
	return engine.StatusDraw
}

func (g *Game) WinnerID(state engine.State) (string, bool) {
	s, ok := state.(*State)
	if !ok {
		return "", false
	}
	winner := checkWinner(s.Board)
	if winner == 0 || winner > len(s.PlayerIDs) {
		return "", false
	}
	return s.PlayerIDs[winner-1], true
}

func (g *Game) CurrentPlayerID(state engine.State) string {
	if s, ok := state.(*State); ok {
		return s.CurrentPlayerID
	}
	return ""
}

// checkWinner scans all four line orientations for four equal non-empty
// cells and returns the winning player number, or 0.
func checkWinner(board [][]int) int {
	// horizontal
	for r := 0; r < Rows; r++ {
		for c := 0; c <= Cols-4; c++ {
			v := board[r][c]
			if v != 0 && v == board[r][c+1] && v == board[r][c+2] && v == board[r][c+3] {
				return v
			}
		}
	}
	// vertical
	for r := 0; r <= Rows-4; r++ {
		for c := 0; c < Cols; c++ {
			v := board[r][c]
			if v != 0 && v == board[r+1][c] && v == board[r+2][c] && v == board[r+3][c] {
				return v
			}
		}
	}
	// diagonal down-right
	for r := 0; r <= Rows-4; r++ {
		for c := 0; c <= Cols-4; c++ {
			v := board[r][c]
			if v != 0 && v == board[r+1][c+1] && v == board[r+2][c+2] && v == board[r+3][c+3] {
				return v
			}
		}
	}
	// diagonal down-left
	for r := 0; r <= Rows-4; r++ {
		for c := 3; c < Cols; c++ {
			v := board[r][c]
			if v != 0 && v == board[r+1][c-1] && v == board[r+2][c-2] && v == board[r+3][c-3] {
				return v
			}
		}
	}
	return 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

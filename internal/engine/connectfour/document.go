// internal/engine/connectfour/document.go
package connectfour

import (
	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// StateFromDocument rebuilds a State from its document form. Documents may
// arrive straight from a JSON decode, so numbers can be float64 and nested
// slices are []interface{}.
func (g *Game) StateFromDocument(doc engine.Document) (engine.State, error) {
	s := &State{
		Board:           emptyBoard(),
		CurrentPlayerID: docString(doc, "current_player_id"),
		MoveNumber:      docInt(doc, "move_number"),
	}
	if s.CurrentPlayerID == "" {
		// older producers used "current_player"
		s.CurrentPlayerID = docString(doc, "current_player")
	}

	if raw, ok := doc["player_ids"]; ok {
		s.PlayerIDs = toStringSlice(raw)
	}

	if raw, ok := doc["board"]; ok {
		rows, ok := toRows(raw)
		if !ok || len(rows) != Rows {
			return nil, gameerr.Validation("malformed connect four board")
		}
		for r := 0; r < Rows; r++ {
			if len(rows[r]) != Cols {
				return nil, gameerr.Validation("malformed connect four board row %d", r)
			}
			copy(s.Board[r], rows[r])
		}
	}
	return s, nil
}

// MoveFromDocument rebuilds a Move. The column is required.
func (g *Game) MoveFromDocument(doc engine.Document) (engine.Move, error) {
	raw, ok := doc["column"]
	if !ok {
		return nil, gameerr.Validation("missing 'column' in move data")
	}
	col, ok := toInt(raw)
	if !ok {
		return nil, gameerr.Validation("'column' must be an integer")
	}
	return Move{Column: col}, nil
}

func docString(doc engine.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docInt(doc engine.Document, key string) int {
	if v, ok := toInt(doc[key]); ok {
		return v
	}
	return 0
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toStringSlice(raw interface{}) []string {
	switch vals := raw.(type) {
	case []string:
		out := make([]string, len(vals))
		copy(out, vals)
		return out
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toRows(raw interface{}) ([][]int, bool) {
	switch rows := raw.(type) {
	case [][]int:
		return rows, true
	case []interface{}:
		out := make([][]int, 0, len(rows))
		for _, rawRow := range rows {
			var row []int
			switch cells := rawRow.(type) {
			case []int:
				row = cells
			case []interface{}:
				for _, cell := range cells {
					n, ok := toInt(cell)
					if !ok {
						return nil, false
					}
					row = append(row, n)
				}
			default:
				return nil, false
			}
			out = append(out, row)
		}
		return out, true
	default:
		return nil, false
	}
}

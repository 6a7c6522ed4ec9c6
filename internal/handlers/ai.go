// internal/handlers/ai.go
package handlers

import (
	"net/http"

	"github.com/lanegames/gamesvc/internal/ai"
	"github.com/lanegames/gamesvc/internal/engine"
)

type aiMoveRequest struct {
	GameType   string          `json:"game_type"`
	GameState  engine.Document `json:"game_state"`
	PlayerID   string          `json:"player_id"`
	Tier       string          `json:"difficulty,omitempty"`
	Iterations int             `json:"iterations,omitempty"`
}

// AIMoveHandler handles POST /ai/move. The iteration budget comes from the
// difficulty tier unless an explicit iteration count overrides it.
func (s *Server) AIMoveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req aiMoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GameType == "" || req.GameState == nil {
		http.Error(w, "game_type and game_state are required", http.StatusBadRequest)
		return
	}

	iterations := req.Iterations
	tier := ai.TierMedium
	if req.Tier != "" {
		t, err := ai.ParseTier(req.Tier)
		if err != nil {
			s.writeError(w, err)
			return
		}
		tier = t
	}
	if iterations <= 0 {
		iterations = s.Advisor.Iterations(tier)
	}

	result, err := s.Advisor.SearchMove(req.GameType, req.GameState, req.PlayerID, iterations)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type aiDifficultyRequest struct {
	CurrentTier   string   `json:"current_tier"`
	WinRate       *float64 `json:"win_rate"`
	TargetWinRate *float64 `json:"target_win_rate,omitempty"`
}

// AIDifficultyHandler handles POST /ai/difficulty, recommending a tier change
// from the opponent's observed win rate.
func (s *Server) AIDifficultyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req aiDifficultyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WinRate == nil {
		http.Error(w, "win_rate is required", http.StatusBadRequest)
		return
	}
	if *req.WinRate < 0 || *req.WinRate > 1 {
		http.Error(w, "win_rate must be between 0 and 1", http.StatusBadRequest)
		return
	}
	tier, err := ai.ParseTier(req.CurrentTier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	target := ai.DefaultTargetWinRate
	if req.TargetWinRate != nil {
		target = *req.TargetWinRate
	}
	adj, err := ai.Recalibrate(tier, *req.WinRate, target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

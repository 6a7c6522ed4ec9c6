// internal/handlers/session.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/session"
)

type createSessionRequest struct {
	SessionID        string          `json:"session_id,omitempty"`
	GameID           string          `json:"game_id,omitempty"`
	GameType         string          `json:"game_type"`
	LobbyID          string          `json:"lobby_id,omitempty"`
	PlayerIDs        []string        `json:"player_ids"`
	StartingPlayerID string          `json:"starting_player_id,omitempty"`
	Configuration    engine.Document `json:"configuration,omitempty"`
}

// CreateSessionHandler handles POST /sessions/create.
func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.Orch.CreateSession(r.Context(), session.CreateParams{
		SessionID:        req.SessionID,
		GameID:           req.GameID,
		GameType:         req.GameType,
		LobbyID:          req.LobbyID,
		PlayerIDs:        req.PlayerIDs,
		StartingPlayerID: req.StartingPlayerID,
		Configuration:    req.Configuration,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetSessionHandler handles GET /sessions/{session_id}.
func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Missing session_id in path (/sessions/{session_id})", http.StatusBadRequest)
		return
	}
	sess, err := s.Orch.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type applyMoveRequest struct {
	SessionID string          `json:"session_id"`
	PlayerID  string          `json:"player_id"`
	MoveData  engine.Document `json:"move_data"`
}

// ApplyMoveHandler handles POST /sessions/move.
func (s *Server) ApplyMoveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tokenPlayer, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req applyMoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.PlayerID == "" {
		http.Error(w, "session_id and player_id are required", http.StatusBadRequest)
		return
	}
	if tokenPlayer != "" && tokenPlayer != req.PlayerID {
		http.Error(w, "Token does not match player_id", http.StatusForbidden)
		return
	}
	sess, err := s.Orch.ApplyMove(r.Context(), req.SessionID, req.PlayerID, req.MoveData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type abandonRequest struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Force     bool   `json:"force,omitempty"`
}

// AbandonSessionHandler handles POST /sessions/abandon.
func (s *Server) AbandonSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tokenPlayer, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req abandonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.PlayerID == "" {
		http.Error(w, "session_id and player_id are required", http.StatusBadRequest)
		return
	}
	if tokenPlayer != "" && tokenPlayer != req.PlayerID {
		http.Error(w, "Token does not match player_id", http.StatusForbidden)
		return
	}
	sess, err := s.Orch.AbandonSession(r.Context(), req.SessionID, req.PlayerID, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

const defaultHistoryLimit = 20

// MatchHistoryHandler handles GET /sessions/history?player_id=...&limit=N.
func (s *Server) MatchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "player_id query parameter is required", http.StatusBadRequest)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	sessions, err := s.Orch.MatchHistory(r.Context(), playerID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player_id": playerID,
		"sessions":  sessions,
		"count":     len(sessions),
	})
}

// internal/handlers/server.go

// Package handlers exposes the session, AI and realtime HTTP surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/ai"
	"github.com/lanegames/gamesvc/internal/auth"
	"github.com/lanegames/gamesvc/internal/gameerr"
	"github.com/lanegames/gamesvc/internal/session"
	"github.com/lanegames/gamesvc/internal/ws"
)

// Server bundles the orchestrator, AI advisor and broadcast hub behind the
// HTTP handlers.
type Server struct {
	Orch    *session.Orchestrator
	Advisor *ai.Advisor
	Hub     *ws.Hub
	Logger  *logrus.Logger

	// AuthRequired gates mutating endpoints behind the gateway's JWT.
	AuthRequired bool
}

func NewServer(orch *session.Orchestrator, advisor *ai.Advisor, hub *ws.Hub, logger *logrus.Logger) *Server {
	return &Server{Orch: orch, Advisor: advisor, Hub: hub, Logger: logger}
}

// Routes registers all endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/sessions/create", s.CreateSessionHandler)
	mux.HandleFunc("/sessions/move", s.ApplyMoveHandler)
	mux.HandleFunc("/sessions/abandon", s.AbandonSessionHandler)
	mux.HandleFunc("/sessions/history", s.MatchHistoryHandler)
	mux.HandleFunc("/sessions/", s.GetSessionHandler)
	mux.HandleFunc("/ai/move", s.AIMoveHandler)
	mux.HandleFunc("/ai/difficulty", s.AIDifficultyHandler)
	mux.HandleFunc("/games/ws/", s.GameWSHandler)
	mux.HandleFunc("/health", s.HealthHandler)
}

// HealthHandler reports liveness for the platform's probes.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate verifies the request's JWT when auth is enabled. Returns the
// player id from the token, or "" with no error when auth is disabled.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !s.AuthRequired {
		return "", true
	}
	token := auth.ExtractToken(r)
	if token == "" {
		http.Error(w, "Missing auth token", http.StatusUnauthorized)
		return "", false
	}
	playerID, err := auth.AuthenticateJWT(token)
	if err != nil {
		http.Error(w, "Invalid auth token", http.StatusUnauthorized)
		return "", false
	}
	return playerID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the domain failure taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ge *gameerr.Error
	status := http.StatusInternalServerError
	msg := "Internal server error"
	if errors.As(err, &ge) {
		msg = ge.Msg
		switch ge.Kind {
		case gameerr.KindValidation:
			status = http.StatusBadRequest
		case gameerr.KindNotFound:
			status = http.StatusNotFound
		case gameerr.KindStateConflict:
			status = http.StatusConflict
		}
	}
	if status == http.StatusInternalServerError {
		s.Logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// internal/handlers/session_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/ai"
	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/engine/connectfour"
	"github.com/lanegames/gamesvc/internal/session"
	"github.com/lanegames/gamesvc/internal/ws"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := engine.NewRegistry()
	registry.Register(connectfour.New)
	factory := engine.NewFactory(registry)

	orch := session.NewOrchestrator(factory, session.NewMemoryStore(), logger)
	advisor := ai.NewAdvisor(factory, nil)
	hub := ws.NewHub(logger)
	return NewServer(orch, advisor, hub, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func createSession(t *testing.T, srv *Server) session.Session {
	t.Helper()
	w := postJSON(t, srv.CreateSessionHandler, "/sessions/create",
		`{"game_type":"connect_four","player_ids":["a","b"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var s session.Session
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return s
}

func TestCreateSessionHandler(t *testing.T) {
	srv := newTestServer(t)
	s := createSession(t, srv)

	if s.SessionID == "" {
		t.Fatalf("session has no ID")
	}
	if s.Status != session.StatusActive {
		t.Fatalf("expected active session, got %s", s.Status)
	}
	if s.CurrentPlayerID != "a" {
		t.Fatalf("expected first player to start, got %s", s.CurrentPlayerID)
	}
}

func TestCreateSessionHandlerBadRequest(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.CreateSessionHandler, "/sessions/create", `{"game_type":"connect_four"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, srv.CreateSessionHandler, "/sessions/create", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestGetSessionHandler(t *testing.T) {
	srv := newTestServer(t)
	s := createSession(t, srv)

	req := httptest.NewRequest("GET", "/sessions/"+s.SessionID, nil)
	w := httptest.NewRecorder()
	srv.GetSessionHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/sessions/does-not-exist", nil)
	w = httptest.NewRecorder()
	srv.GetSessionHandler(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestApplyMoveHandler(t *testing.T) {
	srv := newTestServer(t)
	s := createSession(t, srv)

	w := postJSON(t, srv.ApplyMoveHandler, "/sessions/move",
		`{"session_id":"`+s.SessionID+`","player_id":"a","move_data":{"column":3}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var updated session.Session
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if updated.TotalMoves != 1 {
		t.Fatalf("expected 1 move, got %d", updated.TotalMoves)
	}
	if updated.CurrentPlayerID != "b" {
		t.Fatalf("expected turn to pass to b, got %s", updated.CurrentPlayerID)
	}

	// out of turn
	w = postJSON(t, srv.ApplyMoveHandler, "/sessions/move",
		`{"session_id":"`+s.SessionID+`","player_id":"a","move_data":{"column":3}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-turn move, got %d", w.Code)
	}
}

func TestAbandonSessionHandler(t *testing.T) {
	srv := newTestServer(t)
	s := createSession(t, srv)

	w := postJSON(t, srv.AbandonSessionHandler, "/sessions/abandon",
		`{"session_id":"`+s.SessionID+`","player_id":"a"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var out session.Session
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if out.Status != session.StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", out.Status)
	}
	if out.WinnerID != "b" {
		t.Fatalf("expected b to win by forfeit, got %q", out.WinnerID)
	}

	// abandoning again without force conflicts
	w = postJSON(t, srv.AbandonSessionHandler, "/sessions/abandon",
		`{"session_id":"`+s.SessionID+`","player_id":"b"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	// force tolerates the terminal state
	w = postJSON(t, srv.AbandonSessionHandler, "/sessions/abandon",
		`{"session_id":"`+s.SessionID+`","player_id":"b","force":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with force, got %d", w.Code)
	}
}

func TestMatchHistoryHandler(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv) // active session, should not appear

	req := httptest.NewRequest("GET", "/sessions/history?player_id=a", nil)
	w := httptest.NewRecorder()
	srv.MatchHistoryHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		PlayerID string            `json:"player_id"`
		Sessions []session.Session `json:"sessions"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("active sessions must not appear in history, got %d", resp.Count)
	}

	// missing player_id
	req = httptest.NewRequest("GET", "/sessions/history", nil)
	w = httptest.NewRecorder()
	srv.MatchHistoryHandler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuthRequiredRejectsAnonymous(t *testing.T) {
	srv := newTestServer(t)
	srv.AuthRequired = true

	w := postJSON(t, srv.CreateSessionHandler, "/sessions/create",
		`{"game_type":"connect_four","player_ids":["a","b"]}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

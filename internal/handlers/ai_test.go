// internal/handlers/ai_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/lanegames/gamesvc/internal/ai"
)

func TestAIMoveHandler(t *testing.T) {
	srv := newTestServer(t)
	s := createSession(t, srv)

	stateJSON, err := json.Marshal(s.GameState)
	if err != nil {
		t.Fatalf("failed to marshal state: %v", err)
	}
	body := `{"game_type":"connect_four","game_state":` + string(stateJSON) +
		`,"player_id":"a","iterations":50}`

	w := postJSON(t, srv.AIMoveHandler, "/ai/move", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var res ai.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if res.BestMove == nil {
		t.Fatalf("expected a best move on an open board")
	}
	if res.Visits != 50 {
		t.Fatalf("expected 50 visits, got %d", res.Visits)
	}
}

func TestAIMoveHandlerValidation(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.AIMoveHandler, "/ai/move", `{"player_id":"a"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", w.Code)
	}

	w = postJSON(t, srv.AIMoveHandler, "/ai/move",
		`{"game_type":"connect_four","game_state":{},"player_id":"a","difficulty":"impossible"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tier, got %d", w.Code)
	}
}

func TestAIDifficultyHandler(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.AIDifficultyHandler, "/ai/difficulty",
		`{"current_tier":"low","win_rate":0.8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var adj ai.Adjustment
	if err := json.Unmarshal(w.Body.Bytes(), &adj); err != nil {
		t.Fatalf("failed to decode adjustment: %v", err)
	}
	if adj.Recommended != ai.TierMedium {
		t.Fatalf("expected medium, got %s", adj.Recommended)
	}

	// at the top tier the recommendation stays put
	w = postJSON(t, srv.AIDifficultyHandler, "/ai/difficulty",
		`{"current_tier":"very_high","win_rate":0.9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &adj); err != nil {
		t.Fatalf("failed to decode adjustment: %v", err)
	}
	if adj.Recommended != ai.TierVeryHigh {
		t.Fatalf("expected very_high, got %s", adj.Recommended)
	}

	// missing win_rate
	w = postJSON(t, srv.AIDifficultyHandler, "/ai/difficulty", `{"current_tier":"low"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// out-of-range win_rate
	w = postJSON(t, srv.AIDifficultyHandler, "/ai/difficulty",
		`{"current_tier":"low","win_rate":1.5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

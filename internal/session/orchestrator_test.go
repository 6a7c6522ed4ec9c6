// internal/session/orchestrator_test.go
package session

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/engine/connectfour"
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	routingKey string
	body       map[string]interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, body: event})
	return nil
}

func (p *recordingPublisher) byKey(routingKey string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.routingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *recordingPublisher) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := engine.NewRegistry()
	registry.Register(connectfour.New)

	pub := &recordingPublisher{}
	orch := NewOrchestrator(engine.NewFactory(registry), NewMemoryStore(), logger, WithPublisher(pub))
	return orch, pub
}

func createConnectFour(t *testing.T, orch *Orchestrator) *Session {
	t.Helper()
	s, err := orch.CreateSession(context.Background(), CreateParams{
		GameType:  "connect_four",
		PlayerIDs: []string{"a", "b"},
	})
	require.NoError(t, err)
	return s
}

func TestCreateSessionDefaults(t *testing.T) {
	orch, pub := newTestOrchestrator(t)
	s := createConnectFour(t, orch)

	assert.NotEmpty(t, s.SessionID, "session id should be generated")
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "a", s.CurrentPlayerID, "starting player defaults to the first participant")
	assert.Equal(t, 0, s.TotalMoves)
	assert.NotNil(t, s.GameState)

	started := pub.byKey(RouteSessionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, s.SessionID, started[0].body["session_id"])
	assert.Equal(t, EventTypeSessionStarted, started[0].body["type"])
}

func TestCreateSessionValidation(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.CreateSession(context.Background(), CreateParams{GameType: "connect_four"})
	assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err))

	_, err = orch.CreateSession(context.Background(), CreateParams{PlayerIDs: []string{"a", "b"}})
	assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err))

	_, err = orch.CreateSession(context.Background(), CreateParams{
		GameType:  "quantum_chess",
		PlayerIDs: []string{"a", "b"},
	})
	assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err))
}

func TestCreateSessionIdempotent(t *testing.T) {
	orch, pub := newTestOrchestrator(t)

	params := CreateParams{
		SessionID: "fixed-id",
		GameType:  "connect_four",
		PlayerIDs: []string{"a", "b"},
	}
	first, err := orch.CreateSession(context.Background(), params)
	require.NoError(t, err)

	second, err := orch.CreateSession(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	assert.Len(t, pub.byKey(RouteSessionStarted), 1, "duplicate create must not publish a second event")
}

func TestApplyMoveAdvancesSession(t *testing.T) {
	orch, pub := newTestOrchestrator(t)
	s := createConnectFour(t, orch)

	ctx := context.Background()
	s2, err := orch.ApplyMove(ctx, s.SessionID, "a", engine.Document{"column": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, s2.TotalMoves)
	assert.Equal(t, "b", s2.CurrentPlayerID)
	assert.Equal(t, StatusActive, s2.Status)

	applied := pub.byKey(RouteMoveApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, EventTypeMoveApplied, applied[0].body["type"])
}

func TestApplyMoveWrongTurn(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	s := createConnectFour(t, orch)

	ctx := context.Background()
	_, err := orch.ApplyMove(ctx, s.SessionID, "b", engine.Document{"column": 0})
	assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err))

	// the rejected move must leave the session untouched
	reloaded, err := orch.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.TotalMoves)
	assert.Equal(t, "a", reloaded.CurrentPlayerID)
}

func TestApplyMoveUnknownSession(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	_, err := orch.ApplyMove(context.Background(), "nope", "a", engine.Document{"column": 0})
	assert.Equal(t, gameerr.KindNotFound, gameerr.KindOf(err))
}

func TestPlayToWin(t *testing.T) {
	orch, pub := newTestOrchestrator(t)
	s := createConnectFour(t, orch)
	ctx := context.Background()

	// a stacks column 3, b stacks column 6; a wins on move 7.
	moves := []struct {
		player string
		column int
	}{
		{"a", 3}, {"b", 6}, {"a", 3}, {"b", 6}, {"a", 3}, {"b", 6}, {"a", 3},
	}
	var final *Session
	for _, m := range moves {
		var err error
		final, err = orch.ApplyMove(ctx, s.SessionID, m.player, engine.Document{"column": m.column})
		require.NoError(t, err)
	}

	assert.Equal(t, StatusFinished, final.Status)
	assert.Equal(t, "a", final.WinnerID)
	assert.Equal(t, 7, final.TotalMoves)
	require.NotNil(t, final.EndedAt)

	ended := pub.byKey(RouteSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "a", ended[0].body["winner_id"])
	assert.Equal(t, EventTypeSessionEnded, ended[0].body["type"])

	// no further moves once finished
	_, err := orch.ApplyMove(ctx, s.SessionID, "b", engine.Document{"column": 0})
	assert.Equal(t, gameerr.KindStateConflict, gameerr.KindOf(err))
}

func TestAbandonSession(t *testing.T) {
	orch, pub := newTestOrchestrator(t)
	s := createConnectFour(t, orch)
	ctx := context.Background()

	out, err := orch.AbandonSession(ctx, s.SessionID, "a", false)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, out.Status)
	assert.Equal(t, "b", out.WinnerID, "the remaining player wins a two-player abandonment")
	require.NotNil(t, out.EndedAt)

	ended := pub.byKey(RouteSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "a", ended[0].body["abandoned_by"])
}

func TestAbandonByNonParticipant(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	s := createConnectFour(t, orch)

	_, err := orch.AbandonSession(context.Background(), s.SessionID, "z", false)
	assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err))
}

func TestAbandonTerminalSession(t *testing.T) {
	orch, pub := newTestOrchestrator(t)
	s := createConnectFour(t, orch)
	ctx := context.Background()

	_, err := orch.AbandonSession(ctx, s.SessionID, "a", false)
	require.NoError(t, err)

	// without force: conflict
	_, err = orch.AbandonSession(ctx, s.SessionID, "b", false)
	assert.Equal(t, gameerr.KindStateConflict, gameerr.KindOf(err))

	// with force: no-op returning the record, no extra event
	out, err := orch.AbandonSession(ctx, s.SessionID, "b", true)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, out.Status)
	assert.Len(t, pub.byKey(RouteSessionEnded), 1)
}

func TestMatchHistory(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	// one finished, one still active
	s1 := createConnectFour(t, orch)
	for _, m := range []struct {
		player string
		column int
	}{
		{"a", 3}, {"b", 6}, {"a", 3}, {"b", 6}, {"a", 3}, {"b", 6}, {"a", 3},
	} {
		_, err := orch.ApplyMove(ctx, s1.SessionID, m.player, engine.Document{"column": m.column})
		require.NoError(t, err)
	}
	createConnectFour(t, orch)

	history, err := orch.MatchHistory(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, history, 1, "only finished sessions appear in history")
	assert.Equal(t, s1.SessionID, history[0].SessionID)

	history, err = orch.MatchHistory(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExternalGameTypePassthrough(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry := engine.NewRegistry()
	orch := NewOrchestrator(engine.NewFactory(registry), NewMemoryStore(), logger,
		WithExternalTypes("poker"))

	s, err := orch.CreateSession(context.Background(), CreateParams{
		GameType:  "poker",
		PlayerIDs: []string{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "poker", s.GameState["game_type"])
}

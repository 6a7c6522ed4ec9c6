// internal/session/orchestrator.go
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// MoveRecord is the minimal move info handed to the offline move log.
type MoveRecord struct {
	SessionID string          `json:"session_id"`
	GameType  string          `json:"game_type"`
	PlayerID  string          `json:"player_id"`
	MoveIndex int             `json:"move_index"`
	MoveData  engine.Document `json:"move_data"`
	Timestamp int64           `json:"timestamp"`
}

// MoveLogger records accepted moves for the training/export pipeline.
// Failures are logged, never surfaced to the caller.
type MoveLogger interface {
	RecordMove(ctx context.Context, rec MoveRecord) error
}

// Orchestrator enforces the session state machine. It is the only writer of
// session records: it validates through the rule engine, persists through the
// store, and emits exactly one domain event per successful mutation.
type Orchestrator struct {
	factory   *engine.Factory
	store     Store
	publisher EventPublisher
	moveLog   MoveLogger
	logger    *logrus.Logger

	// externalTypes are game types whose rules run elsewhere; sessions for
	// them carry only a passthrough state document.
	externalTypes map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher attaches a best-effort event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithMoveLogger attaches a best-effort move log.
func WithMoveLogger(l MoveLogger) Option {
	return func(o *Orchestrator) { o.moveLog = l }
}

// WithExternalTypes marks game types as externally managed.
func WithExternalTypes(types ...string) Option {
	return func(o *Orchestrator) {
		for _, t := range types {
			o.externalTypes[t] = true
		}
	}
}

func NewOrchestrator(factory *engine.Factory, store Store, logger *logrus.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		factory:       factory,
		store:         store,
		logger:        logger,
		externalTypes: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateParams are the inputs for CreateSession. SessionID and LobbyID are
// optional; StartingPlayerID defaults to the first participant.
type CreateParams struct {
	SessionID        string
	GameID           string
	GameType         string
	LobbyID          string
	PlayerIDs        []string
	StartingPlayerID string
	Configuration    engine.Document
}

// CreateSession builds the initial state through the rule engine, persists
// the session, and publishes game.session.started. Creating twice with the
// same session id returns the existing record.
func (o *Orchestrator) CreateSession(ctx context.Context, p CreateParams) (*Session, error) {
	if len(p.PlayerIDs) == 0 {
		return nil, gameerr.Validation("player_ids must be non-empty")
	}
	if p.GameType == "" {
		return nil, gameerr.Validation("game_type is required")
	}
	if p.SessionID == "" {
		p.SessionID = uuid.NewString()
	}
	if p.StartingPlayerID == "" {
		p.StartingPlayerID = p.PlayerIDs[0]
	}

	if existing, err := o.store.FindByID(ctx, p.SessionID); err == nil {
		o.logger.WithField("session_id", p.SessionID).Info("Session already exists, returning existing record")
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, gameerr.Infrastructure(err, "look up session %s", p.SessionID)
	}

	var stateDoc engine.Document
	if o.externalTypes[p.GameType] {
		// Externally-managed rules: track participants and config only.
		stateDoc = engine.Document{
			"game_type":         p.GameType,
			"player_ids":        p.PlayerIDs,
			"current_player_id": p.StartingPlayerID,
			"configuration":     map[string]interface{}(p.Configuration),
		}
	} else {
		game, err := o.factory.Create(p.GameType)
		if err != nil {
			return nil, err
		}
		state, err := game.CreateInitialState(p.PlayerIDs, p.StartingPlayerID, p.Configuration)
		if err != nil {
			return nil, err
		}
		stateDoc = state.Document()
	}

	s := &Session{
		SessionID:       p.SessionID,
		GameID:          p.GameID,
		GameType:        p.GameType,
		LobbyID:         p.LobbyID,
		PlayerIDs:       append([]string(nil), p.PlayerIDs...),
		CurrentPlayerID: p.StartingPlayerID,
		Status:          StatusActive,
		GameState:       stateDoc,
		StartedAt:       time.Now().UTC(),
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, gameerr.Infrastructure(err, "save session %s", s.SessionID)
	}
	o.logger.WithFields(logrus.Fields{
		"session_id": s.SessionID,
		"game_type":  s.GameType,
	}).Info("Created game session")

	o.publish(ctx, RouteSessionStarted, SessionStartedEvent(s))
	return s, nil
}

// GetSession returns the session or a NotFound failure.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s, err := o.store.FindByID(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, gameerr.NotFound("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, gameerr.Infrastructure(err, "look up session %s", sessionID)
	}
	return s, nil
}

// ApplyMove validates the move through the rule engine and advances the
// session. Emits game.move.applied always and game.session.ended when the
// move finishes the game.
func (o *Orchestrator) ApplyMove(ctx context.Context, sessionID, playerID string, moveData engine.Document) (*Session, error) {
	s, err := o.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, gameerr.StateConflict("session %s is not active (status %s)", sessionID, s.Status)
	}
	if s.CurrentPlayerID != playerID {
		return nil, gameerr.Validation("it is not player %s's turn", playerID)
	}

	game, err := o.factory.Create(s.GameType)
	if err != nil {
		return nil, err
	}
	state, err := game.StateFromDocument(s.GameState)
	if err != nil {
		return nil, err
	}
	move, err := game.MoveFromDocument(moveData)
	if err != nil {
		return nil, err
	}
	newState, err := game.ApplyMove(state, move, playerID)
	if err != nil {
		return nil, err
	}

	s.GameState = newState.Document()
	s.TotalMoves++
	s.CurrentPlayerID = game.CurrentPlayerID(newState)

	status := game.Status(newState)
	if status.Terminal() {
		winnerID, _ := game.WinnerID(newState)
		s.Finish(winnerID)
	}

	if err := o.store.Save(ctx, s); err != nil {
		return nil, gameerr.Infrastructure(err, "save session %s", sessionID)
	}
	o.logger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"player_id":   playerID,
		"total_moves": s.TotalMoves,
		"finished":    status.Terminal(),
	}).Info("Applied move")

	o.recordMove(ctx, s, playerID, moveData)
	o.publish(ctx, RouteMoveApplied, MoveAppliedEvent(s, playerID, moveData))
	if status.Terminal() {
		o.publish(ctx, RouteSessionEnded, SessionEndedEvent(s, ""))
	}
	return s, nil
}

// AbandonSession marks an active session abandoned, awarding the win to the
// other participant in two-player games. With force set, abandoning an
// already-terminal session is a no-op returning the existing record.
func (o *Orchestrator) AbandonSession(ctx context.Context, sessionID, playerID string, force bool) (*Session, error) {
	s, err := o.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.HasPlayer(playerID) {
		return nil, gameerr.Validation("player %s is not in session %s", playerID, sessionID)
	}
	if !s.IsActive() {
		if !force {
			return nil, gameerr.StateConflict("session %s is not active (status %s)", sessionID, s.Status)
		}
		o.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"player_id":  playerID,
			"status":     s.Status,
		}).Info("Force abandon on terminal session, no state change")
		return s, nil
	}

	now := time.Now().UTC()
	s.Status = StatusAbandoned
	s.EndedAt = &now
	if len(s.PlayerIDs) == 2 {
		for _, id := range s.PlayerIDs {
			if id != playerID {
				s.WinnerID = id
				break
			}
		}
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, gameerr.Infrastructure(err, "save session %s", sessionID)
	}
	o.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"player_id":  playerID,
	}).Info("Abandoned session")

	o.publish(ctx, RouteSessionEnded, SessionEndedEvent(s, playerID))
	return s, nil
}

// MatchHistory returns finished sessions containing playerID, newest first.
func (o *Orchestrator) MatchHistory(ctx context.Context, playerID string, limit int) ([]*Session, error) {
	sessions, err := o.store.FindByPlayerID(ctx, playerID, limit, StatusFinished)
	if err != nil {
		return nil, gameerr.Infrastructure(err, "query match history for %s", playerID)
	}
	return sessions, nil
}

func (o *Orchestrator) publish(ctx context.Context, routingKey string, event map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, routingKey, event); err != nil {
		// The mutation is already committed; the store stays authoritative.
		o.logger.WithError(err).WithField("routing_key", routingKey).Error("Failed to publish event")
	}
}

func (o *Orchestrator) recordMove(ctx context.Context, s *Session, playerID string, moveData engine.Document) {
	if o.moveLog == nil {
		return
	}
	rec := MoveRecord{
		SessionID: s.SessionID,
		GameType:  s.GameType,
		PlayerID:  playerID,
		MoveIndex: s.TotalMoves,
		MoveData:  moveData,
		Timestamp: time.Now().Unix(),
	}
	if err := o.moveLog.RecordMove(ctx, rec); err != nil {
		o.logger.WithError(err).WithField("session_id", s.SessionID).Warn("Failed to record move to log queue")
	}
}

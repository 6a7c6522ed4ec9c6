// internal/messaging/session_consumer.go
package messaging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/gameerr"
	"github.com/lanegames/gamesvc/internal/session"
)

// sessionStartQueue doubles as the queue name; the routing key matches the
// lobby/matchmaking publisher's contract.
const sessionStartQueue = "game.session.start.requested"

// NewSessionConsumer builds the consumer that turns session-start requests
// into sessions. The orchestrator publishes game.session.started itself once
// the record is persisted.
func NewSessionConsumer(cfg Config, orch *session.Orchestrator, logger *logrus.Logger) *Consumer {
	spec := ConsumerSpec{
		Name:       "session-start",
		Queue:      sessionStartQueue,
		RoutingKey: session.RouteSessionStartRequested,
		DeadLetter: true,
		Handler:    sessionStartHandler(orch, logger),
	}
	return NewConsumer(cfg, spec, logger)
}

func sessionStartHandler(orch *session.Orchestrator, logger *logrus.Logger) Handler {
	return func(ctx context.Context, msg map[string]interface{}) error {
		params := session.CreateParams{
			SessionID:        msgString(msg, "session_id"),
			GameID:           msgString(msg, "game_id"),
			GameType:         msgString(msg, "game_type"),
			LobbyID:          msgString(msg, "lobby_id"),
			PlayerIDs:        msgStringSlice(msg, "player_ids"),
			StartingPlayerID: msgString(msg, "starting_player_id"),
		}
		if cfgDoc, ok := msg["configuration"].(map[string]interface{}); ok {
			params.Configuration = engine.Document(cfgDoc)
		}

		if params.SessionID == "" || params.GameType == "" || len(params.PlayerIDs) == 0 {
			logger.WithField("message", msg).Error("Invalid session start request: missing required fields")
			return nil // client error, don't requeue
		}

		s, err := orch.CreateSession(ctx, params)
		if err != nil {
			if gameerr.Retryable(err) {
				return err
			}
			logger.WithError(err).WithField("session_id", params.SessionID).
				Error("Rejected session start request")
			return nil
		}

		logger.WithFields(logrus.Fields{
			"session_id": s.SessionID,
			"game_type":  s.GameType,
		}).Info("Created session from start request")
		return nil
	}
}

func msgString(msg map[string]interface{}, key string) string {
	if v, ok := msg[key].(string); ok {
		return v
	}
	return ""
}

func msgStringSlice(msg map[string]interface{}, key string) []string {
	raw, ok := msg[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

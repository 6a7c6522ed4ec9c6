// internal/ws/bridge.go
package ws

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lanegames/gamesvc/internal/messaging"
	"github.com/lanegames/gamesvc/internal/session"
)

// Queue names are private to this service so the bridge never competes with
// the platform's own consumers for the same deliveries.
const (
	queueMoveApplied    = "game.websocket.move_applied"
	queueSessionStarted = "game.websocket.session_started"
	queueSessionEnded   = "game.websocket.session_ended"
)

// NewEventBridge builds the three consumers that relay lifecycle and move
// events into the hub. Each returned consumer owns its broker connection.
func NewEventBridge(cfg messaging.Config, hub *Hub, logger *logrus.Logger) []*messaging.Consumer {
	specs := []messaging.ConsumerSpec{
		{Name: "ws-move-applied", Queue: queueMoveApplied, RoutingKey: session.RouteMoveApplied},
		{Name: "ws-session-started", Queue: queueSessionStarted, RoutingKey: session.RouteSessionStarted},
		{Name: "ws-session-ended", Queue: queueSessionEnded, RoutingKey: session.RouteSessionEnded},
	}
	consumers := make([]*messaging.Consumer, 0, len(specs))
	for _, spec := range specs {
		spec.DeadLetter = true
		spec.Handler = relayHandler(hub, logger)
		consumers = append(consumers, messaging.NewConsumer(cfg, spec, logger))
	}
	return consumers
}

// relayHandler enqueues the event for the hub's drain loop. The consumer
// goroutine never performs the WebSocket sends itself.
func relayHandler(hub *Hub, logger *logrus.Logger) messaging.Handler {
	return func(ctx context.Context, event map[string]interface{}) error {
		sessionID := eventSessionID(event)
		if sessionID == "" {
			logger.WithField("event", event).Warn("Event without session_id, skipping broadcast")
			return nil
		}
		hub.Broadcast(sessionID, event)
		return nil
	}
}

// eventSessionID tolerates both snake_case and camelCase producers.
func eventSessionID(event map[string]interface{}) string {
	if v, ok := event["session_id"].(string); ok && v != "" {
		return v
	}
	if v, ok := event["sessionId"].(string); ok {
		return v
	}
	return ""
}

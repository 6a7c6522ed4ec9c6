// internal/ws/hub.go

// Package ws fans broker events out to WebSocket subscribers grouped by
// session id.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	handoffBuffer = 256
	writeTimeout  = 3 * time.Second
)

// Subscriber is one connected realtime client, pinned to a session.
type Subscriber struct {
	SessionID string
	conn      *websocket.Conn
}

func NewSubscriber(sessionID string, conn *websocket.Conn) *Subscriber {
	return &Subscriber{SessionID: sessionID, conn: conn}
}

func (s *Subscriber) send(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

type opKind int

const (
	opSubscribe opKind = iota
	opUnsubscribe
	opBroadcast
)

type command struct {
	op        opKind
	sub       *Subscriber
	sessionID string
	payload   []byte
}

// Hub owns the session_id -> subscriber-set map. The map is touched only by
// the drain goroutine, so it needs no lock; registration and broadcast both
// hand off through the bounded command channel. Consumer callbacks enqueue
// and return immediately, so a slow subscriber never blocks a broker
// connection's goroutine.
type Hub struct {
	commands chan command
	sessions map[string]map[*Subscriber]struct{}
	logger   *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		commands: make(chan command, handoffBuffer),
		sessions: make(map[string]map[*Subscriber]struct{}),
		logger:   logger,
	}
}

// Start launches the drain loop.
func (h *Hub) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.run(ctx)
}

// Stop shuts the drain loop down, waiting up to timeout.
func (h *Hub) Stop(timeout time.Duration) {
	if h.cancel == nil {
		return
	}
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(timeout):
		h.logger.Warn("Broadcast hub did not stop in time")
	}
}

// Connect registers sub with its session. Blocks only if the hub is badly
// backlogged.
func (h *Hub) Connect(sub *Subscriber) {
	h.commands <- command{op: opSubscribe, sub: sub}
}

// Disconnect removes sub; the session entry is dropped once empty.
func (h *Hub) Disconnect(sub *Subscriber) {
	h.commands <- command{op: opUnsubscribe, sub: sub}
}

// Broadcast serializes event once and queues it for every subscriber of
// sessionID. When the hand-off queue is full the event is dropped with a
// warning; the event stream is best-effort and the store stays
// authoritative.
func (h *Hub) Broadcast(sessionID string, event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal broadcast event")
		return
	}
	select {
	case h.commands <- command{op: opBroadcast, sessionID: sessionID, payload: data}:
	default:
		h.logger.WithField("session_id", sessionID).Warn("Broadcast queue full, dropping event")
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

func (h *Hub) handle(cmd command) {
	switch cmd.op {
	case opSubscribe:
		set, ok := h.sessions[cmd.sub.SessionID]
		if !ok {
			set = make(map[*Subscriber]struct{})
			h.sessions[cmd.sub.SessionID] = set
		}
		set[cmd.sub] = struct{}{}
		h.logger.WithFields(logrus.Fields{
			"session_id":  cmd.sub.SessionID,
			"subscribers": len(set),
		}).Info("WebSocket subscriber registered")

	case opUnsubscribe:
		h.remove(cmd.sub)

	case opBroadcast:
		set, ok := h.sessions[cmd.sessionID]
		if !ok {
			return
		}
		for sub := range set {
			if err := sub.send(cmd.payload); err != nil {
				// One dead subscriber never fails the whole broadcast.
				h.logger.WithError(err).WithField("session_id", cmd.sessionID).
					Warn("Subscriber send failed, removing")
				h.remove(sub)
			}
		}
	}
}

func (h *Hub) remove(sub *Subscriber) {
	set, ok := h.sessions[sub.SessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.sessions, sub.SessionID)
	}
	h.logger.WithFields(logrus.Fields{
		"session_id": sub.SessionID,
		"remaining":  len(set),
	}).Info("WebSocket subscriber removed")
}

// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/lanegames/gamesvc/internal/middleware"
	"github.com/lanegames/gamesvc/internal/ws"
)

// GameWSHandler upgrades GET /games/ws/{session_id} to a WebSocket and
// registers the connection for session event broadcasts. The connection is
// receive-only for game events; moves still go through the HTTP endpoints.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/games/ws/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Missing session_id in path (/games/ws/{session_id})", http.StatusBadRequest)
		return
	}

	// Verify the session exists before accepting the upgrade.
	if _, err := s.Orch.GetSession(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for session %s: %v", sessionID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	sub := ws.NewSubscriber(sessionID, c)
	s.Hub.Connect(sub)
	defer s.Hub.Disconnect(sub)

	err = s.readLoop(r.Context(), c)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop drains client frames to keep the connection alive and answers
// "ping" with "pong". Everything else is ignored.
func (s *Server) readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(data)) == "ping" {
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, []byte("pong"))
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

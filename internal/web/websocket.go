package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JonMunkholm/dataviz/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// wsEvent is one message pushed to the browser.
type wsEvent struct {
	Type     string        `json:"type"`
	Snapshot stateResponse `json:"snapshot"`
}

// handleWebsocket streams the session's snapshots until the client goes
// away. The current snapshot is sent first.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		logging.FromContext(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := logging.WithFields(r.Context(), slog.String("component", "websocket"))
	logger.Debug("websocket connected")
	connectedAt := time.Now()

	events, cancel := sess.Controller.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go s.readPump(conn, done, logger)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEvent{Type: "snapshot", Snapshot: newStateResponse(snap)}); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			// an open socket keeps the session alive
			s.service.Session(sess.ID)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Debug("websocket disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
			return
		}
	}
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection ends. Messages over the max message size
// terminate the connection.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}, logger *slog.Logger) {
	defer close(done)

	conn.SetReadLimit(s.cfg.Server.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("unexpected websocket close", "error", err)
			}
			return
		}
	}
}

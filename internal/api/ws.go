package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vytor/cfpractice/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWS streams the coordinator's timerTick and syncState broadcasts
// to a client. The coordinator never blocks on a slow reader; a client
// that falls behind just misses intermediate ticks.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade to websocket: %v", err)
		return
	}
	defer conn.Close()

	log.Info("state websocket connected")

	updates := s.Coordinator.Subscribe()
	defer s.Coordinator.Unsubscribe(updates)

	// Send the current state up front so the client does not wait for
	// the first tick.
	if snap, err := s.Coordinator.Snapshot(r.Context()); err == nil {
		_ = conn.WriteJSON(map[string]any{"command": "syncState", "payload": snap})
	}

	// Drain client frames so pings and close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Debug("state websocket closed by client")
			return
		case <-r.Context().Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(update); err != nil {
				log.Debug("state websocket write failed: %v", err)
				return
			}
		}
	}
}

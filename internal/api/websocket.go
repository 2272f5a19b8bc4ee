package api

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// upgrader accepts same-origin and cross-origin control-plane clients
// alike; Smelter's control API has no browser-facing session cookie to
// protect, unlike a typical site login flow.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wireEvent is the JSON shape pushed over GET /api/ws for one stats.Event.
type wireEvent struct {
	Kind      string `json:"kind"`
	InputId   string `json:"input_id,omitempty"`
	OutputId  string `json:"output_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp_ms"`
}

// handleWebsocket streams the event bus to one subscriber as JSON text
// frames until the connection closes (§6 "GET /api/ws (event stream)").
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.bus.Subscribe(64)
	defer unsubscribe()

	// Drain and discard control frames (ping/close) from the client so the
	// read side doesn't back up; this endpoint is write-only from the
	// server's perspective.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for e := range events {
		payload := wireEvent{
			Kind:      string(e.Kind),
			InputId:   e.InputId,
			OutputId:  e.OutputId,
			Message:   e.Message,
			Timestamp: e.Timestamp.UnixMilli(),
		}
		if e.Err != nil {
			payload.Error = e.Err.Error()
		}
		if err := conn.WriteJSON(payload); err != nil {
			return
		}
	}
}

package viewer

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/mapview/internal/viewport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string       `json:"type"` // "image_load" or "drag"
	Natural   viewport.Vec `json:"natural"`
	Container viewport.Vec `json:"container"`
	Offset    viewport.Vec `json:"offset"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type string `json:"type"` // "state" or "error"
	*frame
	Content string `json:"content,omitempty"`
}

// handleWebSocket mounts a session for the lifetime of the connection. Each
// connection is read by one goroutine, so its events are applied in order.
func (v *Viewer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.log.Error().Err(err).Msg("viewer websocket upgrade")
		return
	}
	defer conn.Close()

	s, err := v.sessions.Create()
	if err != nil {
		v.log.Error().Err(err).Msg("creating session")
		v.send(conn, wsResponse{Type: "error", Content: "failed to create session"})
		return
	}
	s.Attach()
	defer v.sessions.Close(s.ID)

	f := frameOf(s.Snapshot(), viewport.Vec{})
	if !v.send(conn, wsResponse{Type: "state", frame: &f}) {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.log.Warn().Err(err).Str("session", s.ID).Msg("viewer websocket read")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			v.send(conn, wsResponse{Type: "error", Content: "invalid message format"})
			continue
		}

		var out frame
		switch req.Type {
		case "image_load":
			out = frameOf(s.LoadImage(v.naturalOr(req.Natural), req.Container), viewport.Vec{})
		case "drag":
			delta, snap := s.Drag(req.Offset)
			out = frameOf(snap, delta)
		default:
			v.send(conn, wsResponse{Type: "error", Content: "unknown message type: " + req.Type})
			continue
		}
		if !v.send(conn, wsResponse{Type: "state", frame: &out}) {
			return
		}
	}
}

func (v *Viewer) send(conn *websocket.Conn, resp wsResponse) bool {
	if err := conn.WriteJSON(resp); err != nil {
		v.log.Warn().Err(err).Msg("viewer websocket write")
		return false
	}
	return true
}

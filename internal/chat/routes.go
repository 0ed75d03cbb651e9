package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type           string `json:"type"` // "message"
	ConversationID string `json:"conversation_id"`
	ViewerSession  string `json:"viewer_session,omitempty"`
	Content        string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type           string   `json:"type"` // "pending", "reply", "failed" or "error"
	ConversationID string   `json:"conversation_id,omitempty"`
	Message        *Message `json:"message,omitempty"`
	Content        string   `json:"content,omitempty"`
}

// RegisterRoutes mounts the chat websocket and transcript endpoints.
func RegisterRoutes(r chi.Router, svc *Service) {
	h := &handler{svc: svc}
	r.Get("/ws/chat", h.handleWebSocket)
	r.Get("/api/chat/{conversationID}/messages", h.handleMessages)
}

type handler struct {
	svc *Service
}

// wsConn serializes writes from the read loop and reply goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(resp wsResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(resp)
}

func (h *handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.svc.log.Error().Err(err).Msg("chat websocket upgrade")
		return
	}
	defer conn.Close()

	c := &wsConn{conn: conn}
	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.svc.log.Warn().Err(err).Msg("chat websocket read")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendError(c, "", "invalid message format")
			continue
		}
		if req.Type != "message" {
			h.sendError(c, req.ConversationID, "unknown message type: "+req.Type)
			continue
		}

		msg, err := h.svc.Submit(ctx, req.ConversationID, req.ViewerSession, req.Content)
		switch {
		case errors.Is(err, ErrEmptyInput):
			continue
		case errors.Is(err, ErrNotFound):
			h.sendError(c, req.ConversationID, "unknown conversation")
			continue
		case err != nil:
			h.svc.log.Error().Err(err).Msg("storing chat message")
			h.sendError(c, req.ConversationID, "failed to store message")
			continue
		}

		if err := c.send(wsResponse{Type: "pending", ConversationID: msg.ConversationID, Message: msg}); err != nil {
			return
		}

		wg.Add(1)
		go func(msg *Message) {
			defer wg.Done()
			reply, err := h.svc.Complete(ctx, msg)
			if err != nil {
				var upstream *UpstreamError
				if errors.As(err, &upstream) {
					_ = c.send(wsResponse{Type: "failed", ConversationID: msg.ConversationID, Message: msg, Content: upstream.Error()})
					return
				}
				h.svc.log.Error().Err(err).Msg("completing chat message")
				h.sendError(c, msg.ConversationID, "failed to complete message")
				return
			}
			_ = c.send(wsResponse{Type: "reply", ConversationID: msg.ConversationID, Message: reply})
		}(msg)
	}
}

func (h *handler) sendError(c *wsConn, conversationID, message string) {
	if err := c.send(wsResponse{Type: "error", ConversationID: conversationID, Content: message}); err != nil {
		h.svc.log.Warn().Err(err).Msg("chat websocket write")
	}
}

func (h *handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	ok, err := h.svc.store.ConversationExists(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	msgs, err := h.svc.store.Messages(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

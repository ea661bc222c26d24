package conversation

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	convmodel "github.com/zlau-dev/h2ogpt-bridge/internal/model/conversation"
)

// WebSocketHandler carries conversations over a websocket. Replies are sent
// as complete messages once the remote call finishes; there is no token
// streaming.
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the websocket transport on top of the regular
// handler's agent selection.
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes mounts the websocket route.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type           string `json:"type"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
	Language       string `json:"language"`
	AgentID        string `json:"agentId"`
}

type outgoingMessage struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversationId,omitempty"`
	Speech         string     `json:"speech,omitempty"`
	Error          *errorBody `json:"error,omitempty"`
	Timestamp      int64      `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read failed: %v", err)
			}
			return
		}

		out := h.dispatch(r, msg)
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("[ws] write failed: %v", err)
			return
		}
	}
}

func (h *WebSocketHandler) dispatch(r *http.Request, msg inboundMessage) outgoingMessage {
	now := time.Now().UnixMilli()

	if msg.Type != "utterance" {
		return outgoingMessage{
			Type:      "error",
			Error:     &errorBody{Code: "unsupported", Message: "unsupported message type"},
			Timestamp: now,
		}
	}
	if msg.Text == "" {
		return outgoingMessage{
			Type:      "error",
			Error:     &errorBody{Code: "invalid", Message: "text is required"},
			Timestamp: now,
		}
	}

	ag, ok := h.handler.selectAgent(msg.AgentID)
	if !ok {
		return outgoingMessage{
			Type:      "error",
			Error:     &errorBody{Code: "unavailable", Message: "no conversation agent is active"},
			Timestamp: now,
		}
	}

	result := ag.Process(r.Context(), convmodel.Input{
		ConversationID: msg.ConversationID,
		Text:           msg.Text,
		Language:       msg.Language,
	})

	out := outgoingMessage{
		Type:           "reply",
		ConversationID: result.ConversationID,
		Timestamp:      time.Now().UnixMilli(),
	}
	if result.Failed() {
		out.Error = &errorBody{Code: result.ErrorCode, Message: result.ErrorMessage}
	} else {
		out.Speech = result.Speech
	}
	return out
}

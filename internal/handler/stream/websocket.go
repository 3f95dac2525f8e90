package stream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gemini-chat/internal/middleware"
	chatService "github.com/zhouzirui/gemini-chat/internal/service/chat"
)

// WebSocketHandler runs chat turns over a websocket connection. Each inbound
// frame is one submission; replies use the same events as the SSE endpoint.
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(chatSvc *chatService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Message string `json:"message"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[ws] upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := middleware.SessionID(r.Context())
	log.Debug().Str("session", sessionID).Msg("[ws] connection opened")

	send := func(resp StreamResponse) error {
		return conn.WriteJSON(resp)
	}

	// The hijacked connection outlives r.Context(); a failed read is the
	// only disconnect signal, so it cancels the turn in flight.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("session", sessionID).Msg("[ws] read failed")
				}
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	turns := &Handler{chatSvc: h.chatSvc}
	for data := range frames {
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := send(StreamResponse{Event: "error", SessionID: sessionID, Error: "invalid message payload"}); err != nil {
				return
			}
			continue
		}

		if err := turns.runTurn(ctx, sessionID, msg.Message, send); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("[ws] turn failed")
		}
	}
}

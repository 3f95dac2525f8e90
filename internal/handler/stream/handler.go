package stream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gemini-chat/internal/middleware"
	chatService "github.com/zhouzirui/gemini-chat/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/pkg/utils"
)

// Handler streams chat replies to the browser as they arrive.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers the SSE and websocket endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleSSE)
}

// StreamResponse is one event of a streamed turn.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	sessionID := middleware.SessionID(r.Context())
	send := func(resp StreamResponse) error {
		return utils.SendSSEChunk(w, flusher, resp)
	}

	if err := h.runTurn(r.Context(), sessionID, message, send); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("[stream] turn failed")
	}
}

// runTurn drives one submission and reports it through send as start,
// delta*, message and end events, or a single error event on failure.
func (h *Handler) runTurn(ctx context.Context, sessionID, message string, send func(StreamResponse) error) error {
	if err := send(StreamResponse{Event: "start", SessionID: sessionID}); err != nil {
		return err
	}

	outcome, err := h.chatSvc.SubmitStream(ctx, sessionID, message, func(fragment string) error {
		return send(StreamResponse{Event: "delta", SessionID: sessionID, Content: fragment})
	})
	if err != nil {
		_ = send(StreamResponse{Event: "error", SessionID: sessionID, Error: fmt.Sprintf("AI generation failed: %v", err)})
		return err
	}

	if outcome.Submitted {
		if err := send(StreamResponse{Event: "message", SessionID: sessionID, Content: outcome.Reply}); err != nil {
			return err
		}
	}

	log.Debug().Str("session", sessionID).Bool("submitted", outcome.Submitted).Msg("[stream] completed response")
	return send(StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
}

package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gemini-chat/internal/middleware"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
	chatService "github.com/zhouzirui/gemini-chat/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/pkg/utils"
)

// Handler exposes the session transcript and submissions as JSON.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a chat API handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers the chat API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transcript", h.handleTranscript)
	r.Post("/messages", h.handleSubmit)
}

type transcriptResponse struct {
	SessionID string      `json:"sessionId"`
	Turns     []chat.Turn `json:"turns"`
}

type submitResponse struct {
	Submitted bool        `json:"submitted"`
	Reply     string      `json:"reply,omitempty"`
	Turns     []chat.Turn `json:"turns"`
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	turns, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, transcriptResponse{SessionID: sessionID, Turns: turns})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := middleware.SessionID(r.Context())
	outcome, err := h.chatSvc.Submit(r.Context(), sessionID, payload.Message)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("[api] submission failed")
		respondServiceError(w, err)
		return
	}

	turns, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, submitResponse{
		Submitted: outcome.Submitted,
		Reply:     outcome.Reply,
		Turns:     turns,
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusBadGateway, err.Error())
}

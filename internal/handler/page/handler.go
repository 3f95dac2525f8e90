package page

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gemini-chat/internal/middleware"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/internal/render"
	chatService "github.com/zhouzirui/gemini-chat/internal/service/chat"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Handler renders the server-side chat page of one variant.
type Handler struct {
	chatSvc *chatService.Service
	variant Variant
}

// New creates a page handler.
func New(chatSvc *chatService.Service, variant Variant) *Handler {
	return &Handler{chatSvc: chatSvc, variant: variant}
}

// RegisterRoutes registers the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/", h.handleSubmit)
}

type turnView struct {
	Speaker string
	IsUser  bool
	Text    string
	HTML    template.HTML
}

type pageData struct {
	Variant  Variant
	Turns    []turnView
	Pending  string
	HasReply bool
	Reply    template.HTML
	Error    string
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "invalid form submission"})
		return
	}

	sessionID := middleware.SessionID(r.Context())
	outcome, err := h.chatSvc.Submit(r.Context(), sessionID, r.PostForm.Get("message"))
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Str("variant", h.variant.Name).Msg("submission failed")
		h.render(w, r, http.StatusBadGateway, pageData{Error: err.Error()})
		return
	}

	data := pageData{}
	if outcome.Submitted {
		data.HasReply = true
		data.Reply = render.Markdown(outcome.Reply)
	}
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	sessionID := middleware.SessionID(r.Context())

	turns, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	pending, err := h.chatSvc.Pending(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data.Variant = h.variant
	data.Pending = pending
	data.Turns = make([]turnView, 0, len(turns))
	for _, turn := range turns {
		view := turnView{Speaker: string(turn.Speaker), IsUser: turn.Speaker == chat.User, Text: turn.Utterance}
		if !view.IsUser {
			view.HTML = render.Markdown(turn.Utterance)
		}
		data.Turns = append(data.Turns, view)
	}

	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, h.variant.Template, data); err != nil {
		log.Error().Err(err).Str("template", h.variant.Template).Msg("failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/gemini-chat/internal/handler/chat"
	"github.com/zhouzirui/gemini-chat/internal/handler/page"
	"github.com/zhouzirui/gemini-chat/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/gemini-chat/internal/middleware"
	chatService "github.com/zhouzirui/gemini-chat/internal/service/chat"
)

// NewRouter wires HTTP routes for one chat front-end variant.
func NewRouter(chatSvc *chatService.Service, variant page.Variant) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middlewarePkg.Session(chatSvc))

		page.New(chatSvc, variant).RegisterRoutes(r)
		stream.NewWebSocketHandler(chatSvc).RegisterRoutes(r)

		r.Route("/api", func(api chi.Router) {
			api.Use(middlewarePkg.CORS)

			chat.New(chatSvc).RegisterRoutes(api)
			stream.New(chatSvc).RegisterRoutes(api)
		})
	})

	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/nmhien/vietbistro/backend/internal/handler/chat"
	streamHandler "github.com/nmhien/vietbistro/backend/internal/handler/stream"
	wsHandler "github.com/nmhien/vietbistro/backend/internal/handler/ws"
	middlewarePkg "github.com/nmhien/vietbistro/backend/internal/middleware"
	"github.com/nmhien/vietbistro/backend/internal/service/assistant"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
	"github.com/nmhien/vietbistro/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(controller *assistant.Controller, store session.Store, dispatcher *stream.Dispatcher) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		chatHandler.New(controller).RegisterRoutes(api)
		streamHandler.New(store, dispatcher).RegisterRoutes(api)
		wsHandler.New(store, dispatcher).RegisterRoutes(api)
	})

	return r
}

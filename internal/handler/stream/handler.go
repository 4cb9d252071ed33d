package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
	"github.com/nmhien/vietbistro/backend/pkg/utils"
)

// heartbeatInterval keeps intermediaries from closing an idle SSE stream
// while a reply is being generated.
const heartbeatInterval = 8 * time.Second

// Handler bridges reply events onto Server-Sent Events for clients that
// cannot hold a websocket.
type Handler struct {
	store      session.Store
	dispatcher *stream.Dispatcher
}

// New creates the SSE handler.
func New(store session.Store, dispatcher *stream.Dispatcher) *Handler {
	return &Handler{store: store, dispatcher: dispatcher}
}

// RegisterRoutes mounts the SSE endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/{sessionID}/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.store.Get(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	sub := h.dispatcher.Subscribe(sessionID)
	defer sub.Close()

	log.Printf("[sse] opening stream session=%s", sessionID)
	defer log.Printf("[sse] closing stream session=%s", sessionID)

	utils.SendSSEEvent(w, flusher, "status", map[string]string{
		"sessionId": sessionID,
		"message":   "stream established",
	})

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			})
		case ev, open := <-sub.Events():
			if !open {
				utils.SendSSEEvent(w, flusher, "session_closed", map[string]string{
					"sessionId": sessionID,
				})
				return
			}
			utils.SendSSEEvent(w, flusher, "assistant_message", ev)
		}
	}
}

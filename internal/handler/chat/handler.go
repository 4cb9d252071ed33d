package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatModel "github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/service/assistant"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/pkg/utils"
)

// Handler exposes the conversation lifecycle over HTTP. The reply to a
// message is acknowledged here and delivered on the realtime channel.
type Handler struct {
	controller *assistant.Controller
}

// New creates the chat handler.
func New(controller *assistant.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes mounts the conversation endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/initialize", h.handleInitialize)
	r.Post("/chat/message", h.handleMessage)
	r.Get("/chat/{sessionID}", h.handleHistory)
	r.Put("/chat/{sessionID}/end", h.handleEnd)
}

type sessionResponse struct {
	Session  chatModel.Session   `json:"session"`
	Messages []chatModel.Message `json:"messages"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		VisitorID string `json:"visitorId"`
		UserID    string `json:"userId"`
	}

	// Every field is optional; a bare POST starts an anonymous session.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := session.Identity{UserID: payload.UserID, VisitorID: payload.VisitorID}
	sess, messages, err := h.controller.Initialize(r.Context(), identity, payload.SessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: sess, Messages: messages})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	ack, err := h.controller.HandleMessage(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, ack)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, messages, err := h.controller.History(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: sess, Messages: messages})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.controller.End(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrSessionClosed):
		utils.RespondError(w, http.StatusConflict, "session is closed")
	case errors.Is(err, chatModel.ErrEmptyContent), errors.Is(err, chatModel.ErrInvalidRole):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

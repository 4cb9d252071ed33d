package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
)

// Handler serves the realtime reply channel. A client connects, joins one
// session and then receives every reply event for it until the session ends
// or the socket drops.
type Handler struct {
	store      session.Store
	dispatcher *stream.Dispatcher
	upgrader   websocket.Upgrader
}

// New creates the websocket handler.
func New(store session.Store, dispatcher *stream.Dispatcher) *Handler {
	return &Handler{
		store:      store,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type outgoingMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId,omitempty"`
	Event     *stream.Event `json:"event,omitempty"`
	Data      interface{}   `json:"data,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// wsConn guards the connection's write side. The event loop and the ping
// loop both write; gorilla/websocket allows only one concurrent writer.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	raw.SetReadDeadline(time.Now().Add(60 * time.Second))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	sessionID, ok := h.awaitJoin(ctx, conn)
	if !ok {
		return
	}

	sub := h.dispatcher.Subscribe(sessionID)
	defer sub.Close()

	log.Printf("[websocket] listener joined session=%s listeners=%d", sessionID, h.dispatcher.ListenerCount(sessionID))

	h.send(conn, outgoingMessage{
		Type:      "joined",
		SessionID: sessionID,
		Timestamp: time.Now().Unix(),
	})

	// Drain the subscription until the session ends or the client leaves.
	// Further inbound frames only matter for read-deadline upkeep.
	go h.discardReads(cancel, conn)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				h.send(conn, outgoingMessage{
					Type:      "session_closed",
					SessionID: sessionID,
					Timestamp: time.Now().Unix(),
				})
				return
			}
			h.send(conn, outgoingMessage{
				Type:      "assistant_message",
				SessionID: sessionID,
				Event:     &ev,
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

// awaitJoin reads frames until a valid join arrives. The session must exist;
// terminal sessions are joinable so a client can render the final transcript
// notice.
func (h *Handler) awaitJoin(ctx context.Context, conn *wsConn) (string, bool) {
	for {
		select {
		case <-ctx.Done():
			return "", false
		default:
		}

		var msg inboundMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error before join: %v", err)
			}
			return "", false
		}
		conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if msg.Type != "join" {
			h.sendError(conn, "expected a join message first")
			continue
		}
		if msg.SessionID == "" {
			h.sendError(conn, "sessionId is required")
			continue
		}
		if _, err := h.store.Get(ctx, msg.SessionID); err != nil {
			h.sendError(conn, "session not found")
			continue
		}
		return msg.SessionID, true
	}
}

func (h *Handler) discardReads(cancel context.CancelFunc, conn *wsConn) {
	defer cancel()
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (h *Handler) send(conn *wsConn, msg outgoingMessage) {
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

func (h *Handler) sendError(conn *wsConn, message string) {
	h.send(conn, outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

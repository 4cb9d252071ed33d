package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed rejects writes to completed or abandoned sessions.
	ErrSessionClosed = errors.New("session is closed")
)

// Identity is the caller attached to a session. VisitorID is always present,
// UserID only when the visitor is authenticated.
type Identity struct {
	UserID    string
	VisitorID string
}

// Store is the durable record of conversations. Implementations must keep
// message order equal to append order per session.
type Store interface {
	Create(ctx context.Context, identity Identity) (chat.Session, error)
	Get(ctx context.Context, id string) (chat.Session, error)
	// Append persists a message on an active session and bumps lastActivity.
	Append(ctx context.Context, msg chat.Message) (chat.Message, error)
	// Update persists intent, collected data and linked ids.
	Update(ctx context.Context, session chat.Session) error
	// End moves the session to completed. Ending a terminal session fails.
	End(ctx context.Context, id string) (chat.Session, error)
	Transcript(ctx context.Context, id string) ([]chat.Message, error)
	// AbandonInactive marks active sessions idle since before cutoff as
	// abandoned and reports how many were swept.
	AbandonInactive(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore keeps sessions in process memory, suitable for development and
// tests. A restart loses history; production deployments use the redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewMemoryStore bootstraps the in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// Create provisions a new active session for the identity.
func (s *MemoryStore) Create(_ context.Context, identity Identity) (chat.Session, error) {
	now := time.Now().UTC()
	visitorID := identity.VisitorID
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	session := chat.Session{
		ID:           uuid.NewString(),
		VisitorID:    visitorID,
		UserID:       identity.UserID,
		Intent:       chat.IntentGeneral,
		Status:       chat.StatusActive,
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by identifier. The snapshot's collected data is a
// deep copy, so merging on it cannot touch committed state; changes only land
// through Update.
func (s *MemoryStore) Get(_ context.Context, id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	session.CollectedData = session.CollectedData.Clone()
	return session, nil
}

// Append adds a message to the session history.
func (s *MemoryStore) Append(_ context.Context, msg chat.Message) (chat.Message, error) {
	if msg.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[msg.SessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return chat.Message{}, ErrSessionClosed
	}

	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	session.LastActivity = msg.CreatedAt
	s.sessions[msg.SessionID] = session
	return msg, nil
}

// Update persists the session's mutable turn state.
func (s *MemoryStore) Update(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if stored.Status.Terminal() {
		return ErrSessionClosed
	}

	stored.Intent = session.Intent
	stored.CollectedData = session.CollectedData.Clone()
	stored.LinkedReservationID = session.LinkedReservationID
	stored.LinkedOrderID = session.LinkedOrderID
	stored.LastActivity = time.Now().UTC()
	s.sessions[session.ID] = stored
	return nil
}

// End moves the session to completed exactly once.
func (s *MemoryStore) End(_ context.Context, id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return chat.Session{}, ErrSessionClosed
	}

	session.Status = chat.StatusCompleted
	session.LastActivity = time.Now().UTC()
	s.sessions[id] = session
	session.CollectedData = session.CollectedData.Clone()
	return session, nil
}

// Transcript returns stored messages for the provided session.
func (s *MemoryStore) Transcript(_ context.Context, id string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// AbandonInactive sweeps active sessions with no activity since cutoff.
func (s *MemoryStore) AbandonInactive(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, session := range s.sessions {
		if session.Status != chat.StatusActive {
			continue
		}
		if session.LastActivity.Before(cutoff) {
			session.Status = chat.StatusAbandoned
			s.sessions[id] = session
			swept++
		}
	}
	return swept, nil
}

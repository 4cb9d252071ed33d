package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
)

const (
	sessionKeyPrefix = "chat:session:"
	messagesSuffix   = ":messages"
	sessionIndexKey  = "chat:sessions"
)

// RedisStore persists sessions as JSON documents plus a message list per
// session, so committed history survives a process restart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the redis session store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisStore connects a go-redis client and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string  { return sessionKeyPrefix + id }
func messagesKey(id string) string { return sessionKeyPrefix + id + messagesSuffix }

func (s *RedisStore) load(ctx context.Context, id string) (chat.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("load session: %w", err)
	}

	var session chat.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return chat.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) save(ctx context.Context, session chat.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Create provisions a new active session for the identity.
func (s *RedisStore) Create(ctx context.Context, identity Identity) (chat.Session, error) {
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

	if err := s.save(ctx, session); err != nil {
		return chat.Session{}, err
	}
	if err := s.client.SAdd(ctx, sessionIndexKey, session.ID).Err(); err != nil {
		return chat.Session{}, fmt.Errorf("index session: %w", err)
	}
	return session, nil
}

// Get retrieves a session by identifier.
func (s *RedisStore) Get(ctx context.Context, id string) (chat.Session, error) {
	return s.load(ctx, id)
}

// Append adds a message to the session's list and bumps lastActivity.
func (s *RedisStore) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	session, err := s.load(ctx, msg.SessionID)
	if err != nil {
		return chat.Message{}, err
	}
	if session.Status.Terminal() {
		return chat.Message{}, ErrSessionClosed
	}

	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode message: %w", err)
	}
	if err := s.client.RPush(ctx, messagesKey(msg.SessionID), raw).Err(); err != nil {
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}
	if s.ttl > 0 {
		s.client.Expire(ctx, messagesKey(msg.SessionID), s.ttl)
	}

	session.LastActivity = msg.CreatedAt
	if err := s.save(ctx, session); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// Update persists the session's mutable turn state.
func (s *RedisStore) Update(ctx context.Context, session chat.Session) error {
	stored, err := s.load(ctx, session.ID)
	if err != nil {
		return err
	}
	if stored.Status.Terminal() {
		return ErrSessionClosed
	}

	stored.Intent = session.Intent
	stored.CollectedData = session.CollectedData
	stored.LinkedReservationID = session.LinkedReservationID
	stored.LinkedOrderID = session.LinkedOrderID
	stored.LastActivity = time.Now().UTC()
	return s.save(ctx, stored)
}

// End moves the session to completed exactly once.
func (s *RedisStore) End(ctx context.Context, id string) (chat.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return chat.Session{}, err
	}
	if session.Status.Terminal() {
		return chat.Session{}, ErrSessionClosed
	}

	session.Status = chat.StatusCompleted
	session.LastActivity = time.Now().UTC()
	if err := s.save(ctx, session); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// Transcript returns stored messages for the provided session.
func (s *RedisStore) Transcript(ctx context.Context, id string) ([]chat.Message, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	raws, err := s.client.LRange(ctx, messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	messages := make([]chat.Message, 0, len(raws))
	for _, raw := range raws {
		var msg chat.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AbandonInactive sweeps active sessions with no activity since cutoff.
func (s *RedisStore) AbandonInactive(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	swept := 0
	for _, id := range ids {
		session, err := s.load(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			// Expired document, drop the index entry.
			s.client.SRem(ctx, sessionIndexKey, id)
			continue
		}
		if err != nil {
			return swept, err
		}
		if session.Status != chat.StatusActive || !session.LastActivity.Before(cutoff) {
			continue
		}
		session.Status = chat.StatusAbandoned
		if err := s.save(ctx, session); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

package chat

import (
	"errors"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var (
	ErrInvalidRole    = errors.New("invalid message role")
	ErrEmptyContent   = errors.New("message content is required")
	ErrMissingSession = errors.New("message session id is required")
)

// Message persists individual turns for audit/debug. Persistence order is the
// conversation order.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage validates the role enum and content before anything is stored.
func NewMessage(sessionID string, role Role, content string) (Message, error) {
	if sessionID == "" {
		return Message{}, ErrMissingSession
	}
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return Message{}, ErrInvalidRole
	}
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}, nil
}

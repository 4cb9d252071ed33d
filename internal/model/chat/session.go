package chat

import "time"

// Intent is the task category a conversation turn is currently serving.
type Intent string

const (
	IntentReservation    Intent = "reservation"
	IntentOrder          Intent = "order"
	IntentMenuInquiry    Intent = "menu_inquiry"
	IntentRestaurantInfo Intent = "restaurant_info"
	IntentGeneral        Intent = "general"
)

// ParseIntent maps a raw label to an Intent. Anything outside the known set
// is coerced to general so a misbehaving classifier can never invent states.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentReservation, IntentOrder, IntentMenuInquiry, IntentRestaurantInfo, IntentGeneral:
		return Intent(raw)
	default:
		return IntentGeneral
	}
}

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status accepts no further messages.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Session captures one continuous conversation between a visitor (identified
// or anonymous) and the assistant.
type Session struct {
	ID                  string        `json:"id"`
	VisitorID           string        `json:"visitorId"`
	UserID              string        `json:"userId,omitempty"`
	Intent              Intent        `json:"intent"`
	Status              Status        `json:"status"`
	CollectedData       CollectedData `json:"collectedData"`
	LinkedReservationID string        `json:"linkedReservationId,omitempty"`
	LinkedOrderID       string        `json:"linkedOrderId,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	LastActivity        time.Time     `json:"lastActivity"`
}

package stream

import (
	"log"
	"sync"
	"time"
	"unicode"
)

// EventType is the lifecycle phase of an in-flight reply.
type EventType string

const (
	EventThinking EventType = "thinking"
	EventTyping   EventType = "typing"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is what transport adapters deliver to listeners. Typing events carry
// the cumulative text so far, never a delta, so a late-joining listener can
// always render from the latest event alone.
type Event struct {
	Type       EventType `json:"type"`
	Content    string    `json:"content"`
	IsComplete bool      `json:"isComplete"`
}

const subscriberBuffer = 64

// Subscription is one listener on a session's channel.
type Subscription struct {
	dispatcher *Dispatcher
	sessionID  string
	events     chan Event
	closeOnce  sync.Once
}

// Events is the feed the transport adapter drains.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close removes the listener from the registry. Safe to call twice.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.dispatcher.remove(s)
		close(s.events)
	})
}

// Dispatcher owns the session-id to listeners registry and fans reply events
// out to every listener of a session. Publishing never blocks the turn
// pipeline: a listener that cannot keep up has events dropped.
type Dispatcher struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	chunkWords int
	chunkDelay time.Duration
}

// NewDispatcher configures reply pacing: a typing event is emitted after
// every chunkWords words with chunkDelay between emissions.
func NewDispatcher(chunkWords int, chunkDelay time.Duration) *Dispatcher {
	if chunkWords <= 0 {
		chunkWords = 3
	}
	return &Dispatcher{
		subs:       make(map[string]map[*Subscription]struct{}),
		chunkWords: chunkWords,
		chunkDelay: chunkDelay,
	}
}

// Subscribe registers a listener for the session's events.
func (d *Dispatcher) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		dispatcher: d,
		sessionID:  sessionID,
		events:     make(chan Event, subscriberBuffer),
	}

	d.mu.Lock()
	if d.subs[sessionID] == nil {
		d.subs[sessionID] = make(map[*Subscription]struct{})
	}
	d.subs[sessionID][sub] = struct{}{}
	d.mu.Unlock()

	return sub
}

func (d *Dispatcher) remove(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.subs[sub.sessionID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(d.subs, sub.sessionID)
	}
}

// ListenerCount reports how many listeners a session currently has.
func (d *Dispatcher) ListenerCount(sessionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[sessionID])
}

// CloseSession disconnects every listener, used when a session ends.
func (d *Dispatcher) CloseSession(sessionID string) {
	d.mu.Lock()
	set := d.subs[sessionID]
	delete(d.subs, sessionID)
	d.mu.Unlock()

	for sub := range set {
		sub.closeOnce.Do(func() { close(sub.events) })
	}
}

// Publish delivers an event to every current listener of the session.
func (d *Dispatcher) Publish(sessionID string, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for sub := range d.subs[sessionID] {
		select {
		case sub.events <- ev:
		default:
			log.Printf("[stream] dropping %s event for slow listener session=%s", ev.Type, sessionID)
		}
	}
}

// Thinking signals that a user message was received and a reply is on the
// way. Emitted before any model call resolves.
func (d *Dispatcher) Thinking(sessionID string) {
	d.Publish(sessionID, Event{Type: EventThinking})
}

// Error delivers a user-safe failure message. Raw provider detail never goes
// through here.
func (d *Dispatcher) Error(sessionID, message string) {
	d.Publish(sessionID, Event{Type: EventError, Content: message, IsComplete: true})
}

// StreamReply breaks a finished reply into cumulative typing chunks and
// finishes with exactly one complete event carrying the full text.
func (d *Dispatcher) StreamReply(sessionID, text string) {
	for _, cut := range cutPoints(text, d.chunkWords) {
		d.Publish(sessionID, Event{Type: EventTyping, Content: text[:cut]})
		if d.chunkDelay > 0 {
			time.Sleep(d.chunkDelay)
		}
	}
	d.Publish(sessionID, Event{Type: EventComplete, Content: text, IsComplete: true})
}

// cutPoints returns byte offsets after every `every` words, so each emitted
// chunk is an exact prefix of the final text regardless of whitespace.
func cutPoints(text string, every int) []int {
	var points []int
	inWord := false
	words := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				words++
				if words%every == 0 {
					points = append(points, i)
				}
			}
			continue
		}
		inWord = true
	}
	return points
}

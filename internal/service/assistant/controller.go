package assistant

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/service/ai"
	"github.com/nmhien/vietbistro/backend/internal/service/extract"
	"github.com/nmhien/vietbistro/backend/internal/service/intent"
	"github.com/nmhien/vietbistro/backend/internal/service/prompt"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
)

// Ack is the immediate HTTP answer to an inbound message. Reply is a
// placeholder; the authoritative content arrives on the realtime channel.
type Ack struct {
	SessionID string             `json:"sessionId"`
	Reply     string             `json:"reply"`
	Intent    chat.Intent        `json:"intent"`
	Data      chat.CollectedData `json:"data"`
}

// Controller orchestrates one turn per inbound message: classify, extract,
// compose, generate, persist, stream.
type Controller struct {
	store      session.Store
	classifier intent.Classifier
	extractor  *extract.Extractor
	composer   *prompt.Composer
	gateway    *ai.Gateway
	dispatcher *stream.Dispatcher

	// turnLocks serializes turn processing per session id. Turns across
	// different sessions run in parallel without limit.
	turnLocks sync.Map

	// wg tracks in-flight turns so tests and shutdown can wait for them.
	wg sync.WaitGroup
}

// New wires the turn pipeline.
func New(
	store session.Store,
	classifier intent.Classifier,
	extractor *extract.Extractor,
	composer *prompt.Composer,
	gateway *ai.Gateway,
	dispatcher *stream.Dispatcher,
) *Controller {
	return &Controller{
		store:      store,
		classifier: classifier,
		extractor:  extractor,
		composer:   composer,
		gateway:    gateway,
		dispatcher: dispatcher,
	}
}

// Initialize returns an existing active session when the caller presents its
// id, otherwise provisions a fresh one.
func (c *Controller) Initialize(ctx context.Context, identity session.Identity, existingID string) (chat.Session, []chat.Message, error) {
	if existingID != "" {
		sess, err := c.store.Get(ctx, existingID)
		if err == nil && !sess.Status.Terminal() {
			messages, err := c.store.Transcript(ctx, existingID)
			if err != nil {
				return chat.Session{}, nil, err
			}
			return sess, messages, nil
		}
	}

	sess, err := c.store.Create(ctx, identity)
	if err != nil {
		return chat.Session{}, nil, err
	}
	return sess, []chat.Message{}, nil
}

// History returns the full ordered transcript for a session.
func (c *Controller) History(ctx context.Context, sessionID string) (chat.Session, []chat.Message, error) {
	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return chat.Session{}, nil, err
	}
	messages, err := c.store.Transcript(ctx, sessionID)
	if err != nil {
		return chat.Session{}, nil, err
	}
	return sess, messages, nil
}

// End marks the session completed and disconnects its listeners.
func (c *Controller) End(ctx context.Context, sessionID string) (chat.Session, error) {
	sess, err := c.store.End(ctx, sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	c.dispatcher.CloseSession(sessionID)
	return sess, nil
}

// HandleMessage validates and persists the inbound message, classifies the
// intent, then schedules the reply asynchronously. It returns fast no matter
// how long generation takes.
func (c *Controller) HandleMessage(ctx context.Context, sessionID, text string) (Ack, error) {
	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return Ack{}, err
	}
	if sess.Status.Terminal() {
		return Ack{}, session.ErrSessionClosed
	}

	msg, err := chat.NewMessage(sessionID, chat.RoleUser, text)
	if err != nil {
		return Ack{}, err
	}
	if _, err := c.store.Append(ctx, msg); err != nil {
		return Ack{}, err
	}

	detected := c.classifier.Classify(text, sess.Intent, sess.CollectedData)
	if detected != sess.Intent {
		sess.Intent = detected
		if err := c.store.Update(ctx, sess); err != nil {
			log.Printf("[assistant] persist intent failed session=%s: %v", sessionID, err)
		}
	}

	c.dispatcher.Thinking(sessionID)

	c.wg.Add(1)
	go c.processTurn(sessionID, text, detected)

	return Ack{
		SessionID: sessionID,
		Reply:     placeholderReply,
		Intent:    detected,
		Data:      sess.CollectedData,
	}, nil
}

// Wait blocks until every scheduled turn has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) sessionLock(sessionID string) *sync.Mutex {
	mu, _ := c.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// processTurn runs the slow half of the pipeline: extract, compose, generate,
// persist the assistant message, stream. Exactly one assistant message closes
// the turn, whatever fails on the way.
func (c *Controller) processTurn(sessionID, userText string, intentKind chat.Intent) {
	defer c.wg.Done()

	mu := c.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[assistant] turn panic session=%s: %v", sessionID, r)
			c.finishTurn(context.Background(), sessionID, genericApology)
		}
	}()

	// The extraction and completion calls each run under the gateway budget;
	// the turn context caps the whole pipeline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*c.gateway.Timeout()+5*time.Second)
	defer cancel()

	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[assistant] session vanished mid-turn: %v", err)
		c.dispatcher.Error(sessionID, userSafeErrorText)
		return
	}

	if intentKind == chat.IntentReservation || intentKind == chat.IntentOrder {
		sess.CollectedData = c.extractor.Extract(ctx, userText, intentKind, sess.CollectedData)
		c.linkCompletedIntent(&sess)
		if err := c.store.Update(ctx, sess); err != nil {
			log.Printf("[assistant] persist collected data failed session=%s: %v", sessionID, err)
		}
	}

	systemPrompt := c.composer.Compose(intentKind, sess.CollectedData)
	history, err := c.store.Transcript(ctx, sessionID)
	if err != nil {
		log.Printf("[assistant] transcript load failed session=%s: %v", sessionID, err)
		c.finishTurn(ctx, sessionID, genericApology)
		return
	}

	reply, err := c.gateway.Complete(ctx, buildMessages(systemPrompt, history), nil)
	if err != nil {
		reply = c.resolveFailure(sessionID, intentKind, err)
	}

	c.finishTurn(ctx, sessionID, reply)
}

// finishTurn appends the assistant message (the history must never contain a
// gap) and streams it to the channel.
func (c *Controller) finishTurn(ctx context.Context, sessionID, reply string) {
	msg, err := chat.NewMessage(sessionID, chat.RoleAssistant, reply)
	if err == nil {
		if _, err := c.store.Append(ctx, msg); err != nil {
			log.Printf("[assistant] persist assistant message failed session=%s: %v", sessionID, err)
		}
	}
	c.dispatcher.StreamReply(sessionID, reply)
}

// resolveFailure applies the fallback policy: timeouts and provider failures
// resolve to the intent's canned text, a missing credential to a fixed
// apology. The error event fires only when no fallback exists.
func (c *Controller) resolveFailure(sessionID string, intentKind chat.Intent, err error) string {
	switch {
	case errors.Is(err, ai.ErrMisconfigured):
		return misconfiguredApology
	case errors.Is(err, ai.ErrTimeout), errors.Is(err, ai.ErrProvider):
		log.Printf("[assistant] completion failed session=%s: %v", sessionID, err)
		if text, ok := fallbackFor(intentKind); ok {
			return text
		}
		c.dispatcher.Error(sessionID, userSafeErrorText)
		return genericApology
	default:
		log.Printf("[assistant] unexpected turn failure session=%s: %v", sessionID, err)
		return genericApology
	}
}

// linkCompletedIntent mints the cross-reference id the first time an
// intent's required field set becomes complete.
func (c *Controller) linkCompletedIntent(sess *chat.Session) {
	switch {
	case sess.Intent == chat.IntentReservation &&
		sess.LinkedReservationID == "" &&
		sess.CollectedData.IntentComplete(chat.IntentReservation):
		sess.LinkedReservationID = uuid.NewString()
	case sess.Intent == chat.IntentOrder &&
		sess.LinkedOrderID == "" &&
		sess.CollectedData.IntentComplete(chat.IntentOrder):
		sess.LinkedOrderID = uuid.NewString()
	}
}

// buildMessages assembles system prompt plus replayed history. The inbound
// user message is already the transcript's last entry.
func buildMessages(systemPrompt string, history []chat.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return messages
}

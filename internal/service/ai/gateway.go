package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/schema"
)

var (
	// ErrMisconfigured means no provider credential was configured. Callers
	// substitute an apology string instead of attempting a network call.
	ErrMisconfigured = errors.New("llm provider not configured")
	// ErrTimeout means the completion budget elapsed before the provider
	// answered. Routine; callers apply their fallback policy.
	ErrTimeout = errors.New("llm provider timeout")
	// ErrProvider wraps transport/HTTP failures from the backend.
	ErrProvider = errors.New("llm provider failure")
)

// Gateway fronts one Provider with a per-call timeout budget and default
// sampling parameters. Whether a timeout turns into a canned fallback reply
// is the caller's decision, not the gateway's.
type Gateway struct {
	provider Provider
	defaults Params
	timeout  time.Duration
}

// NewGateway builds a gateway. A nil provider produces a gateway that fails
// every call with ErrMisconfigured, which keeps the orchestrator free of
// credential checks.
func NewGateway(provider Provider, defaults Params, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{provider: provider, defaults: defaults, timeout: timeout}
}

// Configured reports whether a provider is wired.
func (g *Gateway) Configured() bool {
	return g != nil && g.provider != nil
}

// Timeout returns the per-call budget.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Complete races the provider call against the timeout budget. The losing
// network call is cancelled best-effort; a late result is discarded, never
// delivered twice.
func (g *Gateway) Complete(ctx context.Context, messages []*schema.Message, overrides *Params) (string, error) {
	if !g.Configured() {
		return "", ErrMisconfigured
	}

	params := g.defaults.merged(overrides)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type completion struct {
		text string
		err  error
	}
	// Buffered so the goroutine can always exit, even after a timeout.
	results := make(chan completion, 1)
	go func() {
		text, err := g.provider.Complete(callCtx, messages, params)
		results <- completion{text: text, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrProvider, g.provider.Name(), res.err)
		}
		return res.text, nil
	case <-timer.C:
		log.Printf("[gateway] provider %s exceeded %s budget", g.provider.Name(), g.timeout)
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

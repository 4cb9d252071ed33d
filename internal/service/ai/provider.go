package ai

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Params are the sampling parameters for one completion. Nil fields mean
// "use the provider default"; the gateway merges caller overrides over its
// configured defaults, caller wins.
type Params struct {
	Temperature      *float32
	TopP             *float32
	MaxTokens        *int
	FrequencyPenalty *float32
	PresencePenalty  *float32
	// JSONResponse asks the provider for a structured-output reply where the
	// backend supports it.
	JSONResponse bool
}

func (p Params) merged(o *Params) Params {
	if o == nil {
		return p
	}
	if o.Temperature != nil {
		p.Temperature = o.Temperature
	}
	if o.TopP != nil {
		p.TopP = o.TopP
	}
	if o.MaxTokens != nil {
		p.MaxTokens = o.MaxTokens
	}
	if o.FrequencyPenalty != nil {
		p.FrequencyPenalty = o.FrequencyPenalty
	}
	if o.PresencePenalty != nil {
		p.PresencePenalty = o.PresencePenalty
	}
	if o.JSONResponse {
		p.JSONResponse = true
	}
	return p
}

// Float32 and Int build optional Params fields inline.
func Float32(v float32) *float32 { return &v }
func Int(v int) *int             { return &v }

// Provider is one external chat-completion backend. Implementations must
// honor ctx cancellation and return the first choice's text content.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []*schema.Message, params Params) (string, error)
}

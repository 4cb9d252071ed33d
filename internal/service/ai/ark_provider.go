package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkProvider adapts an eino chat model (Ark) to the Provider contract. It
// trims the conversation window before each call so long sessions degrade
// gracefully instead of blowing the context limit.
type ArkProvider struct {
	chatModel    model.ChatModel
	historyLimit int
}

// NewArkProvider wraps the chat model. historyLimit bounds how many
// non-system messages are replayed; zero or negative uses the default of 10.
func NewArkProvider(chatModel model.ChatModel, historyLimit int) *ArkProvider {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &ArkProvider{chatModel: chatModel, historyLimit: historyLimit}
}

// Name identifies the provider in logs and wrapped errors.
func (p *ArkProvider) Name() string { return "ark" }

// Complete runs one generation over the trimmed window.
func (p *ArkProvider) Complete(ctx context.Context, messages []*schema.Message, params Params) (string, error) {
	trimmed := trimWindow(messages, p.historyLimit)

	opts := make([]model.Option, 0, 3)
	if params.Temperature != nil {
		opts = append(opts, model.WithTemperature(*params.Temperature))
	}
	if params.TopP != nil {
		opts = append(opts, model.WithTopP(*params.TopP))
	}
	if params.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*params.MaxTokens))
	}

	response, err := p.chatModel.Generate(ctx, trimmed, opts...)
	if err != nil {
		return "", fmt.Errorf("ark generate: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("ark generate: empty response")
	}
	return response.Content, nil
}

// trimWindow keeps every system message and the most recent limit others,
// preserving order.
func trimWindow(messages []*schema.Message, limit int) []*schema.Message {
	others := 0
	for _, msg := range messages {
		if msg.Role != schema.System {
			others++
		}
	}
	if others <= limit {
		return messages
	}

	drop := others - limit
	out := make([]*schema.Message, 0, len(messages)-drop)
	for _, msg := range messages {
		if msg.Role != schema.System && drop > 0 {
			drop--
			continue
		}
		out = append(out, msg)
	}
	return out
}

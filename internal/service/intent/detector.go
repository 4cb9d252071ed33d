package intent

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
)

const detectorSystemPrompt = "Bạn là bộ phân loại ý định cho trợ lý nhà hàng. " +
	"Đọc tin nhắn của khách và trả về đúng MỘT nhãn trong số: " +
	"reservation, order, menu_inquiry, restaurant_info, general. " +
	"Không giải thích, không thêm bất kỳ chữ nào khác."

const detectorUserPrompt = "Tin nhắn của khách: {utterance}"

const detectorTimeout = 5 * time.Second

// Detector is the model-backed alternate classification policy. Anything the
// model returns outside the five labels is coerced to general, and any model
// failure falls back to the keyword table, so the contract stays total.
type Detector struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	fallback *KeywordClassifier
}

// NewDetector compiles the classification chain on the shared chat model.
func NewDetector(ctx context.Context, chatModel model.ChatModel) (*Detector, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(detectorSystemPrompt),
		schema.UserMessage(detectorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, err
	}

	return &Detector{chain: runnable, fallback: NewKeywordClassifier()}, nil
}

// Classify honors the same sticky required-field table as the keyword policy
// before consulting the model.
func (d *Detector) Classify(utterance string, current chat.Intent, data chat.CollectedData) chat.Intent {
	if sticky, ok := stickyIntent(current, data); ok {
		return sticky
	}

	ctx, cancel := context.WithTimeout(context.Background(), detectorTimeout)
	defer cancel()

	msg, err := d.chain.Invoke(ctx, map[string]any{"utterance": utterance})
	if err != nil {
		log.Printf("[intent] detector invoke failed, using keyword table: %v", err)
		return d.fallback.Classify(utterance, current, data)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return d.fallback.Classify(utterance, current, data)
	}

	return CoerceLabel(msg.Content)
}

// CoerceLabel normalizes a raw model label, mapping unknown output to
// general.
func CoerceLabel(raw string) chat.Intent {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.Trim(normalized, "\"'.`")
	return chat.ParseIntent(normalized)
}

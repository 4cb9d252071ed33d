package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/service/ai"
)

const extractorSystemPrompt = "Bạn là bộ trích xuất dữ liệu cho trợ lý nhà hàng. " +
	"Đọc tin nhắn của khách cùng dữ liệu đã biết và trả về MỘT đối tượng JSON " +
	"chỉ chứa các trường được yêu cầu. Bỏ qua trường khách chưa nhắc tới, " +
	"không bịa giá trị, không thêm văn bản ngoài JSON."

const reservationFieldSpec = "Các trường cần trích xuất: customerName (string), " +
	"phoneNumber (string), reservationDate (string, dạng YYYY-MM-DD), " +
	"reservationTime (string, dạng HH:MM), numberOfGuests (số nguyên), " +
	"specialRequests (string)."

const orderFieldSpec = "Các trường cần trích xuất: customerName (string), " +
	"phoneNumber (string), deliveryAddress (string), " +
	"items (mảng các {itemName, quantity}), paymentMethod (string), " +
	"specialInstructions (string)."

// Extractor merges newly stated fields into previously collected data for
// reservation/order intents. Extraction is strictly additive: a malformed
// model reply can never destroy fields that were already known.
type Extractor struct {
	gateway *ai.Gateway
}

// NewExtractor builds the extractor over the shared gateway so extraction
// calls inherit the timeout budget and credential handling.
func NewExtractor(gateway *ai.Gateway) *Extractor {
	return &Extractor{gateway: gateway}
}

// Extract runs one structured-output call and merges the result. Any failure
// (no credential, timeout, malformed JSON) returns the input unchanged.
func (e *Extractor) Extract(ctx context.Context, utterance string, intentKind chat.Intent, data chat.CollectedData) chat.CollectedData {
	var fieldSpec string
	switch intentKind {
	case chat.IntentReservation:
		fieldSpec = reservationFieldSpec
	case chat.IntentOrder:
		fieldSpec = orderFieldSpec
	default:
		return data
	}

	known, err := json.Marshal(data)
	if err != nil {
		return data
	}

	userPrompt := fmt.Sprintf(
		"%s\n\nDữ liệu đã biết (chỉ bổ sung hoặc sửa, không lặp lại nguyên xi):\n%s\n\nTin nhắn của khách:\n%s",
		fieldSpec, known, utterance,
	)

	messages := []*schema.Message{
		schema.SystemMessage(extractorSystemPrompt),
		schema.UserMessage(userPrompt),
	}

	overrides := &ai.Params{
		Temperature:  ai.Float32(0.0),
		JSONResponse: true,
	}

	reply, err := e.gateway.Complete(ctx, messages, overrides)
	if err != nil {
		log.Printf("[extract] completion failed, keeping prior data: %v", err)
		return data
	}

	return mergeReply(intentKind, data, reply)
}

func mergeReply(intentKind chat.Intent, data chat.CollectedData, reply string) chat.CollectedData {
	raw, err := extractJSONObject(reply)
	if err != nil {
		log.Printf("[extract] parse failed, keeping prior data: %v", err)
		return data
	}

	switch intentKind {
	case chat.IntentReservation:
		var fields chat.ReservationFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			log.Printf("[extract] reservation decode failed, keeping prior data: %v", err)
			return data
		}
		data.MergeReservation(fields)
	case chat.IntentOrder:
		var fields chat.OrderFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			log.Printf("[extract] order decode failed, keeping prior data: %v", err)
			return data
		}
		data.MergeOrder(fields)
	}
	return data
}

// extractJSONObject pulls the outermost JSON object out of a model reply
// that may wrap it in prose or code fences.
func extractJSONObject(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}
	return []byte(trimmed[start : end+1]), nil
}

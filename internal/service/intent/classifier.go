package intent

import (
	"strings"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
)

// Classifier decides which intent an inbound utterance serves, given the
// session's current intent and the data collected so far.
type Classifier interface {
	Classify(utterance string, current chat.Intent, data chat.CollectedData) chat.Intent
}

// keywordEntry pairs an intent with its trigger substrings. Table order is
// the tie-break: the first matching entry wins.
type keywordEntry struct {
	intent   chat.Intent
	keywords []string
}

// Keywords cover Vietnamese (with and without diacritics) and English
// synonyms. Matching is case-insensitive substring.
var keywordTable = []keywordEntry{
	{
		intent: chat.IntentReservation,
		keywords: []string{
			"đặt bàn", "dat ban", "đặt chỗ", "dat cho", "giữ bàn",
			"reservation", "reserve", "book a table", "booking",
		},
	},
	{
		intent: chat.IntentOrder,
		keywords: []string{
			"đặt món", "dat mon", "giao hàng", "giao hang", "giao tận nơi",
			"mang về", "mang ve", "ship", "order", "delivery", "take away",
		},
	},
	{
		intent: chat.IntentMenuInquiry,
		keywords: []string{
			"thực đơn", "thuc don", "món gì", "mon gi", "món nào", "giá bao nhiêu",
			"gia bao nhieu", "menu", "price", "dish", "what do you have",
		},
	},
	{
		intent: chat.IntentRestaurantInfo,
		keywords: []string{
			"địa chỉ", "dia chi", "ở đâu", "o dau", "giờ mở cửa", "gio mo cua",
			"mấy giờ", "số điện thoại", "so dien thoai", "liên hệ",
			"address", "where", "open", "hours", "phone", "contact",
		},
	},
}

// KeywordClassifier is the deterministic production policy: a sticky check
// against the in-progress intent, then an ordered keyword scan.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the keyword-table classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify applies the sticky rule first: while a multi-turn intent still has
// required fields missing, new keywords never switch the conversation away
// from it.
func (c *KeywordClassifier) Classify(utterance string, current chat.Intent, data chat.CollectedData) chat.Intent {
	if sticky, ok := stickyIntent(current, data); ok {
		return sticky
	}
	return scanKeywords(utterance)
}

func stickyIntent(current chat.Intent, data chat.CollectedData) (chat.Intent, bool) {
	switch current {
	case chat.IntentReservation, chat.IntentOrder:
		if !data.IntentComplete(current) {
			return current, true
		}
	}
	return chat.IntentGeneral, false
}

func scanKeywords(utterance string) chat.Intent {
	lowered := strings.ToLower(utterance)
	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry.intent
			}
		}
	}
	return chat.IntentGeneral
}

package prompt

import (
	"strings"
	"testing"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/model/restaurant"
)

func seededComposer() *Composer {
	info, tables, items := restaurant.Seed()
	return NewComposer(restaurant.NewMemoryStore(info, tables, items))
}

func TestComposeIncludesAvailableTablesOnly(t *testing.T) {
	got := seededComposer().Compose(chat.IntentReservation, chat.CollectedData{})

	if !strings.Contains(got, "Bàn 1") || !strings.Contains(got, "Bàn VIP") {
		t.Fatalf("available tables missing from prompt:\n%s", got)
	}
	// Bàn 2 is occupied, Bàn 4 reserved.
	if strings.Contains(got, "Bàn 2") || strings.Contains(got, "Bàn 4") {
		t.Fatalf("non-available table leaked into prompt:\n%s", got)
	}
}

func TestComposeCapsMenuItems(t *testing.T) {
	got := seededComposer().Compose(chat.IntentMenuInquiry, chat.CollectedData{})

	count := strings.Count(got, "  + ")
	if count != menuItemLimit {
		t.Fatalf("expected %d menu lines, got %d", menuItemLimit, count)
	}
	// Retired dish must never be offered.
	if strings.Contains(got, "Mì Quảng") {
		t.Fatalf("inactive item leaked into prompt:\n%s", got)
	}
}

func TestComposeIntentBlockFallsBackToBase(t *testing.T) {
	c := seededComposer()

	general := c.Compose(chat.IntentGeneral, chat.CollectedData{})
	reservation := c.Compose(chat.IntentReservation, chat.CollectedData{})

	if !strings.Contains(general, "trợ lý ảo của nhà hàng") {
		t.Fatalf("base persona missing:\n%s", general)
	}
	if strings.Contains(general, "đặt bàn. Thu thập") {
		t.Fatalf("general prompt carries reservation block:\n%s", general)
	}
	if !strings.Contains(reservation, "Thu thập đủ: tên khách") {
		t.Fatalf("reservation block missing:\n%s", reservation)
	}
}

func TestComposeDumpsCollectedData(t *testing.T) {
	data := chat.CollectedData{}
	data.MergeReservation(chat.ReservationFields{CustomerName: "Minh", NumberOfGuests: 4})

	got := seededComposer().Compose(chat.IntentReservation, data)
	if !strings.Contains(got, `"customerName":"Minh"`) {
		t.Fatalf("collected data not dumped:\n%s", got)
	}
	if !strings.Contains(got, "không hỏi lại") {
		t.Fatalf("collected-data preamble missing:\n%s", got)
	}
}

func TestComposeToleratesMissingStore(t *testing.T) {
	got := NewComposer(nil).Compose(chat.IntentRestaurantInfo, chat.CollectedData{})
	if !strings.Contains(got, "chưa tra cứu được") {
		t.Fatalf("placeholder missing for nil store:\n%s", got)
	}
}

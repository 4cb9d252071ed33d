package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/model/restaurant"
)

const menuItemLimit = 10

const basePersona = `Bạn là trợ lý ảo của nhà hàng, thân thiện và chu đáo. ` +
	`Trả lời ngắn gọn bằng tiếng Việt (hoặc tiếng Anh nếu khách dùng tiếng Anh), ` +
	`xưng "em", gọi khách là "anh/chị". Chỉ nói về nhà hàng, món ăn, đặt bàn và ` +
	`giao hàng; lịch sự từ chối các chủ đề khác.`

// intentInstructions holds the per-intent instruction block. Missing entries
// fall back to the base persona alone.
var intentInstructions = map[chat.Intent]string{
	chat.IntentReservation: `Khách đang muốn đặt bàn. Thu thập đủ: tên khách, ` +
		`ngày đặt, giờ đặt, số lượng khách; hỏi thêm số điện thoại và yêu cầu ` +
		`đặc biệt nếu tiện. Mỗi lượt chỉ hỏi những trường còn thiếu, đừng hỏi ` +
		`lại điều khách đã nói. Khi đủ thông tin, xác nhận lại toàn bộ và đề ` +
		`xuất bàn còn trống phù hợp số khách.`,
	chat.IntentOrder: `Khách đang muốn đặt món giao tận nơi. Thu thập đủ: danh ` +
		`sách món và số lượng, địa chỉ giao hàng, số điện thoại; hỏi thêm hình ` +
		`thức thanh toán và ghi chú nếu tiện. Chỉ nhận các món có trong thực ` +
		`đơn bên dưới. Khi đủ thông tin, đọc lại đơn hàng kèm tổng món để khách ` +
		`xác nhận.`,
	chat.IntentMenuInquiry: `Khách hỏi về thực đơn. Giới thiệu món dựa trên danh ` +
		`sách bên dưới kèm giá, gợi ý món phù hợp khẩu vị khách mô tả. Không ` +
		`bịa món không có trong danh sách.`,
	chat.IntentRestaurantInfo: `Khách hỏi thông tin nhà hàng. Trả lời dựa trên ` +
		`địa chỉ, số điện thoại và giờ mở cửa bên dưới.`,
}

const missingContextNote = "(Hiện chưa tra cứu được dữ liệu nhà hàng trực tiếp, " +
	"hãy trả lời chung và mời khách gọi điện để biết chi tiết.)"

// Composer builds the system prompt for a turn from the persona text, the
// intent instruction block, a live restaurant snapshot and the data already
// collected from the guest.
type Composer struct {
	live restaurant.Store
}

// NewComposer wires the read-only live-context store; nil is tolerated and
// rendered as a placeholder so composing never fails the turn.
func NewComposer(live restaurant.Store) *Composer {
	return &Composer{live: live}
}

// Compose concatenates the prompt sections for the given turn.
func (c *Composer) Compose(intentKind chat.Intent, data chat.CollectedData) string {
	var b strings.Builder
	b.WriteString(basePersona)

	if instruction, ok := intentInstructions[intentKind]; ok {
		b.WriteString("\n\n")
		b.WriteString(instruction)
	}

	b.WriteString("\n\nThông tin nhà hàng hiện tại:\n")
	b.WriteString(c.liveContext())

	if !data.IsEmpty() {
		if dump, err := json.Marshal(data); err == nil {
			b.WriteString("\n\nDữ liệu khách đã cung cấp (không hỏi lại các trường này):\n")
			b.Write(dump)
		}
	}

	return b.String()
}

func (c *Composer) liveContext() string {
	if c.live == nil {
		return missingContextNote
	}

	info, ok := c.live.Info()
	if !ok {
		return missingContextNote
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Nhà hàng: %s\n", info.Name)
	fmt.Fprintf(&b, "- Địa chỉ: %s\n", info.Address)
	fmt.Fprintf(&b, "- Điện thoại: %s\n", info.Phone)
	if info.OpeningHours != "" {
		fmt.Fprintf(&b, "- Giờ mở cửa: %s\n", info.OpeningHours)
	}

	tables := c.live.AvailableTables()
	if len(tables) == 0 {
		b.WriteString("- Hiện không còn bàn trống.\n")
	} else {
		b.WriteString("- Bàn còn trống: ")
		parts := make([]string, 0, len(tables))
		for _, tbl := range tables {
			parts = append(parts, fmt.Sprintf("%s (%d chỗ)", tbl.Name, tbl.Seats))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	items := c.live.RecentMenuItems(menuItemLimit)
	if len(items) == 0 {
		b.WriteString("- Thực đơn đang được cập nhật.")
	} else {
		b.WriteString("- Thực đơn nổi bật:\n")
		for _, item := range items {
			fmt.Fprintf(&b, "  + %s (%s): %dđ\n", item.Name, item.Category, item.Price)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

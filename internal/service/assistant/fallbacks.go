package assistant

import "github.com/nmhien/vietbistro/backend/internal/model/chat"

// Canned replies used when the model cannot answer in time. Every intent has
// one so a slow provider still closes the turn with something useful.
var fallbackByIntent = map[chat.Intent]string{
	chat.IntentReservation: "Dạ em xin lỗi, hệ thống đang hơi chậm. Anh/chị cứ cho em xin " +
		"tên, ngày giờ và số khách, em sẽ giữ bàn ngay khi nhận được ạ.",
	chat.IntentOrder: "Dạ em xin lỗi, hệ thống đang hơi chậm. Anh/chị cứ nhắn món muốn đặt, " +
		"địa chỉ và số điện thoại, em sẽ lên đơn ngay ạ.",
	chat.IntentMenuInquiry: "Dạ em chưa tải được thực đơn lúc này. Anh/chị có thể xem nhanh " +
		"các món phở, bún chả, gỏi cuốn của quán, hoặc thử lại sau ít phút ạ.",
	chat.IntentRestaurantInfo: "Dạ em chưa tra cứu được thông tin lúc này. Anh/chị gọi số " +
		"028 3822 9911 để được hỗ trợ ngay nhé ạ.",
	chat.IntentGeneral: "Dạ em xin lỗi, em chưa trả lời được ngay. Anh/chị nhắn lại giúp em " +
		"sau ít phút nhé ạ.",
}

// genericApology closes a turn when everything else failed. The guest must
// always get some assistant message.
const genericApology = "Dạ em xin lỗi, hiện em đang gặp trục trặc. Anh/chị vui lòng thử lại sau ạ."

// misconfiguredApology is returned without any network call when no provider
// credential is configured.
const misconfiguredApology = "Dạ em xin lỗi, trợ lý thông minh tạm thời chưa sẵn sàng. " +
	"Anh/chị gọi trực tiếp cho nhà hàng để được hỗ trợ nhanh nhất ạ."

// userSafeErrorText is the only failure detail ever shown on the channel.
const userSafeErrorText = "Có lỗi xảy ra khi soạn câu trả lời. Anh/chị vui lòng thử lại."

// placeholderReply is echoed on the HTTP ack while the real reply is being
// generated for the realtime channel.
const placeholderReply = "Em đang soạn câu trả lời, anh/chị chờ em chút nhé..."

func fallbackFor(intentKind chat.Intent) (string, bool) {
	text, ok := fallbackByIntent[intentKind]
	return text, ok
}

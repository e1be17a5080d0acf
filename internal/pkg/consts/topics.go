package consts

import "strconv"

// 客户端 -> 服务端
const (
	TopicConnect    = "chat.connect"
	TopicDisconnect = "chat.disconnect"
	TopicSend       = "chat.send"
	TopicTyping     = "chat.typing"
	TopicRead       = "chat.read"
	TopicDelete     = "chat.delete"
)

// 服务端 -> 客户端（会话级别订阅）
const (
	QueueMessages     = "/user/queue/messages"
	QueueTyping       = "/user/queue/typing"
	QueueReadReceipts = "/user/queue/read-receipts"
	QueueDeletions    = "/user/queue/deletions"
	TopicPresence     = "/topic/presence"
)

// ConversationScope 会话级订阅的作用域名
const ConversationScope = "conversation"

// ConversationReadTopic 某个会话的已读回执主题
func ConversationReadTopic(conversationID int64) string {
	return "/topic/conversation." + strconv.FormatInt(conversationID, 10) + ".read"
}

package dto

import "time"

// ConnectFrame chat.connect / chat.disconnect 负载
type ConnectFrame struct {
	UserID int64 `json:"userId"`
}

// TypingFrame chat.typing 负载，也是 typing 队列的推送格式
type TypingFrame struct {
	ConversationID int64 `json:"conversationId"`
	SenderID       int64 `json:"senderId"`
	RecipientID    int64 `json:"recipientId,omitempty"`
	IsTyping       bool  `json:"isTyping"`
}

// ReadFrame chat.read 负载，也是已读回执的推送格式
type ReadFrame struct {
	ConversationID    int64     `json:"conversationId"`
	ReaderID          int64     `json:"readerId"`
	LastReadMessageID int64     `json:"lastReadMessageId"`
	ReadAt            time.Time `json:"readAt"`
}

// DeleteFrame chat.delete 负载，也是删除队列的推送格式
type DeleteFrame struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
	RecipientID    int64 `json:"recipientId,omitempty"`
}

// PresenceFrame 在线状态推送
type PresenceFrame struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"` // ONLINE / OFFLINE
}

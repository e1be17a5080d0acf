package model

import "time"

// TypingIndicator 输入状态
type TypingIndicator struct {
	ConversationID int64 `json:"conversationId"`
	SenderID       int64 `json:"senderId"`
	IsTyping       bool  `json:"isTyping"`
}

// PresenceEvent 上下线事件
type PresenceEvent struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

// ReadReceipt 已读回执，LastReadMessageID 为 0 表示整个会话已读
type ReadReceipt struct {
	ConversationID    int64     `json:"conversationId"`
	ReaderID          int64     `json:"readerId"`
	LastReadMessageID int64     `json:"lastReadMessageId"`
	ReadAt            time.Time `json:"readAt"`
}

// DeleteNotification 消息删除通知
type DeleteNotification struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
}

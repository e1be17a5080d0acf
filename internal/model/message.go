package model

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeText         MessageType = "TEXT"
	MessageTypeImage        MessageType = "IMAGE"
	MessageTypeFile         MessageType = "FILE"
	MessageTypeSystem       MessageType = "SYSTEM"
	MessageTypeNotification MessageType = "NOTIFICATION"
)

// MessageStatus 消息投递状态
type MessageStatus string

const (
	StatusSending   MessageStatus = "SENDING"
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
	StatusFailed    MessageStatus = "FAILED"
)

var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Advance 返回状态推进后的结果，只进不退；FAILED 为终态且只能由 SENDING 进入
func (s MessageStatus) Advance(next MessageStatus) MessageStatus {
	if s == StatusFailed {
		return s
	}
	if next == StatusFailed {
		if s == StatusSending {
			return StatusFailed
		}
		return s
	}
	cur, ok := statusRank[s]
	if !ok {
		return next
	}
	if n, ok := statusRank[next]; ok && n > cur {
		return next
	}
	return s
}

// Sender 消息发送者快照
type Sender struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// ReplyPreview 被回复消息的快照
type ReplyPreview struct {
	MessageID  int64  `json:"messageId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

// Message 客户端消息实体，ID 为负数表示尚未被服务端确认的本地消息
type Message struct {
	ID             int64         `json:"id"`
	ConversationID int64         `json:"conversationId"`
	Sender         Sender        `json:"sender"`
	Content        string        `json:"content"`
	Type           MessageType   `json:"type"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	EditedAt       *time.Time    `json:"editedAt,omitempty"`
	IsEdited       bool          `json:"isEdited"`
	ReplyToID      int64         `json:"replyToId,omitempty"`
	ReplyTo        *ReplyPreview `json:"replyTo,omitempty"`
	ReadByUserIDs  []int64       `json:"readByUserIds,omitempty"`
}

// IsLocal 是否为本地乐观消息
func (m *Message) IsLocal() bool {
	return m.ID < 0
}

// ReadBy 判断是否已被某用户读取
func (m *Message) ReadBy(userID int64) bool {
	for _, id := range m.ReadByUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

package dto

import "time"

// Response 统一响应信封
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// PageDTO 分页响应
type PageDTO[T any] struct {
	Content    []T  `json:"content"`
	Number     int  `json:"number"`
	Size       int  `json:"size"`
	TotalPages int  `json:"totalPages"`
	Last       bool `json:"last"`
}

// SenderDTO 发送者信息
type SenderDTO struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// ReplyPreviewDTO 被回复消息预览
type ReplyPreviewDTO struct {
	MessageID  int64  `json:"messageId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

// MessageDTO 消息明细
type MessageDTO struct {
	ID             int64            `json:"id"`
	ConversationID int64            `json:"conversationId"`
	Sender         SenderDTO        `json:"sender"`
	Content        string           `json:"content"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	EditedAt       *time.Time       `json:"editedAt,omitempty"`
	IsEdited       bool             `json:"isEdited"`
	ReplyToID      int64            `json:"replyToId,omitempty"`
	ReplyTo        *ReplyPreviewDTO `json:"replyTo,omitempty"`
	ReadByUserIDs  []int64          `json:"readByUserIds,omitempty"`
}

// ParticipantDTO 会话参与者 / 可联系人
type ParticipantDTO struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
}

// ConversationDTO 会话列表项
type ConversationDTO struct {
	ID                 int64            `json:"id"`
	Participants       []ParticipantDTO `json:"participants"`
	LastMessageID      int64            `json:"lastMessageId"`
	LastMessagePreview string           `json:"lastMessagePreview"`
	LastMessageAt      time.Time        `json:"lastMessageAt"`
	LastMessageSender  string           `json:"lastMessageSender"`
	UnreadCount        int              `json:"unreadCount"`
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ConversationID int64  `json:"conversationId" validate:"gt=0"`
	RecipientID    int64  `json:"recipientId" validate:"gt=0"`
	Content        string `json:"content" validate:"required,max=4000"`
	Type           string `json:"type" validate:"required,oneof=TEXT IMAGE FILE SYSTEM NOTIFICATION"`
	ReplyToID      int64  `json:"replyToId,omitempty"`
}

// UpdateMessageReq 编辑消息请求体
type UpdateMessageReq struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// UnreadCountDTO 未读总数
type UnreadCountDTO struct {
	Count int `json:"count"`
}

// PresenceDTO 在线用户列表
type PresenceDTO struct {
	OnlineUserIDs []int64 `json:"onlineUserIds"`
}

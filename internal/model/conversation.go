package model

import "time"

// Participant 会话参与者 / 可发起会话的联系人
type Participant struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
}

// Conversation 会话，LastMessage* 字段始终与最新一条已知消息保持一致
type Conversation struct {
	ID                 int64         `json:"id"`
	Participants       []Participant `json:"participants"`
	LastMessageID      int64         `json:"lastMessageId"`
	LastMessagePreview string        `json:"lastMessagePreview"`
	LastMessageAt      time.Time     `json:"lastMessageAt"`
	LastMessageSender  string        `json:"lastMessageSender"`
	UnreadCount        int           `json:"unreadCount"`
}

// Counterpart 返回单聊中除当前用户外的另一方
func (c *Conversation) Counterpart(currentUserID int64) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != currentUserID {
			return p, true
		}
	}
	return Participant{}, false
}

// HasParticipant 会话是否包含某用户
func (c *Conversation) HasParticipant(userID int64) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Page 分页结果
type Page[T any] struct {
	Items []T
	Page  int
	Last  bool
}

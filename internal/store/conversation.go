package store

import (
	"ChatSync/internal/model"
	"slices"
)

// SetConnState 同步连接状态
func (s *Store) SetConnState(state string, connected bool) {
	s.update(func(next *State) bool {
		if next.ConnState == state && next.Connected == connected {
			return false
		}
		next.ConnState = state
		next.Connected = connected
		return true
	})
}

// SetLoading 全局加载标记
func (s *Store) SetLoading(loading bool) {
	s.update(func(next *State) bool {
		if next.Loading == loading {
			return false
		}
		next.Loading = loading
		return true
	})
}

// SetError 记录最近一次错误，新错误覆盖旧错误
func (s *Store) SetError(msg string) {
	s.update(func(next *State) bool {
		if next.LastError == msg {
			return false
		}
		next.LastError = msg
		return true
	})
}

// ClearError 清除错误
func (s *Store) ClearError() {
	s.SetError("")
}

// SetConversations 用服务端列表整体替换会话，未读总数按列表重新求和
func (s *Store) SetConversations(list []model.Conversation) {
	s.update(func(next *State) bool {
		convs := slices.Clone(list)
		slices.SortStableFunc(convs, func(a, b model.Conversation) int {
			return b.LastMessageAt.Compare(a.LastMessageAt)
		})
		total := 0
		for i := range convs {
			if convs[i].UnreadCount < 0 {
				convs[i].UnreadCount = 0
			}
			total += convs[i].UnreadCount
		}
		next.Conversations = convs
		next.TotalUnread = total
		return true
	})
}

// PrependConversation 新会话插到列表头部，已存在时原位替换
func (s *Store) PrependConversation(c model.Conversation) {
	s.update(func(next *State) bool {
		if i := next.conversationIndex(c.ID); i >= 0 {
			old := next.Conversations[i]
			next.addUnread(c.UnreadCount - old.UnreadCount)
			list := slices.Clone(next.Conversations)
			list[i] = c
			next.Conversations = list
			return true
		}
		list := make([]model.Conversation, 0, len(next.Conversations)+1)
		list = append(list, c)
		list = append(list, next.Conversations...)
		next.Conversations = list
		next.addUnread(c.UnreadCount)
		return true
	})
}

// SetParticipants 可联系人列表
func (s *Store) SetParticipants(list []model.Participant) {
	s.update(func(next *State) bool {
		next.Participants = slices.Clone(list)
		return true
	})
}

// SetUnreadTotal 以服务端未读总数为准，返回服务端总数与各会话未读之和的差值
func (s *Store) SetUnreadTotal(n int) (drift int) {
	s.update(func(next *State) bool {
		if n < 0 {
			n = 0
		}
		drift = n - next.UnreadSum()
		if next.TotalUnread == n {
			return false
		}
		next.TotalUnread = n
		return true
	})
	return drift
}

// SetActive 切换当前会话，返回之前的会话 ID
func (s *Store) SetActive(conversationID int64) (prev int64) {
	s.update(func(next *State) bool {
		prev = next.ActiveConversationID
		if prev == conversationID {
			return false
		}
		next.ActiveConversationID = conversationID
		return true
	})
	return prev
}

// SetVisible 设置聊天界面可见性，返回之前的值
func (s *Store) SetVisible(visible bool) (prev bool) {
	s.update(func(next *State) bool {
		prev = next.Visible
		if prev == visible {
			return false
		}
		next.Visible = visible
		return true
	})
	return prev
}

// MarkReadResult 标记已读的结果
type MarkReadResult struct {
	Delta             int
	LastReadMessageID int64
}

// MarkRead 清零会话未读，总数按差值调整，已发送的消息全部置为 READ
func (s *Store) MarkRead(conversationID int64) (res MarkReadResult, ok bool) {
	ok = s.update(func(next *State) bool {
		found := next.editConversation(conversationID, func(c *model.Conversation) {
			res.Delta = c.UnreadCount
			c.UnreadCount = 0
		})
		if !found {
			return false
		}
		next.addUnread(-res.Delta)

		list := slices.Clone(next.Messages[conversationID])
		for i := range list {
			switch list[i].Status {
			case model.StatusSent, model.StatusDelivered:
				list[i].Status = model.StatusRead
			}
			if list[i].ID > res.LastReadMessageID {
				res.LastReadMessageID = list[i].ID
			}
		}
		if len(list) > 0 {
			next.setMessages(conversationID, list)
		}
		return true
	})
	return res, ok
}

// RestoreUnread 回滚一次失败的标记已读
func (s *Store) RestoreUnread(conversationID int64, delta int) {
	if delta <= 0 {
		return
	}
	s.update(func(next *State) bool {
		if !next.editConversation(conversationID, func(c *model.Conversation) {
			c.UnreadCount += delta
		}) {
			return false
		}
		next.addUnread(delta)
		return true
	})
}

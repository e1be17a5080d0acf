package store

import (
	"ChatSync/internal/model"
	"slices"
	"time"
)

// Draft 待发送消息
type Draft struct {
	ConversationID int64
	Content        string
	Type           model.MessageType
	ReplyToID      int64
	ReplyTo        *model.ReplyPreview
}

// BeginSend 以负数临时 ID 和 SENDING 状态追加乐观消息，同时更新会话预览
func (s *Store) BeginSend(d Draft) model.Message {
	var msg model.Message
	s.update(func(next *State) bool {
		if d.Type == "" {
			d.Type = model.MessageTypeText
		}
		msg = model.Message{
			ID:             -s.tempID.Add(1),
			ConversationID: d.ConversationID,
			Sender:         model.Sender{ID: next.CurrentUserID},
			Content:        d.Content,
			Type:           d.Type,
			Status:         model.StatusSending,
			CreatedAt:      time.Now(),
			ReplyToID:      d.ReplyToID,
			ReplyTo:        d.ReplyTo,
		}
		list := append(slices.Clone(next.Messages[d.ConversationID]), msg)
		next.setMessages(d.ConversationID, sortByCreatedAt(list))
		next.editConversation(d.ConversationID, func(c *model.Conversation) {
			applyPreview(c, msg)
		})
		next.trackSend(msg.ID, pendingSend{conversationID: d.ConversationID})
		return true
	})
	return msg
}

// ConfirmResult 服务端确认的处理结果
type ConfirmResult int

const (
	ConfirmApplied   ConfirmResult = iota
	ConfirmCancelled               // 等待确认期间本地已删除该消息
	ConfirmStale                   // 临时 ID 不属于当前会话状态，例如 Reset 之后
)

// ConfirmSend 服务端确认后原位替换临时消息，并去掉经推送先到的同 ID 副本
// 只有仍在途的临时消息会被替换，其余情况不修改状态
func (s *Store) ConfirmSend(tempID int64, confirmed model.Message) ConfirmResult {
	res := ConfirmStale
	s.update(func(next *State) bool {
		p, ok := next.untrackSend(tempID)
		if !ok {
			return false
		}
		if p.cancelled {
			res = ConfirmCancelled
			return true
		}
		convID := p.conversationID
		if next.conversationIndex(convID) < 0 {
			return true
		}
		res = ConfirmApplied
		confirmed.ConversationID = convID
		list := slices.Clone(next.Messages[convID])
		i := indexOf(list, tempID)
		if i >= 0 {
			if dup := indexOf(list, confirmed.ID); dup >= 0 {
				confirmed.Status = list[dup].Status.Advance(confirmed.Status)
				list = slices.Delete(list, dup, dup+1)
				i = indexOf(list, tempID)
			}
			list[i] = confirmed
		} else if j := indexOf(list, confirmed.ID); j >= 0 {
			list[j].Status = list[j].Status.Advance(confirmed.Status)
		} else {
			list = append(list, confirmed)
		}
		next.setMessages(convID, sortByCreatedAt(list))
		next.editConversation(convID, func(c *model.Conversation) {
			if c.LastMessageID == tempID || !confirmed.CreatedAt.Before(c.LastMessageAt) {
				applyPreview(c, confirmed)
			}
		})
		return true
	})
	return res
}

// FailSend 发送失败，保留消息并标记 FAILED
func (s *Store) FailSend(tempID int64) bool {
	return s.update(func(next *State) bool {
		if p, ok := next.untrackSend(tempID); !ok || p.cancelled {
			return ok
		}
		convID, i := locate(next, tempID)
		if i < 0 {
			return true
		}
		list := slices.Clone(next.Messages[convID])
		list[i].Status = list[i].Status.Advance(model.StatusFailed)
		next.setMessages(convID, list)
		return true
	})
}

// RetrySend 将 FAILED 的本地消息重新置为 SENDING
func (s *Store) RetrySend(tempID int64) (model.Message, bool) {
	var msg model.Message
	ok := s.update(func(next *State) bool {
		convID, i := locate(next, tempID)
		if i < 0 || next.Messages[convID][i].Status != model.StatusFailed {
			return false
		}
		list := slices.Clone(next.Messages[convID])
		list[i].Status = model.StatusSending
		msg = list[i]
		next.setMessages(convID, list)
		next.trackSend(tempID, pendingSend{conversationID: convID})
		return true
	})
	return msg, ok
}

// ReceiveResult 入站消息合并结果
type ReceiveResult struct {
	Tracked    bool
	Duplicate  bool
	MarkedRead bool
}

// ReceiveMessage 按 ID 幂等合并入站消息，未跟踪的会话直接忽略
// 当前会话且界面可见时消息直接置为已读，否则计入未读
func (s *Store) ReceiveMessage(msg model.Message) ReceiveResult {
	var res ReceiveResult
	s.update(func(next *State) bool {
		convID := msg.ConversationID
		if next.conversationIndex(convID) < 0 {
			return false
		}
		res.Tracked = true
		list := slices.Clone(next.Messages[convID])
		if i := indexOf(list, msg.ID); i >= 0 {
			res.Duplicate = true
			list[i].Status = list[i].Status.Advance(msg.Status)
			next.setMessages(convID, list)
			return true
		}

		incoming := msg.Sender.ID != next.CurrentUserID
		if incoming && next.ActiveConversationID == convID && next.Visible {
			msg.Status = msg.Status.Advance(model.StatusRead)
			res.MarkedRead = true
		}
		list = append(list, msg)
		next.setMessages(convID, sortByCreatedAt(list))
		next.editConversation(convID, func(c *model.Conversation) {
			if !msg.CreatedAt.Before(c.LastMessageAt) {
				applyPreview(c, msg)
			}
			if incoming && !res.MarkedRead {
				c.UnreadCount++
			}
		})
		if incoming && !res.MarkedRead {
			next.addUnread(1)
		}
		return true
	})
	return res
}

// MergePage 合并一页历史
// 第 0 页整体替换，保留本地消息以及比该页最新一条更晚的消息（请求期间到达的推送或确认）；其他页按 ID 去重后合并
func (s *Store) MergePage(conversationID int64, page model.Page[model.Message]) {
	s.update(func(next *State) bool {
		var list []model.Message
		existing := next.Messages[conversationID]
		if page.Page == 0 {
			list = make([]model.Message, 0, len(page.Items)+1)
			var newest time.Time
			for _, m := range page.Items {
				if i := indexOf(list, m.ID); i >= 0 {
					continue
				}
				if m.CreatedAt.After(newest) {
					newest = m.CreatedAt
				}
				list = append(list, m)
			}
			for _, m := range existing {
				if i := indexOf(list, m.ID); i >= 0 {
					list[i].Status = m.Status.Advance(list[i].Status)
					continue
				}
				if m.IsLocal() || m.CreatedAt.After(newest) {
					list = append(list, m)
				}
			}
		} else {
			list = slices.Clone(existing)
			for _, m := range page.Items {
				if i := indexOf(list, m.ID); i >= 0 {
					list[i].Status = list[i].Status.Advance(m.Status)
					continue
				}
				list = append(list, m)
			}
		}
		list = sortByCreatedAt(list)
		next.setMessages(conversationID, list)
		next.setCursor(conversationID, Cursor{Page: page.Page, HasMore: !page.Last})
		if n := len(list); n > 0 {
			refreshPreview(next, conversationID, list[n-1])
		}
		return true
	})
}

// BeginPageLoad 取得下一页页号，无更多数据或已有加载进行中时返回 false
func (s *Store) BeginPageLoad(conversationID int64) (page int, ok bool) {
	ok = s.update(func(next *State) bool {
		c := next.CursorOf(conversationID)
		if c.Loading || !c.HasMore {
			return false
		}
		page = c.Page + 1
		c.Loading = true
		next.setCursor(conversationID, c)
		return true
	})
	return page, ok
}

// EndPageLoad 加载失败时释放游标
func (s *Store) EndPageLoad(conversationID int64) {
	s.update(func(next *State) bool {
		c := next.CursorOf(conversationID)
		if !c.Loading {
			return false
		}
		c.Loading = false
		next.setCursor(conversationID, c)
		return true
	})
}

// ApplyEdit 更新内容并标记已编辑
func (s *Store) ApplyEdit(edited model.Message) bool {
	return s.update(func(next *State) bool {
		convID, i := locate(next, edited.ID)
		if i < 0 {
			return false
		}
		list := slices.Clone(next.Messages[convID])
		m := &list[i]
		m.Content = edited.Content
		m.IsEdited = true
		if edited.EditedAt != nil {
			m.EditedAt = edited.EditedAt
		} else {
			now := time.Now()
			m.EditedAt = &now
		}
		next.setMessages(convID, list)
		next.editConversation(convID, func(c *model.Conversation) {
			if c.LastMessageID == m.ID {
				c.LastMessagePreview = m.Content
			}
		})
		return true
	})
}

// RemoveMessage 删除消息，不保留墓碑
func (s *Store) RemoveMessage(id int64) (model.Message, bool) {
	var removed model.Message
	ok := s.update(func(next *State) bool {
		convID, i := locate(next, id)
		if i < 0 {
			return false
		}
		list := slices.Clone(next.Messages[convID])
		removed = list[i]
		list = slices.Delete(list, i, i+1)
		if p, ok := next.pendingSends[id]; ok {
			p.cancelled = true
			next.trackSend(id, p)
		}
		next.setMessages(convID, list)
		next.editConversation(convID, func(c *model.Conversation) {
			if c.LastMessageID != id {
				return
			}
			if n := len(list); n > 0 {
				applyPreview(c, list[n-1])
				return
			}
			c.LastMessageID = 0
			c.LastMessagePreview = ""
			c.LastMessageSender = ""
		})
		return true
	})
	return removed, ok
}

// ApplyReadReceipt 对方已读后推进自己发出消息的状态，返回被更新的条数
func (s *Store) ApplyReadReceipt(r model.ReadReceipt) int {
	changed := 0
	s.update(func(next *State) bool {
		if r.ReaderID == next.CurrentUserID {
			return false
		}
		list := slices.Clone(next.Messages[r.ConversationID])
		for i := range list {
			m := &list[i]
			if m.Sender.ID != next.CurrentUserID || m.IsLocal() {
				continue
			}
			if r.LastReadMessageID > 0 && m.ID > r.LastReadMessageID {
				continue
			}
			if m.Status == model.StatusRead && m.ReadBy(r.ReaderID) {
				continue
			}
			m.Status = m.Status.Advance(model.StatusRead)
			if !m.ReadBy(r.ReaderID) {
				m.ReadByUserIDs = append(slices.Clone(m.ReadByUserIDs), r.ReaderID)
			}
			changed++
		}
		if changed == 0 {
			return false
		}
		next.setMessages(r.ConversationID, list)
		return true
	})
	return changed
}

func indexOf(list []model.Message, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func locate(st *State, id int64) (int64, int) {
	for convID, list := range st.Messages {
		if i := indexOf(list, id); i >= 0 {
			return convID, i
		}
	}
	return 0, -1
}

func sortByCreatedAt(list []model.Message) []model.Message {
	slices.SortStableFunc(list, func(a, b model.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return list
}

func applyPreview(c *model.Conversation, m model.Message) {
	c.LastMessageID = m.ID
	c.LastMessagePreview = m.Content
	c.LastMessageAt = m.CreatedAt
	c.LastMessageSender = m.Sender.DisplayName
}

// refreshPreview 仅当消息不早于当前预览时覆盖
func refreshPreview(st *State, conversationID int64, m model.Message) {
	st.editConversation(conversationID, func(c *model.Conversation) {
		if c.LastMessageID == m.ID || !m.CreatedAt.Before(c.LastMessageAt) {
			applyPreview(c, m)
		}
	})
}

package store

import (
	"ChatSync/internal/model"
)

// Cursor 会话历史分页游标
type Cursor struct {
	Page    int // 最近一次成功加载的页号，-1 表示尚未加载
	HasMore bool
	Loading bool
}

var emptyCursor = Cursor{Page: -1, HasMore: true}

// State 引擎状态快照
// 快照发布后不再被修改，消费者只读
type State struct {
	CurrentUserID        int64
	ActiveConversationID int64
	Visible              bool
	Connected            bool
	ConnState            string
	Loading              bool
	Sending              bool
	LastError            string
	TotalUnread          int
	Conversations        []model.Conversation
	Messages             map[int64][]model.Message
	Cursors              map[int64]Cursor
	Participants         []model.Participant

	pendingSends map[int64]pendingSend // 按临时 ID 索引，Reset 后随快照一起清空
}

type pendingSend struct {
	conversationID int64
	cancelled      bool // 等待确认期间已在本地删除
}

func newState(userID int64) *State {
	return &State{
		CurrentUserID: userID,
		ConnState:     "disconnected",
		Messages:      map[int64][]model.Message{},
		Cursors:       map[int64]Cursor{},
	}
}

// Conversation 按 ID 查找会话
func (s *State) Conversation(id int64) (model.Conversation, bool) {
	if i := s.conversationIndex(id); i >= 0 {
		return s.Conversations[i], true
	}
	return model.Conversation{}, false
}

// ConversationWith 查找与某用户的会话
func (s *State) ConversationWith(userID int64) (model.Conversation, bool) {
	for _, c := range s.Conversations {
		if userID != s.CurrentUserID && c.HasParticipant(userID) {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// MessagesOf 会话消息列表，按 createdAt 升序
func (s *State) MessagesOf(conversationID int64) []model.Message {
	return s.Messages[conversationID]
}

// CursorOf 会话分页游标
func (s *State) CursorOf(conversationID int64) Cursor {
	if c, ok := s.Cursors[conversationID]; ok {
		return c
	}
	return emptyCursor
}

// FindMessage 在所有会话中查找消息
func (s *State) FindMessage(id int64) (model.Message, bool) {
	for _, list := range s.Messages {
		if i := indexOf(list, id); i >= 0 {
			return list[i], true
		}
	}
	return model.Message{}, false
}

func (s *State) conversationIndex(id int64) int {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// clone 浅拷贝，切片和 map 在写入前必须各自复制
func (s *State) clone() *State {
	next := *s
	return &next
}

func (s *State) setMessages(conversationID int64, list []model.Message) {
	m := make(map[int64][]model.Message, len(s.Messages)+1)
	for k, v := range s.Messages {
		m[k] = v
	}
	m[conversationID] = list
	s.Messages = m
}

func (s *State) setCursor(conversationID int64, c Cursor) {
	m := make(map[int64]Cursor, len(s.Cursors)+1)
	for k, v := range s.Cursors {
		m[k] = v
	}
	m[conversationID] = c
	s.Cursors = m
}

// editConversation 复制会话切片后修改指定会话
func (s *State) editConversation(id int64, fn func(c *model.Conversation)) bool {
	i := s.conversationIndex(id)
	if i < 0 {
		return false
	}
	list := make([]model.Conversation, len(s.Conversations))
	copy(list, s.Conversations)
	fn(&list[i])
	s.Conversations = list
	return true
}

func (s *State) addUnread(delta int) {
	s.TotalUnread += delta
	if s.TotalUnread < 0 {
		s.TotalUnread = 0
	}
}

func (s *State) trackSend(tempID int64, p pendingSend) {
	m := make(map[int64]pendingSend, len(s.pendingSends)+1)
	for k, v := range s.pendingSends {
		m[k] = v
	}
	m[tempID] = p
	s.pendingSends = m
	s.Sending = true
}

// untrackSend 结束一次在途发送，tempID 不在途时返回 false
func (s *State) untrackSend(tempID int64) (pendingSend, bool) {
	p, ok := s.pendingSends[tempID]
	if !ok {
		return pendingSend{}, false
	}
	m := make(map[int64]pendingSend, len(s.pendingSends))
	for k, v := range s.pendingSends {
		if k != tempID {
			m[k] = v
		}
	}
	s.pendingSends = m
	s.Sending = len(m) > 0
	return p, true
}

// UnreadSum 各会话未读数之和
func (s *State) UnreadSum() int {
	sum := 0
	for _, c := range s.Conversations {
		sum += c.UnreadCount
	}
	return sum
}

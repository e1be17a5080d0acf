package service

import (
	"ChatSync/internal/api/client"
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/wsclient"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const (
	me  int64 = 1
	bob int64 = 2
	eve int64 = 3
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

var errServer = &client.RequestError{Op: "test", Status: 500, Code: 500, Message: "server error"}

type fakeAPI struct {
	mu sync.Mutex

	conversations []model.Conversation
	participants  []model.Participant
	unread        int
	online        []int64
	pages         map[int]model.Page[model.Message] // 按页号返回
	created       model.Conversation
	nextID        int64

	failConversations bool
	failSend          bool
	failMarkRead      bool
	failList          bool
	emptyAck          bool
	sendStarted       chan struct{} // 非空时 SendMessage 进入后通知
	sendGate          chan struct{} // 非空时 SendMessage 等待放行

	updated map[int64]string
	calls   apiCalls
}

type apiCalls struct {
	sent        []dto.SendMessageReq
	markRead    []int64
	deleted     []int64
	listCalls   []int
	createCalls int
	unreadCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		conversations: []model.Conversation{
			{ID: 10, Participants: []model.Participant{{ID: me}, {ID: bob, DisplayName: "bob"}}, UnreadCount: 2, LastMessageAt: t0},
			{ID: 20, Participants: []model.Participant{{ID: me}, {ID: eve, DisplayName: "eve"}}, UnreadCount: 1, LastMessageAt: t0.Add(-time.Hour)},
		},
		participants: []model.Participant{{ID: bob}, {ID: eve}, {ID: 4}},
		unread:       3,
		online:       []int64{bob},
		pages:        map[int]model.Page[model.Message]{},
		nextID:       42,
		updated:      map[int64]string{},
	}
}

func (f *fakeAPI) ListConversations(_ context.Context, page, _ int) (model.Page[model.Conversation], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConversations {
		return model.Page[model.Conversation]{}, errServer
	}
	return model.Page[model.Conversation]{Items: f.conversations, Page: page, Last: true}, nil
}

func (f *fakeAPI) ListMessages(_ context.Context, _ int64, page, _ int) (model.Page[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.listCalls = append(f.calls.listCalls, page)
	if f.failList {
		return model.Page[model.Message]{}, errServer
	}
	p, ok := f.pages[page]
	if !ok {
		return model.Page[model.Message]{Page: page, Last: true}, nil
	}
	return p, nil
}

func (f *fakeAPI) GetOrCreateConversation(_ context.Context, counterpartID int64) (model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.createCalls++
	c := f.created
	if c.ID == 0 {
		c = model.Conversation{ID: 30, Participants: []model.Participant{{ID: me}, {ID: counterpartID}}}
	}
	return c, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, req dto.SendMessageReq) (model.Message, error) {
	f.mu.Lock()
	f.calls.sent = append(f.calls.sent, req)
	started, gate := f.sendStarted, f.sendGate
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return model.Message{}, errServer
	}
	if f.emptyAck {
		return model.Message{ConversationID: req.ConversationID}, nil
	}
	id := f.nextID
	f.nextID++
	return model.Message{
		ID:             id,
		ConversationID: req.ConversationID,
		Sender:         model.Sender{ID: me, DisplayName: "me"},
		Content:        req.Content,
		Type:           model.MessageType(req.Type),
		Status:         model.StatusSent,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeAPI) UpdateMessage(_ context.Context, messageID int64, content string) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[messageID] = content
	now := time.Now()
	return model.Message{ID: messageID, Content: content, IsEdited: true, EditedAt: &now}, nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.deleted = append(f.calls.deleted, messageID)
	return nil
}

func (f *fakeAPI) MarkRead(_ context.Context, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.markRead = append(f.calls.markRead, conversationID)
	if f.failMarkRead {
		return errServer
	}
	return nil
}

func (f *fakeAPI) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.unreadCalls++
	return f.unread, nil
}

func (f *fakeAPI) OnlineUsers(context.Context) ([]int64, error) {
	return f.online, nil
}

func (f *fakeAPI) Participants(context.Context) ([]model.Participant, error) {
	return f.participants, nil
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) snapshot() apiCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiCalls{
		sent:        append([]dto.SendMessageReq(nil), f.calls.sent...),
		markRead:    append([]int64(nil), f.calls.markRead...),
		deleted:     append([]int64(nil), f.calls.deleted...),
		listCalls:   append([]int(nil), f.calls.listCalls...),
		createCalls: f.calls.createCalls,
		unreadCalls: f.calls.unreadCalls,
	}
}

type published struct {
	topic   string
	payload any
}

type fakeSocket struct {
	mu         sync.Mutex
	failDial   bool
	connected  bool
	credential string
	subs       map[string]wsclient.Handler
	conv       map[int64]wsclient.Handler
	sent       []published
	onConnect  []func()
	onState    []func(wsclient.State)
	connects   int
	unwatched  []int64
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{subs: map[string]wsclient.Handler{}, conv: map[int64]wsclient.Handler{}}
}

func (s *fakeSocket) Connect(_ context.Context, credential string) error {
	s.mu.Lock()
	s.connects++
	s.credential = credential
	if s.failDial {
		states := append([]func(wsclient.State){}, s.onState...)
		s.mu.Unlock()
		for _, fn := range states {
			fn(wsclient.StateReconnecting)
		}
		return errors.New("dial refused")
	}
	s.connected = true
	callbacks := append([]func(){}, s.onConnect...)
	states := append([]func(wsclient.State){}, s.onState...)
	s.mu.Unlock()
	for _, fn := range states {
		fn(wsclient.StateConnected)
	}
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (s *fakeSocket) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.subs = map[string]wsclient.Handler{}
	s.conv = map[int64]wsclient.Handler{}
	s.onConnect = nil
	states := append([]func(wsclient.State){}, s.onState...)
	s.mu.Unlock()
	for _, fn := range states {
		fn(wsclient.StateDisconnected)
	}
}

func (s *fakeSocket) OnConnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = append(s.onConnect, fn)
}

func (s *fakeSocket) OnStateChange(fn func(wsclient.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = append(s.onState, fn)
}

func (s *fakeSocket) Send(topic string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return wsclient.ErrNotConnected
	}
	s.sent = append(s.sent, published{topic: topic, payload: payload})
	return nil
}

func (s *fakeSocket) Subscribe(topic string, handler wsclient.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[topic] = handler
}

func (s *fakeSocket) SubscribeConversation(id int64, handler wsclient.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv[id] = handler
}

func (s *fakeSocket) UnsubscribeConversation(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conv, id)
	s.unwatched = append(s.unwatched, id)
}

func (s *fakeSocket) push(t *testing.T, topic string, v any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	s.mu.Lock()
	h, ok := s.subs[topic]
	s.mu.Unlock()
	require.True(t, ok, "no subscription for %s", topic)
	h(topic, body)
}

func (s *fakeSocket) published(topic string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, p := range s.sent {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

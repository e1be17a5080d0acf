package protocol

import (
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/metrics"
	"ChatSync/internal/pkg/wsclient"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	topic   string
	payload any
}

type fakeTransport struct {
	mu      sync.Mutex
	subs    map[string]wsclient.Handler
	conv    map[int64]wsclient.Handler
	sent    []sentFrame
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: map[string]wsclient.Handler{}, conv: map[int64]wsclient.Handler{}}
}

func (f *fakeTransport) Send(topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentFrame{topic: topic, payload: payload})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, handler wsclient.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = handler
}

func (f *fakeTransport) SubscribeConversation(id int64, handler wsclient.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conv[id] = handler
}

func (f *fakeTransport) UnsubscribeConversation(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conv, id)
}

func (f *fakeTransport) push(t *testing.T, topic string, v any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	f.subs[topic](topic, body)
}

func TestAdapter_BindRespectsFeatures(t *testing.T) {
	tr := newFakeTransport()
	a := NewAdapter(tr, Features{Typing: false, Presence: true, ReadReceipts: false}, nil, nil)
	a.Bind(Handlers{})

	assert.Contains(t, tr.subs, consts.QueueMessages)
	assert.Contains(t, tr.subs, consts.QueueDeletions)
	assert.Contains(t, tr.subs, consts.TopicPresence)
	assert.NotContains(t, tr.subs, consts.QueueTyping)
	assert.NotContains(t, tr.subs, consts.QueueReadReceipts)

	require.NoError(t, a.SetTyping(1, 2, 3, true))
	require.NoError(t, a.SendReadReceipt(1, 2, 3))
	assert.Empty(t, tr.sent)
}

func TestAdapter_InboundDecoding(t *testing.T) {
	tr := newFakeTransport()
	a := NewAdapter(tr, Features{Typing: true, Presence: true, ReadReceipts: true}, nil, nil)

	var (
		msgs      []model.Message
		typing    []model.TypingIndicator
		presence  []model.PresenceEvent
		receipts  []model.ReadReceipt
		deletions []model.DeleteNotification
	)
	a.Bind(Handlers{
		OnMessage:     func(m model.Message) { msgs = append(msgs, m) },
		OnTyping:      func(ti model.TypingIndicator) { typing = append(typing, ti) },
		OnPresence:    func(p model.PresenceEvent) { presence = append(presence, p) },
		OnReadReceipt: func(r model.ReadReceipt) { receipts = append(receipts, r) },
		OnDelete:      func(d model.DeleteNotification) { deletions = append(deletions, d) },
	})

	tr.push(t, consts.QueueMessages, dto.MessageDTO{ID: 10, ConversationID: 1, Content: "hi", Sender: dto.SenderDTO{ID: 2}})
	tr.push(t, consts.QueueTyping, dto.TypingFrame{ConversationID: 1, SenderID: 2, IsTyping: true})
	tr.push(t, consts.TopicPresence, dto.PresenceFrame{UserID: 2, Status: "ONLINE"})
	tr.push(t, consts.QueueReadReceipts, dto.ReadFrame{ConversationID: 1, ReaderID: 2, LastReadMessageID: 10})
	tr.push(t, consts.QueueDeletions, dto.DeleteFrame{MessageID: 10, ConversationID: 1})

	require.Len(t, msgs, 1)
	assert.Equal(t, model.StatusSent, msgs[0].Status)
	assert.Equal(t, model.MessageTypeText, msgs[0].Type)
	require.Len(t, typing, 1)
	assert.True(t, typing[0].IsTyping)
	require.Len(t, presence, 1)
	assert.True(t, presence[0].Online)
	require.Len(t, receipts, 1)
	assert.Equal(t, int64(10), receipts[0].LastReadMessageID)
	require.Len(t, deletions, 1)
	assert.Equal(t, int64(10), deletions[0].MessageID)
}

func TestAdapter_MalformedPayloadDropped(t *testing.T) {
	tr := newFakeTransport()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := NewAdapter(tr, Features{Presence: true}, nil, m)

	called := 0
	a.Bind(Handlers{
		OnMessage:  func(model.Message) { called++ },
		OnPresence: func(model.PresenceEvent) { called++ },
	})

	tr.subs[consts.QueueMessages](consts.QueueMessages, []byte("{not json"))
	tr.subs[consts.QueueMessages](consts.QueueMessages, []byte(`{"content":"no id"}`))
	tr.subs[consts.TopicPresence](consts.TopicPresence, []byte(`{"userId":2,"status":"AWAY"}`))
	assert.Equal(t, 0, called)

	// 订阅仍然有效
	tr.push(t, consts.QueueMessages, dto.MessageDTO{ID: 1, ConversationID: 1})
	assert.Equal(t, 1, called)
}

func TestAdapter_Outbound(t *testing.T) {
	tr := newFakeTransport()
	a := NewAdapter(tr, Features{Typing: true, ReadReceipts: true}, nil, nil)

	require.NoError(t, a.Announce(7))
	require.NoError(t, a.PublishMessage(model.Message{ID: 5, ConversationID: 1, Content: "x", CreatedAt: time.Now()}))
	require.NoError(t, a.SetTyping(1, 7, 8, true))
	require.NoError(t, a.SendReadReceipt(1, 7, 5))
	require.NoError(t, a.SendDelete(5, 1, 8))
	require.NoError(t, a.Leave(7))

	topics := make([]string, 0, len(tr.sent))
	for _, s := range tr.sent {
		topics = append(topics, s.topic)
	}
	assert.Equal(t, []string{
		consts.TopicConnect, consts.TopicSend, consts.TopicTyping,
		consts.TopicRead, consts.TopicDelete, consts.TopicDisconnect,
	}, topics)

	typing, ok := tr.sent[2].payload.(dto.TypingFrame)
	require.True(t, ok)
	assert.Equal(t, int64(8), typing.RecipientID)
	assert.True(t, typing.IsTyping)
}

func TestAdapter_WatchConversation(t *testing.T) {
	tr := newFakeTransport()
	a := NewAdapter(tr, Features{ReadReceipts: true}, nil, nil)

	var got []model.ReadReceipt
	a.WatchConversation(3, func(r model.ReadReceipt) { got = append(got, r) })
	require.Contains(t, tr.conv, int64(3))

	body, _ := json.Marshal(dto.ReadFrame{ConversationID: 3, ReaderID: 2, LastReadMessageID: 9})
	tr.conv[3](consts.ConversationReadTopic(3), body)
	require.Len(t, got, 1)

	a.UnwatchConversation(3)
	assert.NotContains(t, tr.conv, int64(3))
}

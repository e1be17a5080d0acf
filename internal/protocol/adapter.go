package protocol

import (
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/metrics"
	"ChatSync/internal/pkg/util"
	"ChatSync/internal/pkg/wsclient"
	log "log/slog"
	"time"
)

// Transport 适配器依赖的线路能力，由 wsclient.Client 实现
type Transport interface {
	Send(topic string, payload any) error
	Subscribe(topic string, handler wsclient.Handler)
	SubscribeConversation(conversationID int64, handler wsclient.Handler)
	UnsubscribeConversation(conversationID int64)
}

// Handlers 入站事件回调，未设置的回调对应事件被忽略
type Handlers struct {
	OnMessage     func(model.Message)
	OnTyping      func(model.TypingIndicator)
	OnPresence    func(model.PresenceEvent)
	OnReadReceipt func(model.ReadReceipt)
	OnDelete      func(model.DeleteNotification)
}

// Features 功能开关
type Features struct {
	Typing       bool
	Presence     bool
	ReadReceipts bool
}

// Adapter 领域动作与线上帧之间的无状态转换，不直接修改任何共享状态
type Adapter struct {
	transport Transport
	features  Features
	logger    *log.Logger
	metrics   *metrics.Metrics
}

func NewAdapter(transport Transport, features Features, logger *log.Logger, m *metrics.Metrics) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		transport: transport,
		features:  features,
		logger:    logger.With("component", "protocol"),
		metrics:   m,
	}
}

// Bind 订阅会话级队列
func (a *Adapter) Bind(h Handlers) {
	a.transport.Subscribe(consts.QueueMessages, route(a, DecodeMessage, h.OnMessage))
	a.transport.Subscribe(consts.QueueDeletions, route(a, DecodeDelete, h.OnDelete))
	if a.features.Typing {
		a.transport.Subscribe(consts.QueueTyping, route(a, DecodeTyping, h.OnTyping))
	}
	if a.features.Presence {
		a.transport.Subscribe(consts.TopicPresence, route(a, DecodePresence, h.OnPresence))
	}
	if a.features.ReadReceipts {
		a.transport.Subscribe(consts.QueueReadReceipts, route(a, DecodeReadReceipt, h.OnReadReceipt))
	}
}

// WatchConversation 订阅当前会话的已读回执主题
func (a *Adapter) WatchConversation(conversationID int64, onReceipt func(model.ReadReceipt)) {
	if !a.features.ReadReceipts {
		return
	}
	a.transport.SubscribeConversation(conversationID, route(a, DecodeReadReceipt, onReceipt))
}

// UnwatchConversation 退订会话已读回执主题
func (a *Adapter) UnwatchConversation(conversationID int64) {
	a.transport.UnsubscribeConversation(conversationID)
}

// Announce chat.connect
func (a *Adapter) Announce(userID int64) error {
	return a.transport.Send(consts.TopicConnect, dto.ConnectFrame{UserID: userID})
}

// Leave chat.disconnect
func (a *Adapter) Leave(userID int64) error {
	return a.transport.Send(consts.TopicDisconnect, dto.ConnectFrame{UserID: userID})
}

// PublishMessage chat.send，发布已被服务端确认的消息
func (a *Adapter) PublishMessage(msg model.Message) error {
	return a.transport.Send(consts.TopicSend, dto.FromMessage(msg))
}

// SetTyping chat.typing
func (a *Adapter) SetTyping(conversationID, senderID, recipientID int64, isTyping bool) error {
	if !a.features.Typing {
		return nil
	}
	return a.transport.Send(consts.TopicTyping, dto.TypingFrame{
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		IsTyping:       isTyping,
	})
}

// SendReadReceipt chat.read
func (a *Adapter) SendReadReceipt(conversationID, readerID, lastReadMessageID int64) error {
	if !a.features.ReadReceipts {
		return nil
	}
	return a.transport.Send(consts.TopicRead, dto.ReadFrame{
		ConversationID:    conversationID,
		ReaderID:          readerID,
		LastReadMessageID: lastReadMessageID,
		ReadAt:            time.Now().UTC(),
	})
}

// SendDelete chat.delete
func (a *Adapter) SendDelete(messageID, conversationID, recipientID int64) error {
	return a.transport.Send(consts.TopicDelete, dto.DeleteFrame{
		MessageID:      messageID,
		ConversationID: conversationID,
		RecipientID:    recipientID,
	})
}

// route 解码失败只记录并丢弃，订阅保持不变
func route[T any](a *Adapter, decode func([]byte) (T, error), handler func(T)) wsclient.Handler {
	return func(topic string, body []byte) {
		if handler == nil {
			return
		}
		v, err := decode(body)
		if err != nil {
			perr := &ProtocolError{Topic: topic, Err: err}
			a.metrics.FrameDropped(metrics.DropMalformedPayload)
			a.logger.Warn("drop malformed payload", "err", perr, "body", util.Truncate(string(body), 200))
			return
		}
		handler(v)
	}
}

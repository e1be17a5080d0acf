package wsclient

import (
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/metrics"
	"ChatSync/internal/pkg/util"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("socket not connected")
	ErrClosed       = errors.New("socket client closed")
	errEmptyCommand = errors.New("frame without command")
)

// State 连接状态
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Handler 订阅回调，body 为帧负载原文
type Handler func(topic string, body []byte)

// Options 连接参数
type Options struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	WriteTimeout         time.Duration
	PingInterval         time.Duration
	Dialer               Dialer
	Logger               *log.Logger
	Metrics              *metrics.Metrics
}

type subscription struct {
	id      string
	topic   string
	handler Handler
}

// Client 每个会话维持唯一一条逻辑连接，负责断线重连与订阅簿记
type Client struct {
	opts    Options
	dialer  Dialer
	logger  *log.Logger
	metrics *metrics.Metrics

	mu           sync.Mutex
	state        State
	conn         Conn
	generation   uint64
	credential   string
	stopCh       chan struct{}
	reconnectFor chan struct{}
	attempts     int
	subs         map[string]*subscription
	scoped       map[string]string
	nextSubID    int
	onConnect    []func()
	onState      []func(State)
	pending      []State

	writeMu sync.Mutex
}

// NewClient 创建客户端，此时并不建立连接
func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = GorillaDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Client{
		opts:    opts,
		dialer:  opts.Dialer,
		logger:  opts.Logger.With("component", "wsclient"),
		metrics: opts.Metrics,
		state:   StateDisconnected,
		subs:    make(map[string]*subscription),
		scoped:  make(map[string]string),
	}
}

// State 当前连接状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnConnect 注册连接（含重连）成功回调
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// OnStateChange 注册状态变化回调
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// Connect 建立连接；连接已存在或正在建立时直接返回
// 失败时已在后台发起重连，返回的错误仅供记录
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected, StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.credential = credential
	c.stopCh = make(chan struct{})
	c.attempts = 0
	c.setStateLocked(StateConnecting)
	stop := c.stopCh
	c.unlockAndNotify()

	if err := c.dialAndStart(ctx, stop); err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		c.logger.WarnContext(ctx, "socket connect failed, scheduling reconnect", "err", err)
		c.startReconnect(stop)
		return err
	}
	return nil
}

// Disconnect 退订全部主题、清空回调并关闭连接，可重复调用
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.stopCh != nil {
		select {
		case <-c.stopCh:
		default:
			close(c.stopCh)
		}
	}
	conn := c.conn
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.conn = nil
	c.generation++
	c.subs = make(map[string]*subscription)
	c.scoped = make(map[string]string)
	c.onConnect = nil
	c.setStateLocked(StateDisconnected)
	c.unlockAndNotify()

	if conn == nil {
		return
	}
	for _, s := range subs {
		_ = c.writeFrame(conn, &Frame{Command: CommandUnsubscribe, ID: s.id, Topic: s.topic})
	}
	_ = c.writeFrame(conn, &Frame{Command: CommandDisconnect})
	_ = conn.Close()
	c.logger.Info("socket disconnected")
}

// Subscribe 订阅主题；重复订阅同一主题只替换回调，不会产生第二份投递
func (c *Client) Subscribe(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeLocked(topic, handler)
}

// Unsubscribe 退订主题
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribeLocked(topic)
}

// SubscribeConversation 切换会话级订阅：先退订旧会话，再订阅新会话
func (c *Client) SubscribeConversation(conversationID int64, handler Handler) {
	topic := consts.ConversationReadTopic(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.scoped[consts.ConversationScope]; ok && old != topic {
		c.unsubscribeLocked(old)
	}
	c.scoped[consts.ConversationScope] = topic
	c.subscribeLocked(topic, handler)
}

// UnsubscribeConversation 退订会话级订阅
func (c *Client) UnsubscribeConversation(conversationID int64) {
	topic := consts.ConversationReadTopic(conversationID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scoped[consts.ConversationScope] != topic {
		return
	}
	delete(c.scoped, consts.ConversationScope)
	c.unsubscribeLocked(topic)
}

// Topics 当前登记的订阅主题
func (c *Client) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	return topics
}

// Send 发布消息，不做响应关联
func (c *Client) Send(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", topic, err)
	}
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	return c.writeFrame(conn, &Frame{Command: CommandSend, Topic: topic, Body: body})
}

func (c *Client) subscribeLocked(topic string, handler Handler) {
	if s, ok := c.subs[topic]; ok {
		s.handler = handler
		return
	}
	c.nextSubID++
	s := &subscription{id: fmt.Sprintf("sub-%d", c.nextSubID), topic: topic, handler: handler}
	c.subs[topic] = s
	if c.state == StateConnected && c.conn != nil {
		if err := c.writeFrame(c.conn, &Frame{Command: CommandSubscribe, ID: s.id, Topic: topic}); err != nil {
			// 连接随后会断开，重连时统一补订
			c.logger.Warn("subscribe failed", "topic", topic, "err", err)
		}
	}
}

func (c *Client) unsubscribeLocked(topic string) {
	s, ok := c.subs[topic]
	if !ok {
		return
	}
	delete(c.subs, topic)
	if c.state == StateConnected && c.conn != nil {
		if err := c.writeFrame(c.conn, &Frame{Command: CommandUnsubscribe, ID: s.id, Topic: topic}); err != nil {
			c.logger.Warn("unsubscribe failed", "topic", topic, "err", err)
		}
	}
}

// dialAndStart 建立物理连接、握手并补订全部主题
func (c *Client) dialAndStart(ctx context.Context, stop chan struct{}) error {
	c.mu.Lock()
	credential := c.credential
	c.mu.Unlock()

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}
	conn, err := c.dialer.Dial(ctx, withToken(c.opts.URL, credential), header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	select {
	case <-stop:
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	default:
	}

	if err = c.writeFrame(conn, &Frame{Command: CommandConnect, Headers: map[string]string{"Authorization": "Bearer " + credential}}); err != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return err
	}
	for _, s := range c.subs {
		if err = c.writeFrame(conn, &Frame{Command: CommandSubscribe, ID: s.id, Topic: s.topic}); err != nil {
			c.mu.Unlock()
			_ = conn.Close()
			return err
		}
	}

	c.generation++
	gen := c.generation
	done := make(chan struct{})
	c.conn = conn
	c.attempts = 0
	c.setStateLocked(StateConnected)
	callbacks := append([]func(){}, c.onConnect...)
	subCount := len(c.subs)
	c.unlockAndNotify()

	c.logger.InfoContext(ctx, "socket connected", "subscriptions", subCount)

	go c.readLoop(conn, gen, done)
	if c.opts.PingInterval > 0 {
		go c.pingLoop(conn, done)
	}
	for _, cb := range callbacks {
		cb()
	}
	return nil
}

func (c *Client) readLoop(conn Conn, gen uint64, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleConnLost(conn, gen, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) pingLoop(conn Conn, done chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.writeFrame(conn, &Frame{Command: CommandPing}); err != nil {
				c.logger.Debug("ping failed", "err", err)
			}
		}
	}
}

func (c *Client) dispatch(data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		c.metrics.FrameDropped(metrics.DropMalformedFrame)
		c.logger.Warn("drop malformed frame", "err", err, "raw", util.Truncate(string(data), 200))
		return
	}

	switch f.Command {
	case CommandMessage:
		c.mu.Lock()
		s, ok := c.subs[f.Topic]
		var handler Handler
		if ok {
			handler = s.handler
		}
		c.mu.Unlock()
		if handler == nil {
			c.metrics.FrameDropped(metrics.DropNoSubscription)
			c.logger.Debug("drop frame without subscription", "topic", f.Topic)
			return
		}
		c.metrics.FrameReceived(f.Topic)
		c.invoke(handler, f.Topic, f.Body)
	case CommandError:
		c.logger.Warn("server error frame", "topic", f.Topic, "body", util.Truncate(string(f.Body), 200))
	case CommandConnected, CommandPong:
	default:
		c.logger.Debug("ignore frame", "command", f.Command)
	}
}

// invoke 单个回调异常不能影响读循环
func (c *Client) invoke(handler Handler, topic string, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.FrameDropped(metrics.DropHandlerPanic)
			c.logger.Error("subscription handler panic", "topic", topic, "panic", r)
		}
	}()
	handler(topic, body)
}

func (c *Client) handleConnLost(conn Conn, gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.generation || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	stop := c.stopCh
	c.setStateLocked(StateReconnecting)
	c.unlockAndNotify()

	_ = conn.Close()
	c.logger.Warn("socket connection lost", "err", cause)
	c.startReconnect(stop)
}

// startReconnect 同一时刻只允许一个重连循环
func (c *Client) startReconnect(stop chan struct{}) {
	c.mu.Lock()
	if c.reconnectFor == stop {
		c.mu.Unlock()
		return
	}
	c.reconnectFor = stop
	c.mu.Unlock()
	go c.reconnectLoop(stop)
}

func (c *Client) reconnectLoop(stop chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.reconnectFor == stop {
			c.reconnectFor = nil
		}
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		select {
		case <-stop:
			c.mu.Unlock()
			return
		default:
		}
		if c.attempts >= c.opts.MaxReconnectAttempts {
			attempts := c.attempts
			c.setStateLocked(StateFailed)
			c.unlockAndNotify()
			c.logger.Error("socket reconnect gave up", "attempts", attempts)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.setStateLocked(StateReconnecting)
		c.unlockAndNotify()

		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		c.metrics.ReconnectAttempt()
		err := c.dialAndStart(context.Background(), stop)
		if err == nil {
			c.logger.Info("socket reconnected", "attempt", attempt)
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		c.logger.Warn("socket reconnect attempt failed", "attempt", attempt, "err", err)
	}
}

func (c *Client) writeFrame(conn Conn, f *Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.pending = append(c.pending, s)
}

// unlockAndNotify 释放锁后按顺序通知状态变化
func (c *Client) unlockAndNotify() {
	pending := c.pending
	c.pending = nil
	listeners := append([]func(State){}, c.onState...)
	c.mu.Unlock()
	for _, s := range pending {
		for _, fn := range listeners {
			fn(s)
		}
	}
}

func withToken(rawURL, credential string) string {
	if credential == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("token", credential)
	u.RawQuery = q.Encode()
	return u.String()
}

package service

import (
	"ChatSync/internal/api/client"
	"ChatSync/internal/api/config"
	"ChatSync/internal/ephemeral"
	"ChatSync/internal/job"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/cron"
	"ChatSync/internal/pkg/logger"
	"ChatSync/internal/pkg/metrics"
	"ChatSync/internal/pkg/security"
	"ChatSync/internal/pkg/wsclient"
	"ChatSync/internal/protocol"
	"ChatSync/internal/store"
	"context"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/google/uuid"
)

// Lifecycle 引擎生命周期
type Lifecycle string

const (
	LifecycleUninitialized Lifecycle = "uninitialized"
	LifecycleInitializing  Lifecycle = "initializing"
	LifecycleReady         Lifecycle = "ready"
	LifecycleCleanedUp     Lifecycle = "cleaned_up"
)

// Socket 引擎依赖的长连接能力，由 wsclient.Client 实现
type Socket interface {
	protocol.Transport
	Connect(ctx context.Context, credential string) error
	Disconnect()
	OnConnect(fn func())
	OnStateChange(fn func(wsclient.State))
}

// EngineOptions 引擎依赖
type EngineOptions struct {
	Config  config.ChatConfig
	Token   string
	UserID  int64 // 为 0 时从 Token 的 claims 中解析
	API     client.ChatAPI
	Socket  Socket
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

// ChatEngine 聊天同步引擎，对 UI 暴露的唯一入口
type ChatEngine struct {
	cfg     config.ChatConfig
	token   string
	userID  int64
	api     client.ChatAPI
	socket  Socket
	adapter *protocol.Adapter
	store   *store.Store
	signals *ephemeral.Tracker
	typer   *ephemeral.Typer
	metrics *metrics.Metrics
	logger  *log.Logger

	mu         sync.Mutex
	lifecycle  Lifecycle
	cron       *cron.Manager
	sessionCtx context.Context
}

func NewChatEngine(opts EngineOptions) *ChatEngine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	e := &ChatEngine{
		cfg:        opts.Config,
		token:      opts.Token,
		userID:     opts.UserID,
		api:        opts.API,
		socket:     opts.Socket,
		store:      store.New(opts.UserID),
		signals:    ephemeral.NewTracker(opts.Config.TypingTTL),
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "engine"),
		lifecycle:  LifecycleUninitialized,
		sessionCtx: context.Background(),
	}
	e.adapter = protocol.NewAdapter(opts.Socket, protocol.Features{
		Typing:       opts.Config.EnableTyping,
		Presence:     opts.Config.EnablePresence,
		ReadReceipts: opts.Config.EnableReadReceipts,
	}, opts.Logger, opts.Metrics)
	e.typer = ephemeral.NewTyper(opts.Config.TypingStopDelay, e.emitTyping)

	e.socket.OnStateChange(func(s wsclient.State) {
		e.store.SetConnState(string(s), s == wsclient.StateConnected)
	})
	store.Watch(e.store, func(st *store.State) int { return st.TotalUnread }, store.Same[int], e.metrics.SetUnread)
	return e
}

// Store 状态仓库，供 UI 订阅
func (e *ChatEngine) Store() *store.Store {
	return e.store
}

// Signals 输入状态与在线状态
func (e *ChatEngine) Signals() *ephemeral.Tracker {
	return e.signals
}

// State 当前状态快照
func (e *ChatEngine) State() *store.State {
	return e.store.Snapshot()
}

// Lifecycle 当前生命周期
func (e *ChatEngine) Lifecycle() Lifecycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle
}

func (e *ChatEngine) ready() error {
	if e.Lifecycle() != LifecycleReady {
		return ErrNotReady
	}
	return nil
}

func (e *ChatEngine) ctx() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionCtx
}

func (e *ChatEngine) currentUser() int64 {
	return e.store.Snapshot().CurrentUserID
}

// recordError 记录最近一次错误并原样返回
func (e *ChatEngine) recordError(ctx context.Context, op string, err error) error {
	e.logger.WarnContext(ctx, op+" failed", "err", err, "kind", KindOf(err).String())
	e.store.SetError(err.Error())
	return err
}

// counterpart 会话对端参与者
func (e *ChatEngine) counterpart(conversationID int64) (model.Conversation, model.Participant, error) {
	st := e.store.Snapshot()
	conv, ok := st.Conversation(conversationID)
	if !ok {
		return model.Conversation{}, model.Participant{}, ErrConversationNotFound
	}
	p, ok := conv.Counterpart(st.CurrentUserID)
	if !ok {
		return conv, model.Participant{}, fmt.Errorf("%w: conversation %d has no counterpart", ErrConversationNotFound, conversationID)
	}
	return conv, p, nil
}

func (e *ChatEngine) newSession(ctx context.Context) context.Context {
	traceID := consts.SessionTracePrefix + uuid.NewString()
	e.mu.Lock()
	e.sessionCtx = logger.WithTraceID(context.Background(), traceID)
	e.mu.Unlock()
	return logger.WithTraceID(ctx, traceID)
}

func (e *ChatEngine) resolveUserID() (int64, error) {
	if e.userID > 0 {
		return e.userID, nil
	}
	id, err := security.UserIDFromToken(e.token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParamInvalid, err)
	}
	return id, nil
}

// newCron 每个会话独立的定时任务引擎
func (e *ChatEngine) newCron(ctx context.Context) *cron.Manager {
	mgr := cron.NewCronManager()
	timeout := e.cfg.RequestTimeout
	if err := mgr.Register(e.cfg.UnreadRefreshSpec, job.NewUnreadRefreshJob(e, timeout)); err != nil {
		e.logger.WarnContext(ctx, "invalid unread refresh spec, periodic refresh disabled", "spec", e.cfg.UnreadRefreshSpec, "err", err)
	}
	return mgr
}

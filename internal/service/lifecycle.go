package service

import (
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/protocol"
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// maxConversationPages 初始化时会话列表最多拉取的页数
const maxConversationPages = 20

// Init 建立连接并并发加载会话、联系人、未读数与在线列表
// 长连接失败不影响 REST 初始化；REST 失败时引擎仍进入 Ready，错误被记录并返回
func (e *ChatEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	switch e.lifecycle {
	case LifecycleInitializing, LifecycleReady:
		e.mu.Unlock()
		return nil
	}
	e.lifecycle = LifecycleInitializing
	e.mu.Unlock()

	ctx = e.newSession(ctx)
	userID, err := e.resolveUserID()
	if err != nil {
		e.setLifecycle(LifecycleUninitialized)
		return err
	}
	e.logger.InfoContext(ctx, "chat engine initializing", "user_id", userID)

	e.store.Reset(userID)
	e.signals.Reset()
	e.store.SetLoading(true)

	e.adapter.Bind(protocol.Handlers{
		OnMessage:     e.onMessage,
		OnTyping:      e.onTyping,
		OnPresence:    e.signals.ApplyPresence,
		OnReadReceipt: e.onReadReceipt,
		OnDelete:      e.onDelete,
	})
	e.socket.OnConnect(func() {
		if err := e.adapter.Announce(userID); err != nil {
			e.logger.WarnContext(e.ctx(), "announce failed", "err", err)
		}
	})
	if err := e.socket.Connect(ctx, e.token); err != nil {
		e.logger.WarnContext(ctx, "socket unavailable, continuing without live updates", "err", err)
	}

	bootErr := e.bootstrap(ctx)
	e.store.SetLoading(false)

	mgr := e.newCron(ctx)
	e.mu.Lock()
	e.cron = mgr
	e.lifecycle = LifecycleReady
	e.mu.Unlock()
	mgr.Start()

	if bootErr != nil {
		return e.recordError(ctx, "bootstrap", bootErr)
	}
	e.logger.InfoContext(ctx, "chat engine ready")
	return nil
}

// bootstrap 并发拉取后按固定顺序写入 Store，服务端未读总数最后覆盖
func (e *ChatEngine) bootstrap(ctx context.Context) error {
	var (
		g            errgroup.Group
		convs        []model.Conversation
		participants []model.Participant
		unread       int
		online       []int64
		convErr      error
		partErr      error
		unreadErr    error
		presenceErr  error
	)
	g.Go(func() error {
		convs, convErr = e.loadConversations(ctx)
		return convErr
	})
	g.Go(func() error {
		participants, partErr = e.api.Participants(ctx)
		return partErr
	})
	g.Go(func() error {
		unread, unreadErr = e.api.UnreadCount(ctx)
		return unreadErr
	})
	if e.cfg.EnablePresence {
		g.Go(func() error {
			online, presenceErr = e.api.OnlineUsers(ctx)
			return presenceErr
		})
	}
	_ = g.Wait()

	if convErr == nil {
		e.store.SetConversations(convs)
	}
	if partErr == nil {
		e.store.SetParticipants(participants)
	}
	if unreadErr == nil {
		e.applyUnreadTotal(ctx, unread)
	}
	if presenceErr == nil && online != nil {
		e.signals.SetOnline(online)
	}
	return errors.Join(convErr, partErr, unreadErr, presenceErr)
}

func (e *ChatEngine) loadConversations(ctx context.Context) ([]model.Conversation, error) {
	var all []model.Conversation
	for page := 0; page < maxConversationPages; page++ {
		p, err := e.api.ListConversations(ctx, page, consts.ConversationPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if p.Last || len(p.Items) == 0 {
			break
		}
	}
	return all, nil
}

// Cleanup 断开连接、停止定时任务并清空全部状态，可重复调用
func (e *ChatEngine) Cleanup() {
	e.mu.Lock()
	if e.lifecycle == LifecycleUninitialized || e.lifecycle == LifecycleCleanedUp {
		e.mu.Unlock()
		return
	}
	e.lifecycle = LifecycleCleanedUp
	mgr := e.cron
	e.cron = nil
	ctx := e.sessionCtx
	e.mu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}
	e.typer.Cancel()
	if active := e.store.Snapshot().ActiveConversationID; active != 0 {
		e.adapter.UnwatchConversation(active)
	}
	if userID := e.currentUser(); userID > 0 {
		_ = e.adapter.Leave(userID)
	}
	e.socket.Disconnect()
	e.signals.Reset()
	e.store.Reset(0)
	e.logger.InfoContext(ctx, "chat engine cleaned up")
}

func (e *ChatEngine) setLifecycle(l Lifecycle) {
	e.mu.Lock()
	e.lifecycle = l
	e.mu.Unlock()
}

// RefreshUnread 以服务端未读总数为准
func (e *ChatEngine) RefreshUnread(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	n, err := e.api.UnreadCount(ctx)
	if err != nil {
		return e.recordError(ctx, "refresh unread", err)
	}
	e.applyUnreadTotal(ctx, n)
	return nil
}

// applyUnreadTotal 写入服务端未读总数，与会话列表不一致时告警
func (e *ChatEngine) applyUnreadTotal(ctx context.Context, n int) {
	if drift := e.store.SetUnreadTotal(n); drift != 0 {
		e.logger.WarnContext(ctx, "server unread total differs from conversation list", "total", n, "drift", drift)
	}
}

func (e *ChatEngine) onMessage(m model.Message) {
	res := e.store.ReceiveMessage(m)
	if !res.Tracked || res.Duplicate {
		return
	}
	if m.Sender.ID != e.currentUser() {
		e.signals.ApplyTyping(model.TypingIndicator{ConversationID: m.ConversationID, SenderID: m.Sender.ID})
	}
	if res.MarkedRead {
		if err := e.adapter.SendReadReceipt(m.ConversationID, e.currentUser(), m.ID); err != nil {
			e.logger.DebugContext(e.ctx(), "read receipt not sent", "err", err)
		}
	}
}

func (e *ChatEngine) onTyping(t model.TypingIndicator) {
	if t.SenderID == e.currentUser() {
		return
	}
	e.signals.ApplyTyping(t)
}

func (e *ChatEngine) onReadReceipt(r model.ReadReceipt) {
	e.store.ApplyReadReceipt(r)
}

func (e *ChatEngine) onDelete(d model.DeleteNotification) {
	e.store.RemoveMessage(d.MessageID)
}

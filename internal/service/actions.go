package service

import (
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/util"
	"ChatSync/internal/store"
	"context"
	"strings"
)

const replyPreviewLimit = 100

// SendRequest 发送消息参数
type SendRequest struct {
	Content   string
	Type      model.MessageType
	ReplyToID int64
}

// SetActiveConversation 切换当前会话：订阅会话事件，拉取第 0 页历史，界面可见时标记已读
func (e *ChatEngine) SetActiveConversation(ctx context.Context, conversationID int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	conv, _, err := e.counterpart(conversationID)
	if err != nil {
		return err
	}
	if prev := e.store.SetActive(conv.ID); prev != 0 && prev != conv.ID {
		e.adapter.UnwatchConversation(prev)
	}
	e.adapter.WatchConversation(conv.ID, e.onReadReceipt)

	if err := e.loadPage(ctx, conv.ID, 0); err != nil {
		return err
	}
	if e.store.Snapshot().Visible {
		return e.MarkAsRead(ctx, conv.ID)
	}
	return nil
}

// GetOrCreateConversation 已有与该用户的会话时直接激活，否则由服务端创建后插到列表头部
func (e *ChatEngine) GetOrCreateConversation(ctx context.Context, userID int64) (model.Conversation, error) {
	if err := e.ready(); err != nil {
		return model.Conversation{}, err
	}
	if userID <= 0 || userID == e.currentUser() {
		return model.Conversation{}, ErrParamInvalid
	}
	if conv, ok := e.store.Snapshot().ConversationWith(userID); ok {
		return conv, e.SetActiveConversation(ctx, conv.ID)
	}

	conv, err := e.api.GetOrCreateConversation(ctx, userID)
	if err != nil {
		return model.Conversation{}, e.recordError(ctx, "get or create conversation", err)
	}
	e.store.PrependConversation(conv)
	return conv, e.SetActiveConversation(ctx, conv.ID)
}

// SendMessage 乐观发送到当前会话，失败时消息保留为 FAILED
func (e *ChatEngine) SendMessage(ctx context.Context, req SendRequest) (model.Message, error) {
	if err := e.ready(); err != nil {
		return model.Message{}, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return model.Message{}, ErrEmptyContent
	}
	st := e.store.Snapshot()
	conv, peer, err := e.counterpart(st.ActiveConversationID)
	if err != nil {
		return model.Message{}, err
	}

	draft := store.Draft{
		ConversationID: conv.ID,
		Content:        req.Content,
		Type:           req.Type,
		ReplyToID:      req.ReplyToID,
	}
	if req.ReplyToID > 0 {
		if origin, ok := st.FindMessage(req.ReplyToID); ok {
			draft.ReplyTo = &model.ReplyPreview{
				MessageID:  origin.ID,
				SenderName: origin.Sender.DisplayName,
				Content:    util.Truncate(origin.Content, replyPreviewLimit),
			}
		}
	}
	tmp := e.store.BeginSend(draft)
	return e.deliver(ctx, tmp, peer.ID)
}

// RetryMessage 重发一条 FAILED 的本地消息
func (e *ChatEngine) RetryMessage(ctx context.Context, tempID int64) (model.Message, error) {
	if err := e.ready(); err != nil {
		return model.Message{}, err
	}
	msg, ok := e.store.RetrySend(tempID)
	if !ok {
		return model.Message{}, ErrMessageNotFound
	}
	_, peer, err := e.counterpart(msg.ConversationID)
	if err != nil {
		e.store.FailSend(tempID)
		return model.Message{}, err
	}
	return e.deliver(ctx, msg, peer.ID)
}

// deliver REST 确认后替换临时消息，再经长连接转发给对端
func (e *ChatEngine) deliver(ctx context.Context, tmp model.Message, recipientID int64) (model.Message, error) {
	confirmed, err := e.api.SendMessage(ctx, dto.SendMessageReq{
		ConversationID: tmp.ConversationID,
		RecipientID:    recipientID,
		Content:        tmp.Content,
		Type:           string(tmp.Type),
		ReplyToID:      tmp.ReplyToID,
	})
	if err != nil {
		e.store.FailSend(tmp.ID)
		e.metrics.MessageSent(false)
		tmp.Status = model.StatusFailed
		return tmp, e.recordError(ctx, "send message", err)
	}
	if confirmed.ID <= 0 {
		e.store.FailSend(tmp.ID)
		e.metrics.MessageSent(false)
		tmp.Status = model.StatusFailed
		return tmp, e.recordError(ctx, "send message", ErrUnexpected)
	}
	if confirmed.ConversationID == 0 {
		confirmed.ConversationID = tmp.ConversationID
	}
	e.metrics.MessageSent(true)
	switch e.store.ConfirmSend(tmp.ID, confirmed) {
	case store.ConfirmCancelled:
		// 用户在等待确认期间删除了这条消息，同步删除服务端副本
		if err := e.api.DeleteMessage(ctx, confirmed.ID); err != nil {
			return confirmed, e.recordError(ctx, "delete cancelled message", err)
		}
		e.store.RemoveMessage(confirmed.ID)
		return confirmed, nil
	case store.ConfirmStale:
		e.logger.InfoContext(ctx, "send acknowledged after session reset", "id", confirmed.ID)
		return confirmed, nil
	}
	if err := e.adapter.PublishMessage(confirmed); err != nil {
		e.logger.DebugContext(ctx, "confirmed message not relayed", "id", confirmed.ID, "err", err)
	}
	return confirmed, nil
}

// UpdateMessage 编辑消息内容
func (e *ChatEngine) UpdateMessage(ctx context.Context, messageID int64, content string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	msg, ok := e.store.Snapshot().FindMessage(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if msg.IsLocal() {
		return ErrParamInvalid
	}
	updated, err := e.api.UpdateMessage(ctx, messageID, content)
	if err != nil {
		return e.recordError(ctx, "update message", err)
	}
	updated.ID = messageID
	if updated.Content == "" {
		updated.Content = content
	}
	e.store.ApplyEdit(updated)
	return nil
}

// DeleteMessage 删除消息；尚未确认的本地消息只在本地移除
func (e *ChatEngine) DeleteMessage(ctx context.Context, messageID int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	msg, ok := e.store.Snapshot().FindMessage(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if msg.IsLocal() {
		e.store.RemoveMessage(messageID)
		return nil
	}
	if err := e.api.DeleteMessage(ctx, messageID); err != nil {
		return e.recordError(ctx, "delete message", err)
	}
	e.store.RemoveMessage(messageID)

	if _, peer, err := e.counterpart(msg.ConversationID); err == nil {
		if err := e.adapter.SendDelete(messageID, msg.ConversationID, peer.ID); err != nil {
			e.logger.DebugContext(ctx, "delete notification not sent", "id", messageID, "err", err)
		}
	}
	return nil
}

// LoadMoreMessages 加载当前会话的下一页历史，没有更多或已在加载时直接返回
func (e *ChatEngine) LoadMoreMessages(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	convID := e.store.Snapshot().ActiveConversationID
	if convID == 0 {
		return ErrConversationNotFound
	}
	page, ok := e.store.BeginPageLoad(convID)
	if !ok {
		return nil
	}
	return e.loadPage(ctx, convID, page)
}

func (e *ChatEngine) loadPage(ctx context.Context, conversationID int64, page int) error {
	_, peer, err := e.counterpart(conversationID)
	if err != nil {
		e.store.EndPageLoad(conversationID)
		return err
	}
	result, err := e.api.ListMessages(ctx, peer.ID, page, e.cfg.PageSize)
	if err != nil {
		e.store.EndPageLoad(conversationID)
		return e.recordError(ctx, "load messages", err)
	}
	result.Page = page
	for i := range result.Items {
		if result.Items[i].ConversationID == 0 {
			result.Items[i].ConversationID = conversationID
		}
	}
	e.store.MergePage(conversationID, result)
	return nil
}

// MarkAsRead 清零会话未读并发送一次已读回执；REST 失败时恢复未读数
func (e *ChatEngine) MarkAsRead(ctx context.Context, conversationID int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	res, ok := e.store.MarkRead(conversationID)
	if !ok {
		return ErrConversationNotFound
	}
	if res.Delta > 0 {
		if err := e.api.MarkRead(ctx, conversationID); err != nil {
			e.store.RestoreUnread(conversationID, res.Delta)
			return e.recordError(ctx, "mark read", err)
		}
	}
	if res.LastReadMessageID > 0 {
		if err := e.adapter.SendReadReceipt(conversationID, e.currentUser(), res.LastReadMessageID); err != nil {
			e.logger.DebugContext(ctx, "read receipt not sent", "err", err)
		}
	}
	return nil
}

// SetVisible 界面从不可见变为可见时对当前会话标记一次已读
func (e *ChatEngine) SetVisible(ctx context.Context, visible bool) error {
	prev := e.store.SetVisible(visible)
	if !visible || prev || e.ready() != nil {
		return nil
	}
	if active := e.store.Snapshot().ActiveConversationID; active != 0 {
		return e.MarkAsRead(ctx, active)
	}
	return nil
}

// SendTypingIndicator 本地输入状态，true 视为一次按键
func (e *ChatEngine) SendTypingIndicator(isTyping bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.cfg.EnableTyping {
		return nil
	}
	if !isTyping {
		e.typer.Stop()
		return nil
	}
	conv, peer, err := e.counterpart(e.store.Snapshot().ActiveConversationID)
	if err != nil {
		return err
	}
	e.typer.Keystroke(conv.ID, peer.ID)
	return nil
}

func (e *ChatEngine) emitTyping(conversationID, recipientID int64, isTyping bool) {
	if err := e.adapter.SetTyping(conversationID, e.currentUser(), recipientID, isTyping); err != nil {
		e.logger.DebugContext(e.ctx(), "typing indicator not sent", "err", err)
	}
}

package protocol

import (
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

var errMissingField = errors.New("missing required field")

// ProtocolError 入站帧无法解码
type ProtocolError struct {
	Topic string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %s: %v", e.Topic, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeMessage 解码消息推送
func DecodeMessage(body []byte) (model.Message, error) {
	var d dto.MessageDTO
	if err := json.Unmarshal(body, &d); err != nil {
		return model.Message{}, err
	}
	if d.ID <= 0 || d.ConversationID <= 0 {
		return model.Message{}, fmt.Errorf("%w: id/conversationId", errMissingField)
	}
	return d.ToModel(), nil
}

// DecodeTyping 解码输入状态推送
func DecodeTyping(body []byte) (model.TypingIndicator, error) {
	var d dto.TypingFrame
	if err := json.Unmarshal(body, &d); err != nil {
		return model.TypingIndicator{}, err
	}
	if d.SenderID <= 0 {
		return model.TypingIndicator{}, fmt.Errorf("%w: senderId", errMissingField)
	}
	return model.TypingIndicator{ConversationID: d.ConversationID, SenderID: d.SenderID, IsTyping: d.IsTyping}, nil
}

// DecodePresence 解码在线状态推送
func DecodePresence(body []byte) (model.PresenceEvent, error) {
	var d dto.PresenceFrame
	if err := json.Unmarshal(body, &d); err != nil {
		return model.PresenceEvent{}, err
	}
	if d.UserID <= 0 {
		return model.PresenceEvent{}, fmt.Errorf("%w: userId", errMissingField)
	}
	switch strings.ToUpper(d.Status) {
	case "ONLINE":
		return model.PresenceEvent{UserID: d.UserID, Online: true}, nil
	case "OFFLINE":
		return model.PresenceEvent{UserID: d.UserID, Online: false}, nil
	default:
		return model.PresenceEvent{}, fmt.Errorf("unknown presence status %q", d.Status)
	}
}

// DecodeReadReceipt 解码已读回执
func DecodeReadReceipt(body []byte) (model.ReadReceipt, error) {
	var d dto.ReadFrame
	if err := json.Unmarshal(body, &d); err != nil {
		return model.ReadReceipt{}, err
	}
	if d.ConversationID <= 0 || d.ReaderID <= 0 {
		return model.ReadReceipt{}, fmt.Errorf("%w: conversationId/readerId", errMissingField)
	}
	return model.ReadReceipt{
		ConversationID:    d.ConversationID,
		ReaderID:          d.ReaderID,
		LastReadMessageID: d.LastReadMessageID,
		ReadAt:            d.ReadAt,
	}, nil
}

// DecodeDelete 解码删除通知
func DecodeDelete(body []byte) (model.DeleteNotification, error) {
	var d dto.DeleteFrame
	if err := json.Unmarshal(body, &d); err != nil {
		return model.DeleteNotification{}, err
	}
	if d.MessageID <= 0 {
		return model.DeleteNotification{}, fmt.Errorf("%w: messageId", errMissingField)
	}
	return model.DeleteNotification{MessageID: d.MessageID, ConversationID: d.ConversationID}, nil
}

package service

import (
	"ChatSync/internal/api/client"
	"ChatSync/internal/pkg/wsclient"
	"ChatSync/internal/protocol"
	"errors"
)

// ErrorKind 错误分类
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransport
	KindRequest
	KindProtocol
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRequest:
		return "request"
	case KindProtocol:
		return "protocol"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady             = errors.New("聊天引擎未就绪")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrMessageNotFound      = errors.New("消息不存在")
	ErrEmptyContent         = errors.New("消息内容不能为空")
	ErrParamInvalid         = errors.New("参数错误")
	ErrUnexpected           = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]ErrorKind{
	ErrNotReady:              KindValidation,
	ErrConversationNotFound:  KindValidation,
	ErrMessageNotFound:       KindValidation,
	ErrEmptyContent:          KindValidation,
	ErrParamInvalid:          KindValidation,
	ErrUnexpected:            KindRequest,
	wsclient.ErrNotConnected: KindTransport,
	wsclient.ErrClosed:       KindTransport,
}

// KindOf 判断错误所属分类
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for target, kind := range ErrorMap {
		if errors.Is(err, target) {
			return kind
		}
	}
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		return KindRequest
	}
	var protoErr *protocol.ProtocolError
	if errors.As(err, &protoErr) {
		return KindProtocol
	}
	return KindUnknown
}

package client

import (
	"ChatSync/internal/api/config"
	"ChatSync/internal/api/dto"
	"ChatSync/internal/model"
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/logger"
	"ChatSync/internal/pkg/util"
	"context"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ChatAPI 引擎依赖的 REST 接口
type ChatAPI interface {
	ListConversations(ctx context.Context, page, size int) (model.Page[model.Conversation], error)
	ListMessages(ctx context.Context, counterpartID int64, page, size int) (model.Page[model.Message], error)
	GetOrCreateConversation(ctx context.Context, counterpartID int64) (model.Conversation, error)
	SendMessage(ctx context.Context, req dto.SendMessageReq) (model.Message, error)
	UpdateMessage(ctx context.Context, messageID int64, content string) (model.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
	MarkRead(ctx context.Context, conversationID int64) error
	UnreadCount(ctx context.Context) (int, error)
	OnlineUsers(ctx context.Context) ([]int64, error)
	Participants(ctx context.Context) ([]model.Participant, error)
}

// Client 基于 resty 的 ChatAPI 实现
type Client struct {
	http *resty.Client
}

func NewClient(cfg config.ChatConfig, token string) *Client {
	c := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTransport(logger.NewRESTTransport(nil)).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json")
	if cfg.RequestTimeout > 0 {
		c.SetTimeout(cfg.RequestTimeout)
	}
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// ListConversations GET /conversations
func (c *Client) ListConversations(ctx context.Context, page, size int) (model.Page[model.Conversation], error) {
	data, err := call[dto.PageDTO[dto.ConversationDTO]](ctx, c, "list conversations", http.MethodGet, "/conversations", func(r *resty.Request) {
		r.SetQueryParams(pageParams(page, size))
	})
	if err != nil {
		return model.Page[model.Conversation]{}, err
	}
	items := make([]model.Conversation, 0, len(data.Content))
	for i := range data.Content {
		items = append(items, data.Content[i].ToModel())
	}
	return model.Page[model.Conversation]{Items: items, Page: data.Number, Last: data.Last}, nil
}

// ListMessages GET /conversations/{counterpartId}/messages
func (c *Client) ListMessages(ctx context.Context, counterpartID int64, page, size int) (model.Page[model.Message], error) {
	data, err := call[dto.PageDTO[dto.MessageDTO]](ctx, c, "list messages", http.MethodGet, "/conversations/{id}/messages", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(counterpartID, 10)).SetQueryParams(pageParams(page, size))
	})
	if err != nil {
		return model.Page[model.Message]{}, err
	}
	items := make([]model.Message, 0, len(data.Content))
	for i := range data.Content {
		items = append(items, data.Content[i].ToModel())
	}
	return model.Page[model.Message]{Items: items, Page: page, Last: data.Last}, nil
}

// GetOrCreateConversation POST /conversations/{counterpartId}
func (c *Client) GetOrCreateConversation(ctx context.Context, counterpartID int64) (model.Conversation, error) {
	data, err := call[dto.ConversationDTO](ctx, c, "get or create conversation", http.MethodPost, "/conversations/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(counterpartID, 10))
	})
	if err != nil {
		return model.Conversation{}, err
	}
	return data.ToModel(), nil
}

// SendMessage POST /messages
func (c *Client) SendMessage(ctx context.Context, req dto.SendMessageReq) (model.Message, error) {
	if err := util.ValidateDTO(req); err != nil {
		return model.Message{}, &RequestError{Op: "send message", Err: err}
	}
	data, err := call[dto.MessageDTO](ctx, c, "send message", http.MethodPost, "/messages", func(r *resty.Request) {
		r.SetBody(req)
	})
	if err != nil {
		return model.Message{}, err
	}
	return data.ToModel(), nil
}

// UpdateMessage PUT /messages/{id}
func (c *Client) UpdateMessage(ctx context.Context, messageID int64, content string) (model.Message, error) {
	req := dto.UpdateMessageReq{Content: content}
	if err := util.ValidateDTO(req); err != nil {
		return model.Message{}, &RequestError{Op: "update message", Err: err}
	}
	data, err := call[dto.MessageDTO](ctx, c, "update message", http.MethodPut, "/messages/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(messageID, 10)).SetBody(req)
	})
	if err != nil {
		return model.Message{}, err
	}
	return data.ToModel(), nil
}

// DeleteMessage DELETE /messages/{id}
func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	_, err := call[json.RawMessage](ctx, c, "delete message", http.MethodDelete, "/messages/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(messageID, 10))
	})
	return err
}

// MarkRead PUT /conversations/{id}/read
func (c *Client) MarkRead(ctx context.Context, conversationID int64) error {
	_, err := call[json.RawMessage](ctx, c, "mark read", http.MethodPut, "/conversations/{id}/read", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(conversationID, 10))
	})
	return err
}

// UnreadCount GET /unread-count
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	data, err := call[dto.UnreadCountDTO](ctx, c, "unread count", http.MethodGet, "/unread-count", nil)
	if err != nil {
		return 0, err
	}
	return data.Count, nil
}

// OnlineUsers GET /presence
func (c *Client) OnlineUsers(ctx context.Context) ([]int64, error) {
	data, err := call[dto.PresenceDTO](ctx, c, "presence", http.MethodGet, "/presence", nil)
	if err != nil {
		return nil, err
	}
	return data.OnlineUserIDs, nil
}

// Participants GET /participants
func (c *Client) Participants(ctx context.Context) ([]model.Participant, error) {
	data, err := call[[]dto.ParticipantDTO](ctx, c, "participants", http.MethodGet, "/participants", nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Participant, 0, len(data))
	for i := range data {
		out = append(out, data[i].ToModel())
	}
	return out, nil
}

// call 发送请求并拆开 {code, message, data} 信封
func call[T any](ctx context.Context, c *Client, op, method, path string, build func(r *resty.Request)) (T, error) {
	var zero T
	r := c.http.R().SetContext(ctx)
	if build != nil {
		build(r)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return zero, &RequestError{Op: op, Err: errors.Wrapf(err, "%s %s", method, path)}
	}

	var env dto.Response[T]
	body := resp.Body()
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			if resp.IsError() {
				return zero, &RequestError{Op: op, Status: resp.StatusCode(), Message: util.Truncate(string(body), 200)}
			}
			return zero, &RequestError{Op: op, Status: resp.StatusCode(), Err: errors.Wrap(err, "decode response")}
		}
	}
	if resp.IsError() || (len(body) > 0 && env.Code != consts.ResponseCodeOK) {
		return zero, &RequestError{Op: op, Status: resp.StatusCode(), Code: env.Code, Message: env.Message}
	}
	return env.Data, nil
}

func pageParams(page, size int) map[string]string {
	return map[string]string{
		"page": strconv.Itoa(page),
		"size": strconv.Itoa(size),
	}
}

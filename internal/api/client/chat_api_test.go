package client

import (
	"ChatSync/internal/api/config"
	"ChatSync/internal/api/dto"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": data})
}

func newTestServer(t *testing.T, register func(r *gin.Engine)) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer test-token" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "unauthorized"})
			return
		}
		c.Next()
	})
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewClient(config.ChatConfig{APIBase: srv.URL, RequestTimeout: 2 * time.Second}, "test-token")
}

func TestClient_ListConversations(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {
		r.GET("/conversations", func(c *gin.Context) {
			assert.Equal(t, "1", c.Query("page"))
			assert.Equal(t, "50", c.Query("size"))
			ok(c, dto.PageDTO[dto.ConversationDTO]{
				Content: []dto.ConversationDTO{{
					ID:           7,
					Participants: []dto.ParticipantDTO{{ID: 1}, {ID: 2, DisplayName: "bob"}},
					UnreadCount:  3,
				}},
				Number: 1,
				Last:   true,
			})
		})
	})

	page, err := c.ListConversations(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.True(t, page.Last)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Items[0].ID)
	assert.Equal(t, 3, page.Items[0].UnreadCount)
	assert.Equal(t, "bob", page.Items[0].Participants[1].DisplayName)
}

func TestClient_ListMessages(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {
		r.GET("/conversations/:id/messages", func(c *gin.Context) {
			assert.Equal(t, "2", c.Param("id"))
			ok(c, dto.PageDTO[dto.MessageDTO]{
				Content: []dto.MessageDTO{
					{ID: 11, ConversationID: 7, Content: "b", Status: "READ"},
					{ID: 10, ConversationID: 7, Content: "a"},
				},
				Last: false,
			})
		})
	})

	page, err := c.ListMessages(context.Background(), 2, 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.False(t, page.Last)
	assert.Equal(t, "READ", string(page.Items[0].Status))
	assert.Equal(t, "SENT", string(page.Items[1].Status))
}

func TestClient_SendMessage(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {
		r.POST("/messages", func(c *gin.Context) {
			var req dto.SendMessageReq
			require.NoError(t, c.ShouldBindJSON(&req))
			assert.Equal(t, "hello", req.Content)
			ok(c, dto.MessageDTO{ID: 42, ConversationID: req.ConversationID, Content: req.Content, Status: "SENT"})
		})
	})

	msg, err := c.SendMessage(context.Background(), dto.SendMessageReq{
		ConversationID: 7, RecipientID: 2, Content: "hello", Type: "TEXT",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.ID)

	_, err = c.SendMessage(context.Background(), dto.SendMessageReq{ConversationID: 7, RecipientID: 2, Type: "TEXT"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.Status, "validation fails before the request is sent")
}

func TestClient_EnvelopeError(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {
		r.PUT("/conversations/:id/read", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"code": 404, "message": "conversation not found"})
		})
		r.DELETE("/messages/:id", func(c *gin.Context) {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "forbidden"})
		})
		r.GET("/unread-count", func(c *gin.Context) {
			c.String(http.StatusBadGateway, "upstream down")
		})
	})

	err := c.MarkRead(context.Background(), 9)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusOK, reqErr.Status)
	assert.Equal(t, 404, reqErr.Code)
	assert.Equal(t, "mark read", reqErr.Op)
	assert.Contains(t, err.Error(), "conversation not found")

	err = c.DeleteMessage(context.Background(), 5)
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusForbidden, reqErr.Status)
	assert.Equal(t, "forbidden", reqErr.Message)

	_, err = c.UnreadCount(context.Background())
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadGateway, reqErr.Status)
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {})
	c.http.SetAuthToken("wrong")

	_, err := c.Participants(context.Background())
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
}

func TestClient_TransportFailure(t *testing.T) {
	c := NewClient(config.ChatConfig{APIBase: "http://127.0.0.1:1", RequestTimeout: time.Second}, "")

	_, err := c.UnreadCount(context.Background())
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.Status)
	assert.Error(t, errors.Unwrap(reqErr))
}

func TestClient_SmallEndpoints(t *testing.T) {
	c := newTestServer(t, func(r *gin.Engine) {
		r.GET("/unread-count", func(c *gin.Context) { ok(c, dto.UnreadCountDTO{Count: 4}) })
		r.GET("/presence", func(c *gin.Context) { ok(c, dto.PresenceDTO{OnlineUserIDs: []int64{2, 3}}) })
		r.GET("/participants", func(c *gin.Context) {
			ok(c, []dto.ParticipantDTO{{ID: 2, DisplayName: "bob", Role: "COMPANY"}})
		})
		r.POST("/conversations/:id", func(c *gin.Context) {
			ok(c, dto.ConversationDTO{ID: 8, Participants: []dto.ParticipantDTO{{ID: 1}, {ID: 3}}})
		})
		r.PUT("/messages/:id", func(c *gin.Context) {
			var req dto.UpdateMessageReq
			require.NoError(t, c.ShouldBindJSON(&req))
			ok(c, dto.MessageDTO{ID: 5, ConversationID: 8, Content: req.Content, IsEdited: true})
		})
	})
	ctx := context.Background()

	n, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	online, err := c.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, online)

	ps, err := c.Participants(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "COMPANY", ps[0].Role)

	conv, err := c.GetOrCreateConversation(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), conv.ID)

	edited, err := c.UpdateMessage(ctx, 5, "changed")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, "changed", edited.Content)
}

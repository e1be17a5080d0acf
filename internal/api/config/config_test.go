package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
chat:
  api_base: "http://localhost:8080/api"
  socket_url: "ws://localhost:8080/ws"
  enable_presence: false
  page_size: 50
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.Chat.APIBase)
	assert.Equal(t, 50, cfg.Chat.PageSize)
	assert.False(t, cfg.Chat.EnablePresence)
	// 未出现的字段取默认值
	assert.True(t, cfg.Chat.EnableTyping)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, "@every 30s", cfg.Chat.UnreadRefreshSpec)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
chat:
  api_base: "http://localhost:8080/api"
  socket_url: "ws://localhost:8080/ws"
`)
	t.Setenv("CHATSYNC_CHAT_PAGE_SIZE", "30")
	t.Setenv("CHATSYNC_AUTH_USER_ID", "42")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Chat.PageSize)
	assert.Equal(t, int64(42), cfg.Auth.UserID)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
chat:
  api_base: "not a url"
  socket_url: "ws://localhost:8080/ws"
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "地址为空时校验失败")

	cfg.Chat.APIBase = "http://localhost:8080/api"
	cfg.Chat.SocketURL = "ws://localhost:8080/ws"
	assert.NoError(t, cfg.Validate())

	cfg.Chat.PageSize = 0
	assert.Error(t, cfg.Validate())
}

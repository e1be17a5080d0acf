package config

import "time"

// Config 配置主体
type Config struct {
	Chat ChatConfig `mapstructure:"chat"`
	Log  LogConfig  `mapstructure:"log"`
	Auth AuthConfig `mapstructure:"auth"`
}

// ChatConfig 聊天同步引擎配置
type ChatConfig struct {
	APIBase              string        `mapstructure:"api_base" validate:"required,url"`
	SocketURL            string        `mapstructure:"socket_url" validate:"required,url"`
	EnableTyping         bool          `mapstructure:"enable_typing"`
	EnablePresence       bool          `mapstructure:"enable_presence"`
	EnableReadReceipts   bool          `mapstructure:"enable_read_receipts"`
	PageSize             int           `mapstructure:"page_size" validate:"gt=0,lte=200"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts" validate:"gte=0"`
	TypingTTL            time.Duration `mapstructure:"typing_ttl" validate:"gt=0"`
	TypingStopDelay      time.Duration `mapstructure:"typing_stop_delay" validate:"gt=0"`
	UnreadRefreshSpec    string        `mapstructure:"unread_refresh_spec"` // 为空则不启用定时刷新
	WriteTimeout         time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	PingInterval         time.Duration `mapstructure:"ping_interval" validate:"gte=0"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" validate:"gte=0"` // 0 表示不设置客户端超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// AuthConfig 登录凭据，仅供命令行工具使用
type AuthConfig struct {
	Token  string `mapstructure:"token"`
	UserID int64  `mapstructure:"user_id"`
}

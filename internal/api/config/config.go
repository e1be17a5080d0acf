package config

import (
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CHATSYNC"

// Default 返回默认配置，未在配置文件中出现的字段以此为准
func Default() *Config {
	return &Config{
		Chat: ChatConfig{
			EnableTyping:         true,
			EnablePresence:       true,
			EnableReadReceipts:   true,
			PageSize:             consts.DefaultPageSize,
			ReconnectDelay:       5 * time.Second,
			MaxReconnectAttempts: 5,
			TypingTTL:            3 * time.Second,
			TypingStopDelay:      2 * time.Second,
			UnreadRefreshSpec:    "@every 30s",
			WriteTimeout:         10 * time.Second,
			PingInterval:         25 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig 从文件加载配置；path 为空时从 ./configs/config.yaml 读取
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := util.ValidateDTO(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("chat.api_base", d.Chat.APIBase)
	v.SetDefault("chat.socket_url", d.Chat.SocketURL)
	v.SetDefault("chat.enable_typing", d.Chat.EnableTyping)
	v.SetDefault("chat.enable_presence", d.Chat.EnablePresence)
	v.SetDefault("chat.enable_read_receipts", d.Chat.EnableReadReceipts)
	v.SetDefault("chat.page_size", d.Chat.PageSize)
	v.SetDefault("chat.reconnect_delay", d.Chat.ReconnectDelay)
	v.SetDefault("chat.max_reconnect_attempts", d.Chat.MaxReconnectAttempts)
	v.SetDefault("chat.typing_ttl", d.Chat.TypingTTL)
	v.SetDefault("chat.typing_stop_delay", d.Chat.TypingStopDelay)
	v.SetDefault("chat.unread_refresh_spec", d.Chat.UnreadRefreshSpec)
	v.SetDefault("chat.write_timeout", d.Chat.WriteTimeout)
	v.SetDefault("chat.ping_interval", d.Chat.PingInterval)
	v.SetDefault("chat.request_timeout", d.Chat.RequestTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("auth.token", d.Auth.Token)
	v.SetDefault("auth.user_id", d.Auth.UserID)
}

package wire

import (
	"ChatSync/internal/api/client"
	"ChatSync/internal/api/config"
	"ChatSync/internal/pkg/metrics"
	"ChatSync/internal/pkg/wsclient"
	"ChatSync/internal/service"
	log "log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineContainer 封装引擎运行所需的顶级组件
type EngineContainer struct {
	Engine   *service.ChatEngine
	Socket   *wsclient.Client
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

func BuildEngine(cfg *config.Config) (*EngineContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chat := cfg.Chat

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	socket := wsclient.NewClient(wsclient.Options{
		URL:                  chat.SocketURL,
		ReconnectDelay:       chat.ReconnectDelay,
		MaxReconnectAttempts: chat.MaxReconnectAttempts,
		WriteTimeout:         chat.WriteTimeout,
		PingInterval:         chat.PingInterval,
		Logger:               log.Default(),
		Metrics:              m,
	})

	engine := service.NewChatEngine(service.EngineOptions{
		Config:  chat,
		Token:   cfg.Auth.Token,
		UserID:  cfg.Auth.UserID,
		API:     client.NewClient(chat, cfg.Auth.Token),
		Socket:  socket,
		Metrics: m,
		Logger:  log.Default(),
	})

	return &EngineContainer{
		Engine:   engine,
		Socket:   socket,
		Metrics:  m,
		Registry: registry,
	}, nil
}

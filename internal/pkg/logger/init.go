package logger

import (
	"ChatSync/internal/api/config"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
)

// InitLogger 初始化全局日志：stdout JSON，配置了 file 时同时写入文件
// 返回的 io.Closer 用于关闭日志文件
func InitLogger(cfg config.LogConfig) (io.Closer, error) {
	level := parseLevel(cfg.Level)

	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: level})
	var finalHandler log.Handler = hStdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		hFile := log.NewJSONHandler(f, &log.HandlerOptions{Level: level})
		finalHandler = NewTeeHandler(hStdout, hFile)
		closer = f
	}

	log.SetDefault(log.New(&ContextHandler{finalHandler}))
	return closer, nil
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

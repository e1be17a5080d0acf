package job

import (
	"ChatSync/internal/pkg/consts"
	"ChatSync/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// UnreadRefresher 能够从服务端刷新未读总数的组件
type UnreadRefresher interface {
	RefreshUnread(ctx context.Context) error
}

// UnreadRefreshJob 周期性以服务端未读总数校正本地计数
type UnreadRefreshJob struct {
	refresher UnreadRefresher
	timeout   time.Duration
}

func NewUnreadRefreshJob(refresher UnreadRefresher, timeout time.Duration) *UnreadRefreshJob {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UnreadRefreshJob{refresher: refresher, timeout: timeout}
}

func (s *UnreadRefreshJob) Run() {
	traceID := consts.UnreadJobTracePrefix + uuid.NewString()
	ctx, cancel := context.WithTimeout(logger.WithTraceID(context.Background(), traceID), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.RefreshUnread(ctx); err != nil {
		log.WarnContext(ctx, "refresh unread count error", "err", err)
		return
	}
	log.DebugContext(ctx, "unread count refreshed", "cost", time.Since(start))
}

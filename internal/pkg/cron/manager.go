package cron

import (
	log "log/slog"

	"github.com/robfig/cron/v3"
)

// Manager 定时任务引擎
type Manager struct {
	engine  *cron.Cron
	entries []cron.EntryID
}

func NewCronManager() *Manager {
	return &Manager{
		engine: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Register 注册定时任务，spec 为空时跳过
func (s *Manager) Register(spec string, job cron.Job) error {
	if spec == "" {
		return nil
	}
	id, err := s.engine.AddJob(spec, job)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, id)
	return nil
}

// Len 已注册任务数
func (s *Manager) Len() int {
	return len(s.entries)
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动", "jobs", len(s.entries))
	s.engine.Start()
}

// Stop 停止调度并等待正在运行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}

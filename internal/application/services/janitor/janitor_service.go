package janitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// ActiveSessions 返回仍在使用中的会话 ID
type ActiveSessions func() []string

// Service 定期清理工作目录中遗留的文件
// 进程异常退出时，会话目录可能没有被删除
type Service struct {
	cron     *cron.Cron
	spec     string
	workDir  string
	maxAge   time.Duration
	active   ActiveSessions
	onRemove func(n int)
	now      func() time.Time

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
	lastRun time.Time
}

// NewService spec 为标准5字段 cron 表达式（分 时 日 月 周）
func NewService(spec, workDir string, maxAge time.Duration, active ActiveSessions, onRemove func(n int)) (*Service, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return &Service{
		cron:     cron.New(),
		spec:     spec,
		workDir:  workDir,
		maxAge:   maxAge,
		active:   active,
		onRemove: onRemove,
		now:      time.Now,
	}, nil
}

// Start 启动调度器
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("janitor already running")
	}

	id, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(); err != nil {
			logger.Error("Janitor run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	s.entryID = id
	s.cron.Start()
	s.running = true
	logger.Info("Janitor started", "cron", s.spec, "workDir", s.workDir, "maxAge", s.maxAge)
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)
	s.running = false
	logger.Info("Janitor stopped")
}

// RunOnce 立即执行一次清理，返回删除的条目数
func (s *Service) RunOnce() (int, error) {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read work directory: %w", err)
	}

	keep := make(map[string]struct{})
	if s.active != nil {
		for _, id := range s.active() {
			keep[id] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if _, ok := keep[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove orphaned work entry", "path", path, "error", err)
			continue
		}
		removed++
		logger.Debug("Removed orphaned work entry", "path", path, "modTime", info.ModTime())
	}

	s.mu.Lock()
	s.lastRun = s.now()
	s.mu.Unlock()

	if removed > 0 {
		logger.Info("Janitor removed orphaned work entries", "count", removed)
		if s.onRemove != nil {
			s.onRemove(removed)
		}
	}
	return removed, nil
}

// LastRun 上次执行时间
func (s *Service) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRun 下次执行时间，未启动时为零值
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

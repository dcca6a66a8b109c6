package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/application/services/janitor"
	"github.com/easayliu/tg-file-renamer/internal/application/services/preference"
	"github.com/easayliu/tg-file-renamer/internal/application/services/renamer"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/internal/domain/repositories"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/metrics"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/ratelimit"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/repository"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/telegram"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// expireNotifyTimeout 超时通知的最长耗时
const expireNotifyTimeout = 30 * time.Second

// ServiceContainer 服务容器 - 实现依赖注入
type ServiceContainer struct {
	config *config.Config

	prefRepo          repositories.PreferenceRepository
	preferenceService *preference.Service
	sessionStore      *rename.SessionStore
	metrics           *metrics.Metrics
	telegramClient    *telegram.Client // Telegram 未启用时为 nil
	orchestrator      *renamer.Orchestrator
	janitorService    *janitor.Service

	// 单例模式锁
	once    sync.Once
	initErr error
}

// NewServiceContainer 创建服务容器
func NewServiceContainer(cfg *config.Config) *ServiceContainer {
	return &ServiceContainer{
		config: cfg,
	}
}

// Init 初始化所有服务，只执行一次
func (c *ServiceContainer) Init() error {
	c.once.Do(func() {
		c.initErr = c.initServices()
	})
	return c.initErr
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	return c.config
}

// GetPreferenceService 获取偏好服务
func (c *ServiceContainer) GetPreferenceService() *preference.Service {
	c.Init()
	return c.preferenceService
}

// GetSessionStore 获取会话存储
func (c *ServiceContainer) GetSessionStore() *rename.SessionStore {
	c.Init()
	return c.sessionStore
}

// GetMetrics 获取指标
func (c *ServiceContainer) GetMetrics() *metrics.Metrics {
	c.Init()
	return c.metrics
}

// GetTelegramClient 获取 Telegram 客户端，未启用时为 nil
func (c *ServiceContainer) GetTelegramClient() *telegram.Client {
	c.Init()
	return c.telegramClient
}

// GetOrchestrator 获取重命名编排器，Telegram 未启用时为 nil
func (c *ServiceContainer) GetOrchestrator() *renamer.Orchestrator {
	c.Init()
	return c.orchestrator
}

// GetJanitorService 获取清理服务，未启用时为 nil
func (c *ServiceContainer) GetJanitorService() *janitor.Service {
	c.Init()
	return c.janitorService
}

// initServices 初始化所有服务，按依赖顺序
func (c *ServiceContainer) initServices() error {
	logger.Info("Initializing service container")

	// 1. 基础设施层
	repo, err := repository.NewPreferenceRepository(c.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize preference repository: %w", err)
	}
	c.prefRepo = repo
	c.preferenceService = preference.NewService(repo)

	c.sessionStore = rename.NewSessionStore(c.config.Rename.SessionTimeout,
		rename.WithExpireHook(c.onSessionExpired))
	c.metrics = metrics.New(c.sessionStore.Len)

	// 2. Telegram 传输层和编排器
	if c.config.Telegram.Enabled {
		limiter := ratelimit.NewRateLimiter(c.config.Telegram.QPS, c.config.Telegram.ChatQPS)
		client, err := telegram.NewClient(&c.config.Telegram, limiter,
			telegram.WithMaxDownloadSize(c.config.Rename.MaxFileSize()))
		if err != nil {
			return fmt.Errorf("failed to initialize telegram client: %w", err)
		}
		c.telegramClient = client

		c.orchestrator = renamer.NewOrchestrator(c.sessionStore, client, c.preferenceService, c.metrics, renamer.Options{
			WorkDir:          c.config.Rename.WorkDir,
			ShowProgress:     c.config.Rename.ShowProgress,
			ProgressInterval: c.config.Rename.ProgressInterval,
			DeleteInput:      c.config.Rename.DeleteInput,
			MaxFileSize:      c.config.Rename.MaxFileSize(),
			UploadErrorLimit: c.config.Rename.UploadErrorLimit,
		})
	} else {
		logger.Info("Telegram disabled, rename workflow not available")
	}

	// 3. 定时清理
	if c.config.Janitor.Enabled {
		svc, err := janitor.NewService(c.config.Janitor.Cron, c.config.Rename.WorkDir, c.config.Janitor.MaxAge,
			c.activeSessionIDs, c.metrics.JanitorRemoved)
		if err != nil {
			return fmt.Errorf("failed to initialize janitor: %w", err)
		}
		c.janitorService = svc
	}

	logger.Info("Service container initialized successfully",
		"storage", c.config.Storage.Driver,
		"telegram", c.telegramClient != nil,
		"janitor", c.janitorService != nil)
	return nil
}

// activeSessionIDs 会话 ID 即工作目录名，包括已被新文件覆盖但仍在上传的任务
func (c *ServiceContainer) activeSessionIDs() []string {
	return c.sessionStore.ActiveIDs()
}

// onSessionExpired 删除提示消息并通知用户
func (c *ServiceContainer) onSessionExpired(session rename.Session) {
	if c.metrics != nil {
		c.metrics.SessionExpired()
	}
	logger.Info("Rename session expired",
		"userID", session.UserID,
		"sessionID", session.ID,
		"file", session.Artifact.FileName)

	if c.telegramClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), expireNotifyTimeout)
	defer cancel()

	if err := c.telegramClient.DeleteMessage(ctx, session.Prompt); err != nil {
		logger.Debug("Failed to delete expired prompt", "error", err)
	}
	chatID := session.Artifact.Message.ChatID
	if chatID == 0 {
		chatID = session.UserID
	}
	if _, err := c.telegramClient.SendText(ctx, chatID, renamer.ExpiredText(session.Artifact.FileName)); err != nil {
		logger.Warn("Failed to send expiry notice", "userID", session.UserID, "error", err)
	}
}

// Shutdown 关闭服务容器
func (c *ServiceContainer) Shutdown() {
	logger.Info("Shutting down service container")

	if c.janitorService != nil {
		c.janitorService.Stop()
	}
	if c.sessionStore != nil {
		c.sessionStore.Stop()
	}
	if c.prefRepo != nil {
		if err := c.prefRepo.Close(); err != nil {
			logger.Warn("Failed to close preference repository", "error", err)
		}
	}

	logger.Info("Service container shutdown completed")
}

// ValidateServices 验证服务配置
func (c *ServiceContainer) ValidateServices() error {
	if err := c.Init(); err != nil {
		return err
	}

	if c.preferenceService == nil {
		return fmt.Errorf("preference service not initialized")
	}
	if c.sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	if c.config.Telegram.Enabled && c.orchestrator == nil {
		return fmt.Errorf("rename orchestrator not initialized")
	}

	logger.Info("Service validation completed successfully")
	return nil
}

// GetServiceHealth 获取服务健康状态
func (c *ServiceContainer) GetServiceHealth() map[string]interface{} {
	initErr := c.Init()

	status := "healthy"
	if initErr != nil {
		status = "unhealthy"
	}

	health := map[string]interface{}{
		"container": status,
		"services": map[string]interface{}{
			"preference_service": c.getServiceStatus(c.preferenceService != nil),
			"session_store":      c.getServiceStatus(c.sessionStore != nil),
			"telegram":           c.getOptionalStatus(c.config.Telegram.Enabled, c.telegramClient != nil),
			"orchestrator":       c.getOptionalStatus(c.config.Telegram.Enabled, c.orchestrator != nil),
			"janitor":            c.getOptionalStatus(c.config.Janitor.Enabled, c.janitorService != nil),
		},
		"storage": c.config.Storage.Driver,
	}
	if c.sessionStore != nil {
		health["active_sessions"] = c.sessionStore.Len()
	}
	if c.janitorService != nil {
		health["janitor_last_run"] = c.janitorService.LastRun()
	}
	if initErr != nil {
		health["error"] = initErr.Error()
	}
	return health
}

// getServiceStatus 获取服务状态
func (c *ServiceContainer) getServiceStatus(initialized bool) string {
	if initialized {
		return "healthy"
	}
	return "unhealthy"
}

func (c *ServiceContainer) getOptionalStatus(enabled, initialized bool) string {
	if !enabled {
		return "disabled"
	}
	return c.getServiceStatus(initialized)
}

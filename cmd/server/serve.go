package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/easayliu/tg-file-renamer/internal/application/container"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
	tgiface "github.com/easayliu/tg-file-renamer/internal/interfaces/telegram"
	"github.com/easayliu/tg-file-renamer/internal/interfaces/http/routes"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// 加载配置
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if err := logger.Init(logger.Options{
		Level:     cfg.Log.Level,
		Output:    cfg.Log.Output,
		Format:    cfg.Log.Format,
		FilePath:  cfg.Log.FilePath,
		Colorize:  cfg.Log.Colorize,
		AddSource: cfg.Log.AddSource,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	if err := os.MkdirAll(cfg.Rename.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	// 初始化服务容器
	c := container.NewServiceContainer(cfg)
	if err := c.ValidateServices(); err != nil {
		c.Shutdown()
		return err
	}
	defer c.Shutdown()

	// Telegram 更新处理
	var controller *tgiface.Controller
	if client := c.GetTelegramClient(); client != nil {
		handler := tgiface.NewHandler(c.GetSessionStore(), client, c.GetOrchestrator(),
			c.GetPreferenceService(), c.GetMetrics(), cfg.Telegram.AdminIDs)
		controller = tgiface.NewController(client, handler, c.GetMetrics(), cfg.Telegram.PollTimeout)

		if err := client.RegisterBotCommands(); err != nil {
			logger.Warn("Failed to register bot commands", "error", err)
		}
	}

	if janitor := c.GetJanitorService(); janitor != nil {
		if err := janitor.Start(); err != nil {
			return err
		}
	}

	var webhook gin.HandlerFunc
	if controller != nil {
		if cfg.Telegram.Webhook.Enabled {
			webhook = controller.Webhook
			// Webhook 模式：自动设置 webhook
			if err := c.GetTelegramClient().SetWebhook(cfg.Telegram.Webhook.URL); err != nil {
				logger.Error("Failed to set telegram webhook", "error", err)
			} else {
				logger.Info("Telegram webhook mode enabled")
			}
		} else {
			// Polling 模式
			controller.StartPolling()
			logger.Info("Telegram polling mode enabled")
		}
	}

	// 初始化路由
	router := routes.SetupRoutes(c, webhook)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 设置信号处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}

	// 停止Telegram轮询并等待处理中的更新
	if controller != nil {
		controller.Stop()
		logger.Info("Telegram polling stopped")
	}

	logger.Info("Server stopped")
	return nil
}

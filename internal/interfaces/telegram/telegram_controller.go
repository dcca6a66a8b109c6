package telegram

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// pollRetryDelay 拉取更新失败后的等待时间
var pollRetryDelay = 5 * time.Second

// Controller 负责接收更新并分发给 Handler
// 每个更新在独立的 goroutine 中处理，单个用户的失败不影响其他用户
type Controller struct {
	source      UpdateSource
	handler     *Handler
	metrics     Metrics
	pollTimeout int

	lastUpdateID int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	polling      bool
}

// NewController 创建控制器，source 仅在轮询模式下使用
func NewController(source UpdateSource, handler *Handler, metrics Metrics, pollTimeout int) *Controller {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:      source,
		handler:     handler,
		metrics:     metrics,
		pollTimeout: pollTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Webhook 处理 Webhook 请求
func (c *Controller) Webhook(ctx *gin.Context) {
	var update tgbotapi.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		logger.Error("Failed to parse telegram update", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update format"})
		return
	}

	c.Dispatch(update)
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// StartPolling 开始长轮询
func (c *Controller) StartPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil || c.polling {
		return
	}
	c.polling = true

	if err := c.source.DeleteWebhook(); err != nil {
		logger.Warn("Failed to delete webhook before polling", "error", err)
	}

	logger.Info("Starting Telegram polling", "timeout", c.pollTimeout)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				logger.Info("Telegram polling stopped")
				return
			default:
				c.pollUpdates()
			}
		}
	}()
}

// Stop 停止轮询并等待处理中的更新完成
func (c *Controller) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) pollUpdates() {
	updates, err := c.source.GetUpdates(c.ctx, c.lastUpdateID+1, c.pollTimeout)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		logger.Error("Failed to get telegram updates", "error", err)
		select {
		case <-c.ctx.Done():
		case <-time.After(pollRetryDelay):
		}
		return
	}

	for _, update := range updates {
		if update.UpdateID > c.lastUpdateID {
			c.lastUpdateID = update.UpdateID
		}
		c.Dispatch(update)
	}
}

// Dispatch 异步处理单个更新
func (c *Controller) Dispatch(update tgbotapi.Update) {
	if update.Message == nil {
		c.metrics.UpdateHandled("unsupported")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic while handling telegram update",
					"updateID", update.UpdateID,
					"panic", r,
					"stack", string(debug.Stack()))
				c.metrics.UpdateHandled("panic")
			}
		}()

		kind := c.handler.HandleMessage(c.ctx, update.Message)
		c.metrics.UpdateHandled(kind)
	}()
}

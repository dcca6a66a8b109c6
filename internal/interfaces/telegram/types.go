package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/tg-file-renamer/internal/application/services/renamer"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
)

// MessageSender 发送和删除消息
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) (rename.MessageRef, error)
	DeleteMessage(ctx context.Context, ref rename.MessageRef) error
}

// UpdateSource 长轮询更新来源
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int, timeout int) ([]tgbotapi.Update, error)
	DeleteWebhook() error
}

// Renamer 重命名编排器
type Renamer interface {
	Run(ctx context.Context, req renamer.Request) renamer.Result
}

// Metrics 更新分发相关指标
type Metrics interface {
	SessionCreated()
	UpdateHandled(kind string)
}

type nopMetrics struct{}

func (nopMetrics) SessionCreated()      {}
func (nopMetrics) UpdateHandled(string) {}

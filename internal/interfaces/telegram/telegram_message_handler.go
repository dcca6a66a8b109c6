package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/tg-file-renamer/internal/application/services/preference"
	"github.com/easayliu/tg-file-renamer/internal/application/services/renamer"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	tginfra "github.com/easayliu/tg-file-renamer/internal/infrastructure/telegram"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// Handler 处理私聊消息：文件、文件名输入、缩略图和命令
type Handler struct {
	store    *rename.SessionStore
	sender   MessageSender
	renamer  Renamer
	prefs    *preference.Service
	metrics  Metrics
	adminIDs []int64
}

// NewHandler 创建消息处理器，metrics 可为 nil
func NewHandler(store *rename.SessionStore, sender MessageSender, r Renamer, prefs *preference.Service, metrics Metrics, adminIDs []int64) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Handler{
		store:    store,
		sender:   sender,
		renamer:  r,
		prefs:    prefs,
		metrics:  metrics,
		adminIDs: adminIDs,
	}
}

// HandleMessage 按消息类型分发，返回用于统计的类型
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) string {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return "ignored"
	}
	if !msg.Chat.IsPrivate() {
		return "ignored"
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !tginfra.IsAuthorized(h.adminIDs, userID) {
		h.reply(ctx, chatID, "未授权访问")
		logger.Warn("Unauthorized telegram access attempt", "userID", userID, "username", msg.From.UserName)
		return "unauthorized"
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return "command"
	}

	if artifact, ok := artifactFromMessage(msg); ok {
		h.handleFile(ctx, userID, chatID, artifact)
		return "file"
	}

	if len(msg.Photo) > 0 {
		h.handlePhoto(ctx, userID, chatID, msg.Photo)
		return "photo"
	}

	if strings.TrimSpace(msg.Text) != "" {
		h.handleText(ctx, msg)
		return "text"
	}
	return "ignored"
}

// handleFile 收到文件后创建会话并提示输入新文件名
// 已有会话会被覆盖
func (h *Handler) handleFile(ctx context.Context, userID, chatID int64, artifact rename.ArtifactRef) {
	session := h.store.Create(userID, artifact, rename.MessageRef{})
	h.metrics.SessionCreated()
	logger.Info("Rename session created",
		"userID", userID,
		"sessionID", session.ID,
		"file", artifact.FileName,
		"kind", artifact.Kind,
		"size", artifact.Size)

	prompt, err := h.sender.SendText(ctx, chatID, renamer.PromptText(artifact, h.store.Timeout()))
	if err != nil {
		logger.Warn("Failed to send rename prompt", "userID", userID, "error", err)
		return
	}

	// 提示发出前会话可能已被替换或消费
	if !h.store.SetPrompt(userID, session.ID, prompt) {
		if err := h.sender.DeleteMessage(ctx, prompt); err != nil {
			logger.Debug("Failed to delete stale prompt", "error", err)
		}
	}
}

// handleText 普通文本作为新文件名，没有会话时忽略
func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	h.renamer.Run(ctx, renamer.Request{
		UserID:       msg.From.ID,
		ChatID:       msg.Chat.ID,
		Input:        msg.Text,
		InputMessage: rename.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
	})
}

// handlePhoto 图片作为自定义缩略图，取最大尺寸
func (h *Handler) handlePhoto(ctx context.Context, userID, chatID int64, photos []tgbotapi.PhotoSize) {
	largest := photos[len(photos)-1]
	if err := h.prefs.SetThumbnail(ctx, userID, largest.FileID); err != nil {
		logger.Error("Failed to save thumbnail", "userID", userID, "error", err)
		h.reply(ctx, chatID, "❌ 缩略图保存失败，请稍后再试。")
		return
	}
	h.reply(ctx, chatID, "✅ 缩略图已保存，之后上传的文件都会使用它。\n发送 /delthumb 删除。")
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.sender.SendText(ctx, chatID, text); err != nil {
		logger.Error("Failed to send telegram message", "chatID", chatID, "error", err)
	}
}

// artifactFromMessage 提取文档、视频或音频
func artifactFromMessage(msg *tgbotapi.Message) (rename.ArtifactRef, bool) {
	ref := rename.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}

	switch {
	case msg.Document != nil:
		return rename.ArtifactRef{
			Message:  ref,
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Kind:     rename.KindDocument,
			Size:     int64(msg.Document.FileSize),
		}, true
	case msg.Video != nil:
		return rename.ArtifactRef{
			Message:     ref,
			FileID:      msg.Video.FileID,
			FileName:    msg.Video.FileName,
			MimeType:    msg.Video.MimeType,
			Kind:        rename.KindVideo,
			Size:        int64(msg.Video.FileSize),
			Duration:    msg.Video.Duration,
			HasDuration: true,
		}, true
	case msg.Audio != nil:
		return rename.ArtifactRef{
			Message:     ref,
			FileID:      msg.Audio.FileID,
			FileName:    msg.Audio.FileName,
			MimeType:    msg.Audio.MimeType,
			Kind:        rename.KindAudio,
			Size:        int64(msg.Audio.FileSize),
			Duration:    msg.Audio.Duration,
			HasDuration: true,
		}, true
	}
	return rename.ArtifactRef{}, false
}

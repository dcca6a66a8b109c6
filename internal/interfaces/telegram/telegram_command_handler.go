package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/tg-file-renamer/internal/application/services/renamer"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	logger.Info("Received telegram command", "command", msg.Command(), "from", msg.From.UserName, "chatID", chatID)

	switch msg.Command() {
	case "start":
		h.reply(ctx, chatID, startText())
	case "help":
		h.reply(ctx, chatID, helpText())
	case "rename":
		h.handleRename(ctx, msg, args)
	case "cancel":
		h.handleCancel(ctx, userID, chatID)
	case "sendas":
		h.handleSendAs(ctx, userID, chatID, args)
	case "setcaption":
		h.handleSetCaption(ctx, userID, chatID, args)
	case "delcaption":
		if err := h.prefs.SetCaptionTemplate(ctx, userID, ""); err != nil {
			h.replyError(ctx, chatID, "删除说明文字", err)
			return
		}
		h.reply(ctx, chatID, "✅ 说明文字模板已删除，之后使用原文件名作为说明。")
	case "showcaption":
		h.handleShowCaption(ctx, userID, chatID)
	case "delthumb":
		if err := h.prefs.SetThumbnail(ctx, userID, ""); err != nil {
			h.replyError(ctx, chatID, "删除缩略图", err)
			return
		}
		h.reply(ctx, chatID, "✅ 自定义缩略图已删除。")
	case "stats":
		h.handleStats(ctx, userID, chatID)
	default:
		h.reply(ctx, chatID, "未知命令，发送 /help 查看可用命令")
	}
}

// handleRename 与文本输入走同一个编排器
func (h *Handler) handleRename(ctx context.Context, msg *tgbotapi.Message, newName string) {
	result := h.renamer.Run(ctx, renamer.Request{
		UserID:       msg.From.ID,
		ChatID:       msg.Chat.ID,
		Input:        newName,
		InputMessage: rename.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
	})
	if result.Outcome == renamer.OutcomeNoSession {
		h.reply(ctx, msg.Chat.ID, renamer.NoSessionText())
	}
}

// handleCancel 取消等待中的会话，处理中的会话不能取消
func (h *Handler) handleCancel(ctx context.Context, userID, chatID int64) {
	session, err := h.store.CancelIfAwaiting(userID)
	switch {
	case errors.Is(err, rename.ErrSessionBusy):
		h.reply(ctx, chatID, "⏳ 文件正在处理中，无法取消。")
		return
	case errors.Is(err, rename.ErrSessionExpired):
		// 超时提示已经发出
		return
	case err != nil:
		h.reply(ctx, chatID, "ℹ️ 没有待处理的重命名。")
		return
	}

	if err := h.sender.DeleteMessage(ctx, session.Prompt); err != nil {
		logger.Debug("Failed to delete prompt message", "error", err)
	}
	logger.Info("Rename session cancelled", "userID", userID, "sessionID", session.ID)
	h.reply(ctx, chatID, fmt.Sprintf("❌ 已取消 <code>%s</code> 的重命名。", html.EscapeString(session.Artifact.FileName)))
}

func (h *Handler) handleSendAs(ctx context.Context, userID, chatID int64, value string) {
	if value == "" {
		current, err := h.prefs.GetSendAsMode(ctx, userID)
		if err != nil {
			h.replyError(ctx, chatID, "读取上传方式", err)
			return
		}
		h.reply(ctx, chatID, fmt.Sprintf("当前上传方式: <code>%s</code>\n\n用法: <code>/sendas auto|document|video</code>\n"+
			"• auto - 视频扩展名以视频上传，其他保持原类型\n"+
			"• document - 总是以文件上传\n"+
			"• video - 视频文件以视频上传", current))
		return
	}

	mode, err := h.prefs.SetSendAs(ctx, userID, value)
	if err != nil {
		h.reply(ctx, chatID, "❌ 无效的上传方式，可选值: <code>auto</code> <code>document</code> <code>video</code>")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("✅ 上传方式已设置为 <code>%s</code>", mode))
}

func (h *Handler) handleSetCaption(ctx context.Context, userID, chatID int64, template string) {
	if template == "" {
		h.reply(ctx, chatID, "用法: <code>/setcaption 模板</code>\n\n"+
			"可用占位符:\n"+
			"<code>{filename}</code> - 新文件名\n"+
			"<code>{filesize}</code> - 文件大小\n"+
			"<code>{duration}</code> - 时长\n\n"+
			"示例: <code>/setcaption {filename} | {filesize}</code>")
		return
	}
	if err := h.prefs.SetCaptionTemplate(ctx, userID, template); err != nil {
		h.replyError(ctx, chatID, "设置说明文字", err)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("✅ 说明文字模板已保存:\n<code>%s</code>", html.EscapeString(template)))
}

func (h *Handler) handleShowCaption(ctx context.Context, userID, chatID int64) {
	template, err := h.prefs.GetCaptionTemplate(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, "读取说明文字", err)
		return
	}
	if template == "" {
		h.reply(ctx, chatID, "ℹ️ 尚未设置说明文字模板，发送 /setcaption 设置。")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("当前说明文字模板:\n<code>%s</code>", html.EscapeString(template)))
}

func (h *Handler) handleStats(ctx context.Context, userID, chatID int64) {
	prefs, err := h.prefs.Get(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, "读取统计", err)
		return
	}

	yesNo := func(b bool) string {
		if b {
			return "已设置"
		}
		return "未设置"
	}

	pending := "无"
	if session, ok := h.store.Get(userID); ok {
		pending = html.EscapeString(session.Artifact.FileName)
	}

	h.reply(ctx, chatID, fmt.Sprintf("<b>📊 我的统计</b>\n\n"+
		"已重命名: %d 个文件\n"+
		"上传方式: <code>%s</code>\n"+
		"说明文字模板: %s\n"+
		"自定义缩略图: %s\n"+
		"待处理文件: %s",
		prefs.RenameCount,
		rename.ParseSendAsMode(prefs.SendAs),
		yesNo(prefs.CaptionTemplate != ""),
		yesNo(prefs.ThumbnailFileID != ""),
		pending))
}

func (h *Handler) replyError(ctx context.Context, chatID int64, action string, err error) {
	logger.Error("Telegram command failed", "action", action, "chatID", chatID, "error", err)
	h.reply(ctx, chatID, fmt.Sprintf("❌ %s失败: %s", action, html.EscapeString(err.Error())))
}

func startText() string {
	return "<b>欢迎使用文件重命名机器人</b>\n\n" +
		"发送一个文档、视频或音频文件，然后回复新的文件名（包含扩展名），" +
		"机器人会以新名称重新上传该文件。\n\n" +
		"发送 /help 查看全部命令。"
}

func helpText() string {
	return "<b>使用帮助</b>\n\n" +
		"<b>重命名:</b>\n" +
		"1. 发送文件\n" +
		"2. 直接回复新文件名，或使用 <code>/rename 新文件名</code>\n" +
		"/cancel - 取消待处理的重命名\n\n" +
		"<b>上传设置:</b>\n" +
		"/sendas auto|document|video - 上传方式\n" +
		"/setcaption &lt;模板&gt; - 设置说明文字，支持 <code>{filename}</code> <code>{filesize}</code> <code>{duration}</code>\n" +
		"/showcaption - 查看说明文字模板\n" +
		"/delcaption - 删除说明文字模板\n\n" +
		"<b>缩略图:</b>\n" +
		"发送一张图片即可设置缩略图\n" +
		"/delthumb - 删除缩略图\n\n" +
		"/stats - 查看我的统计"
}

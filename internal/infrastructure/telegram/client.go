package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/ratelimit"
	"github.com/easayliu/tg-file-renamer/pkg/httpclient"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// Client 封装 Bot API，所有请求先经过限速器
// 同时实现 contracts.Transport
type Client struct {
	config       *config.TelegramConfig
	bot          *tgbotapi.BotAPI
	limiter      *ratelimit.RateLimiter
	httpClient   *http.Client
	fileEndpoint string
	maxDownload  int64
}

// Option Client 可选项
type Option func(*Client)

// WithHTTPClient 替换下载文件使用的 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxDownloadSize 下载大小上限，0 不限制
func WithMaxDownloadSize(n int64) Option {
	return func(c *Client) {
		c.maxDownload = n
	}
}

// NewClient 连接 Bot API 并校验 token
func NewClient(cfg *config.TelegramConfig, limiter *ratelimit.RateLimiter, opts ...Option) (*Client, error) {
	c := &Client{
		config:       cfg,
		limiter:      limiter,
		httpClient:   newHTTPClient(cfg.PollTimeout),
		fileEndpoint: cfg.FileEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fileEndpoint == "" {
		c.fileEndpoint = tgbotapi.FileEndpoint
	}
	if c.limiter == nil {
		c.limiter = ratelimit.NewRateLimiter(cfg.QPS, cfg.ChatQPS)
	}

	apiEndpoint := cfg.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, apiEndpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %s", logger.SanitizeString(err.Error()))
	}
	c.bot = bot

	logger.Info("Telegram bot connected successfully", "username", bot.Self.UserName)
	return c, nil
}

// newHTTPClient 长轮询请求会保持 pollTimeout 秒才返回响应头
func newHTTPClient(pollTimeout int) *http.Client {
	opts := httpclient.DefaultOptions()
	if header := time.Duration(pollTimeout+30) * time.Second; header > opts.ResponseHeaderTimeout {
		opts = opts.WithResponseHeaderTimeout(header)
	}
	return httpclient.New(opts)
}

// GetBot 获取bot实例
func (c *Client) GetBot() *tgbotapi.BotAPI {
	return c.bot
}

// Username 机器人用户名
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// cleanUTF8 确保文本是有效的UTF-8编码
func cleanUTF8(text string) string {
	if !utf8.ValidString(text) {
		return strings.ToValidUTF8(text, "?")
	}
	return text
}

// SendText 以 HTML 格式发送消息
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (rename.MessageRef, error) {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return rename.MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(chatID, cleanUTF8(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := c.bot.Send(msg)
	if err != nil {
		return rename.MessageRef{}, fmt.Errorf("failed to send telegram message: %w", err)
	}
	return rename.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditText 编辑消息，内容未变化时不视为错误
func (c *Client) EditText(ctx context.Context, ref rename.MessageRef, text string) error {
	if err := c.limiter.Wait(ctx, ref.ChatID); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, cleanUTF8(text))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if _, err := c.bot.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("failed to edit telegram message: %w", err)
	}
	return nil
}

// DeleteMessage 删除消息
func (c *Client) DeleteMessage(ctx context.Context, ref rename.MessageRef) error {
	if ref.IsZero() {
		return nil
	}
	if err := c.limiter.Wait(ctx, 0); err != nil {
		return err
	}

	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("failed to delete telegram message: %w", err)
	}
	logger.Debug("Message deleted successfully", "chatID", ref.ChatID, "messageID", ref.MessageID)
	return nil
}

// GetUpdates 长轮询获取更新
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout int) ([]tgbotapi.Update, error) {
	if err := c.limiter.Wait(ctx, 0); err != nil {
		return nil, err
	}

	updateConfig := tgbotapi.NewUpdate(offset)
	updateConfig.Timeout = timeout
	updateConfig.AllowedUpdates = []string{"message"}

	updates, err := c.bot.GetUpdates(updateConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get telegram updates: %w", err)
	}
	return updates, nil
}

// SetWebhook 注册 webhook
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	wh.AllowedUpdates = []string{"message"}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook 轮询模式下需要先移除 webhook
func (c *Client) DeleteWebhook() error {
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// IsAuthorized admin_ids 为空时所有人可用
func (c *Client) IsAuthorized(userID int64) bool {
	return IsAuthorized(c.config.AdminIDs, userID)
}

// IsAuthorized 判断用户是否在允许列表中
func IsAuthorized(adminIDs []int64, userID int64) bool {
	if len(adminIDs) == 0 {
		return true
	}
	for _, adminID := range adminIDs {
		if adminID == userID {
			return true
		}
	}
	return false
}

// BotCommands 命令菜单
var BotCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "🏠 显示欢迎信息"},
	{Command: "help", Description: "❓ 显示帮助信息和可用命令"},
	{Command: "rename", Description: "✏️ 重命名待处理文件 (用法: /rename <新文件名>)"},
	{Command: "cancel", Description: "❌ 取消待处理的重命名"},
	{Command: "sendas", Description: "📤 设置上传方式 (auto/document/video)"},
	{Command: "setcaption", Description: "📝 设置说明文字模板"},
	{Command: "delcaption", Description: "🗑 删除说明文字模板"},
	{Command: "showcaption", Description: "👀 查看说明文字模板"},
	{Command: "delthumb", Description: "🖼 删除自定义缩略图"},
	{Command: "stats", Description: "📊 查看我的重命名统计"},
}

// RegisterBotCommands 注册Bot命令菜单
func (c *Client) RegisterBotCommands() error {
	setCommandsConfig := tgbotapi.NewSetMyCommands(BotCommands...)
	if _, err := c.bot.Request(setCommandsConfig); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

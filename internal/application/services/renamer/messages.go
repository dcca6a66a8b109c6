package renamer

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
)

// 发送给用户的消息均为 HTML 格式

// PromptText 收到文件后的提示
func PromptText(artifact rename.ArtifactRef, timeout time.Duration) string {
	name := artifact.FileName
	if name == "" {
		name = "未命名文件"
	}
	return fmt.Sprintf("<b>✏️ 手动重命名</b>\n\n"+
		"文件: <code>%s</code>\n"+
		"大小: %s\n\n"+
		"请在 %s内发送新的文件名（包含扩展名）。\n"+
		"<i>处理完成前请不要删除原文件。</i>",
		html.EscapeString(name), rename.ReadableSize(artifact.Size), humanDuration(timeout))
}

// InvalidFilenameText 文件名校验失败
func InvalidFilenameText(err error) string {
	reason := "文件名包含非法字符。"
	var ve *rename.ValidationError
	if errors.As(err, &ve) && strings.TrimSpace(ve.Name) == "" {
		reason = "文件名不能为空。"
	}
	return fmt.Sprintf("❌ <b>文件名无效</b>\n\n%s\n不能包含以下字符: <code>%s</code>",
		reason, html.EscapeString(strings.Join(strings.Split(rename.ReservedChars, ""), " ")))
}

// DownloadFailedText 下载失败
func DownloadFailedText() string {
	return "❌ <b>下载失败</b>\n\n无法获取原文件，请重新发送后再试。"
}

// TooLargeText 文件超过大小限制
func TooLargeText(size, limit int64) string {
	return fmt.Sprintf("❌ <b>文件过大</b>\n\n文件大小 %s，超过限制 %s。",
		rename.ReadableSize(size), rename.ReadableSize(limit))
}

// RenameFailedText 本地重命名失败
func RenameFailedText(newName string) string {
	return fmt.Sprintf("❌ <b>重命名失败</b>\n\n无法将文件重命名为 <code>%s</code>。", html.EscapeString(newName))
}

// UploadFailedText 上传失败，附带底层错误信息
func UploadFailedText(detail string) string {
	return fmt.Sprintf("❌ <b>上传失败</b>\n\n<code>%s</code>", html.EscapeString(detail))
}

// SuccessText 重命名完成
func SuccessText(newName string) string {
	return fmt.Sprintf("✅ <b>重命名完成</b>\n\n新文件名: <code>%s</code>", html.EscapeString(newName))
}

// NoSessionText /rename 没有待处理文件时的提示
func NoSessionText() string {
	return "ℹ️ 没有待重命名的文件，请先发送一个文档、视频或音频文件。"
}

// ExpiredText 会话超时
func ExpiredText(fileName string) string {
	return fmt.Sprintf("⌛ 等待超时，<code>%s</code> 的重命名已取消。", html.EscapeString(fileName))
}

// truncateRunes 按字符截断，超出部分用省略号表示
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "0 秒"
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d 分钟", int(d/time.Minute))
	}
	return fmt.Sprintf("%d 秒", int(d.Round(time.Second)/time.Second))
}

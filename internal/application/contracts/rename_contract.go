package contracts

import (
	"context"
	"io"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
)

// DownloadedFile 下载到本地的文件
type DownloadedFile struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"` // blake3 十六进制
}

// UploadRequest 重新上传参数
type UploadRequest struct {
	ChatID    int64
	Path      string // 本地文件路径
	FileName  string // 上传时使用的文件名
	Caption   string
	Thumbnail string // Telegram file_id，空表示无缩略图
	Duration  int
	Progress  io.Writer // 可为 nil
}

// Transport 聊天平台的文件传输与消息接口
type Transport interface {
	// Download 将文件下载到 dir 目录，progress 可为 nil
	Download(ctx context.Context, artifact rename.ArtifactRef, dir string, progress io.Writer) (*DownloadedFile, error)
	UploadDocument(ctx context.Context, req UploadRequest) error
	UploadVideo(ctx context.Context, req UploadRequest) error
	UploadAudio(ctx context.Context, req UploadRequest) error
	DeleteMessage(ctx context.Context, ref rename.MessageRef) error
	SendText(ctx context.Context, chatID int64, text string) (rename.MessageRef, error)
	EditText(ctx context.Context, ref rename.MessageRef, text string) error
}

// PreferenceStore 重命名流程读取的用户偏好
// 查询失败时由调用方使用默认值
type PreferenceStore interface {
	GetSendAsMode(ctx context.Context, userID int64) (rename.SendAsMode, error)
	GetThumbnail(ctx context.Context, userID int64) (string, error)
	GetCaptionTemplate(ctx context.Context, userID int64) (string, error)
	IncrementRenameCount(ctx context.Context, userID int64) error
}

// RenameMetrics 重命名流程指标
type RenameMetrics interface {
	ObserveOutcome(outcome string, shape string, duration time.Duration)
	AddBytes(direction string, n int64)
	SessionCreated()
	SessionExpired()
}

// NopMetrics 不记录任何指标
type NopMetrics struct{}

func (NopMetrics) ObserveOutcome(string, string, time.Duration) {}
func (NopMetrics) AddBytes(string, int64) {}
func (NopMetrics) SessionCreated() {}
func (NopMetrics) SessionExpired() {}

// Package rename holds the rename workflow core: the per-user session store,
// filename validation, caption templating and upload-shape selection.
package rename

import (
	"strings"
	"time"
)

// ArtifactKind 用户发送的原始文件类型
type ArtifactKind string

const (
	KindDocument ArtifactKind = "document"
	KindVideo    ArtifactKind = "video"
	KindAudio    ArtifactKind = "audio"
)

// Shape 重新上传时使用的消息类型
type Shape string

const (
	ShapeDocument Shape = "document"
	ShapeVideo    Shape = "video"
	ShapeAudio    Shape = "audio"
)

// SendAsMode 用户的上传方式偏好
type SendAsMode string

const (
	SendAsAuto     SendAsMode = "auto"
	SendAsDocument SendAsMode = "document"
	SendAsVideo    SendAsMode = "video"
)

// ParseSendAsMode 解析偏好值，无法识别时回退为 auto
// 旧配置中的 "media" 等同于 video
func ParseSendAsMode(s string) SendAsMode {
	switch SendAsMode(strings.ToLower(strings.TrimSpace(s))) {
	case SendAsDocument:
		return SendAsDocument
	case SendAsVideo, "media":
		return SendAsVideo
	default:
		return SendAsAuto
	}
}

// State 会话状态
type State string

const (
	StateAwaitingFilename State = "awaiting_filename"
	StateProcessing       State = "processing"
)

// MessageRef 聊天中的一条消息
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// IsZero 消息引用是否为空
func (m MessageRef) IsZero() bool {
	return m.MessageID == 0
}

// FileAttributes 用于渲染说明文字的文件属性
type FileAttributes struct {
	Size          int64
	Duration      int // 秒
	DurationKnown bool
}

// ArtifactRef 待重命名文件的引用，直到会话被消费或过期前都必须可解析
type ArtifactRef struct {
	Message     MessageRef   `json:"message"`
	FileID      string       `json:"file_id"`
	FileName    string       `json:"file_name"`
	MimeType    string       `json:"mime_type,omitempty"`
	Kind        ArtifactKind `json:"kind"`
	Size        int64        `json:"size"`
	Duration    int          `json:"duration,omitempty"`
	HasDuration bool         `json:"has_duration"`
}

// Attributes 转换为说明文字渲染所需的属性
func (a ArtifactRef) Attributes() FileAttributes {
	return FileAttributes{
		Size:          a.Size,
		Duration:      a.Duration,
		DurationKnown: a.HasDuration,
	}
}

// Session 单个用户正在进行的重命名请求
type Session struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	Artifact  ArtifactRef `json:"artifact"`
	Prompt    MessageRef  `json:"prompt"`
	State     State       `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired 判断会话在 now 时刻是否已过期
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

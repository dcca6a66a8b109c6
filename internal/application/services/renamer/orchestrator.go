// Package renamer 重命名编排：校验文件名、下载、改名、解析说明文字与上传方式、重新上传
// 文本输入和 /rename 命令共用同一个 Orchestrator
package renamer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/application/contracts"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// Outcome 一次运行的最终结果
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeInvalidName    Outcome = "invalid_name"
	OutcomeTooLarge       Outcome = "too_large"
	OutcomeDownloadFailed Outcome = "download_failed"
	OutcomeRenameFailed   Outcome = "rename_failed"
	OutcomeUploadFailed   Outcome = "upload_failed"
	OutcomeNoSession      Outcome = "no_session"
	OutcomeExpired        Outcome = "expired" // 会话刚超时，超时提示已由存储的回调发出
	OutcomeBusy           Outcome = "busy"
)

// Options 编排参数
type Options struct {
	WorkDir          string
	ShowProgress     bool
	ProgressInterval time.Duration
	DeleteInput      bool
	MaxFileSize      int64 // 0 不限制
	UploadErrorLimit int   // 回显错误信息的最大字符数
}

const defaultUploadErrorLimit = 512

// Request 一次重命名请求
type Request struct {
	UserID       int64
	ChatID       int64
	Input        string            // 用户提交的新文件名
	InputMessage rename.MessageRef // 用户的文件名消息，可为空
}

// Result 运行结果
type Result struct {
	Outcome   Outcome
	SessionID string
	FileName  string
	Shape     rename.Shape
	Err       error
}

// Orchestrator 驱动完整的重命名流程
type Orchestrator struct {
	store     *rename.SessionStore
	transport contracts.Transport
	prefs     contracts.PreferenceStore
	metrics   contracts.RenameMetrics
	opts      Options
	now       func() time.Time
}

// NewOrchestrator 创建编排器，metrics 可为 nil
func NewOrchestrator(store *rename.SessionStore, transport contracts.Transport, prefs contracts.PreferenceStore, metrics contracts.RenameMetrics, opts Options) *Orchestrator {
	if metrics == nil {
		metrics = contracts.NopMetrics{}
	}
	if opts.UploadErrorLimit <= 0 {
		opts.UploadErrorLimit = defaultUploadErrorLimit
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 3 * time.Second
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "tg-file-renamer")
	}
	return &Orchestrator{
		store:     store,
		transport: transport,
		prefs:     prefs,
		metrics:   metrics,
		opts:      opts,
		now:       time.Now,
	}
}

// Run 执行一次重命名，出错时已向用户发送提示，返回值仅用于日志和测试
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	session, err := o.store.TryBeginProcessing(req.UserID)
	switch {
	case errors.Is(err, rename.ErrSessionExpired):
		return Result{Outcome: OutcomeExpired, Err: err}
	case errors.Is(err, rename.ErrSessionNotFound):
		return Result{Outcome: OutcomeNoSession, Err: err}
	case errors.Is(err, rename.ErrSessionBusy):
		// 另一个任务已在处理
		logger.Debug("Rename already in progress, ignoring input", "userID", req.UserID)
		return Result{Outcome: OutcomeBusy, Err: err}
	case err != nil:
		return Result{Outcome: OutcomeNoSession, Err: err}
	}
	defer o.store.Release(req.UserID, session.ID)

	started := o.now()
	result := o.process(ctx, req, session)
	result.SessionID = session.ID
	o.metrics.ObserveOutcome(string(result.Outcome), string(result.Shape), o.now().Sub(started))

	if result.Err != nil {
		logger.Warn("Rename finished with error",
			"userID", req.UserID,
			"sessionID", session.ID,
			"outcome", result.Outcome,
			"error", logger.SanitizeString(result.Err.Error()))
	} else {
		logger.Info("Rename delivered",
			"userID", req.UserID,
			"sessionID", session.ID,
			"file", result.FileName,
			"shape", result.Shape,
			"duration", o.now().Sub(started))
	}
	return result
}

func (o *Orchestrator) process(ctx context.Context, req Request, session rename.Session) Result {
	// 通知类操作不受请求取消影响
	notifyCtx := context.WithoutCancel(ctx)
	chatID := req.ChatID
	if chatID == 0 {
		chatID = session.Artifact.Message.ChatID
	}

	o.cleanupMessages(notifyCtx, req, session)

	newName := strings.TrimSpace(req.Input)
	if err := rename.Validate(newName); err != nil {
		o.notify(notifyCtx, chatID, InvalidFilenameText(err))
		return Result{
			Outcome:  OutcomeInvalidName,
			FileName: newName,
			Err:      apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeInvalidFilename, "invalid filename", err),
		}
	}

	artifact := session.Artifact
	if o.opts.MaxFileSize > 0 && artifact.Size > o.opts.MaxFileSize {
		o.notify(notifyCtx, chatID, TooLargeText(artifact.Size, o.opts.MaxFileSize))
		return Result{
			Outcome:  OutcomeTooLarge,
			FileName: newName,
			Err: apperrors.NewServiceErrorWithDetails(apperrors.ErrorCodeFileTooLarge, "file exceeds size limit",
				map[string]interface{}{"size": artifact.Size, "limit": o.opts.MaxFileSize}),
		}
	}

	var progress *progressReporter
	if o.opts.ShowProgress {
		progress = o.startProgress(ctx, notifyCtx, chatID, newName)
		if progress != nil {
			defer progress.close(notifyCtx)
		}
	}

	// 本次会话的工作目录，所有路径结束后删除
	workDir := filepath.Join(o.opts.WorkDir, session.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		o.notify(notifyCtx, chatID, DownloadFailedText())
		return Result{
			Outcome:  OutcomeDownloadFailed,
			FileName: newName,
			Err:      apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeDownloadFailed, "failed to create work directory", err),
		}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("Failed to remove work directory", "path", workDir, "error", err)
		}
	}()

	downloaded, err := o.transport.Download(ctx, artifact, workDir, progress.writer(stageDownload, artifact.Size))
	if err != nil {
		o.notify(notifyCtx, chatID, DownloadFailedText())
		return Result{
			Outcome:  OutcomeDownloadFailed,
			FileName: newName,
			Err:      apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeDownloadFailed, "download failed", err),
		}
	}
	o.metrics.AddBytes("download", downloaded.Size)
	logger.Debug("Artifact downloaded", "userID", req.UserID, "path", downloaded.Path, "size", downloaded.Size, "blake3", downloaded.Checksum)

	renamedPath, err := renameInPlace(downloaded.Path, newName)
	if err != nil {
		o.notify(notifyCtx, chatID, RenameFailedText(newName))
		return Result{
			Outcome:  OutcomeRenameFailed,
			FileName: newName,
			Err:      apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeRenameFailed, "rename failed", err),
		}
	}

	mode, thumbnail, template := o.loadPreferences(ctx, req.UserID)
	shape := rename.SelectShape(artifact.Kind, mode, newName)
	attrs := artifact.Attributes()
	if downloaded.Size > 0 {
		attrs.Size = downloaded.Size
	}
	caption := rename.Resolve(template, newName, attrs)

	upload := contracts.UploadRequest{
		ChatID:    chatID,
		Path:      renamedPath,
		FileName:  newName,
		Caption:   caption,
		Thumbnail: thumbnail,
		Duration:  artifact.Duration,
		Progress:  progress.writer(stageUpload, attrs.Size),
	}

	if err := o.deliver(ctx, shape, upload); err != nil {
		detail := truncateRunes(logger.SanitizeString(err.Error()), o.opts.UploadErrorLimit)
		o.notify(notifyCtx, chatID, UploadFailedText(detail))
		return Result{
			Outcome:  OutcomeUploadFailed,
			FileName: newName,
			Shape:    shape,
			Err:      apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeUploadFailed, "upload failed", err),
		}
	}
	o.metrics.AddBytes("upload", attrs.Size)

	if err := o.prefs.IncrementRenameCount(notifyCtx, req.UserID); err != nil {
		logger.Warn("Failed to record rename count", "userID", req.UserID, "error", err)
	}

	o.notify(notifyCtx, chatID, SuccessText(newName))
	return Result{Outcome: OutcomeDelivered, FileName: newName, Shape: shape}
}

// cleanupMessages 删除提示消息和用户输入，失败忽略
func (o *Orchestrator) cleanupMessages(ctx context.Context, req Request, session rename.Session) {
	if !session.Prompt.IsZero() {
		if err := o.transport.DeleteMessage(ctx, session.Prompt); err != nil {
			logger.Debug("Failed to delete prompt message", "error", err)
		}
	}
	if o.opts.DeleteInput && !req.InputMessage.IsZero() {
		if err := o.transport.DeleteMessage(ctx, req.InputMessage); err != nil {
			logger.Debug("Failed to delete input message", "error", err)
		}
	}
}

func (o *Orchestrator) startProgress(ctx, notifyCtx context.Context, chatID int64, fileName string) *progressReporter {
	ref, err := o.transport.SendText(notifyCtx, chatID, fmt.Sprintf("⏳ 正在处理 <code>%s</code>...", html.EscapeString(fileName)))
	if err != nil {
		logger.Debug("Failed to send progress message", "error", err)
		return nil
	}
	p := newProgressReporter(o.transport, ref, fileName, o.opts.ProgressInterval)
	p.start(ctx)
	return p
}

// loadPreferences 查询失败时使用默认值
func (o *Orchestrator) loadPreferences(ctx context.Context, userID int64) (rename.SendAsMode, string, string) {
	mode, err := o.prefs.GetSendAsMode(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load send-as mode, using auto", "userID", userID, "error", err)
		mode = rename.SendAsAuto
	}

	thumbnail, err := o.prefs.GetThumbnail(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load thumbnail", "userID", userID, "error", err)
		thumbnail = ""
	}

	template, err := o.prefs.GetCaptionTemplate(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load caption template", "userID", userID, "error", err)
		template = ""
	}
	return mode, thumbnail, template
}

// deliver 单次上传，不重试
func (o *Orchestrator) deliver(ctx context.Context, shape rename.Shape, req contracts.UploadRequest) error {
	switch shape {
	case rename.ShapeVideo:
		return o.transport.UploadVideo(ctx, req)
	case rename.ShapeAudio:
		return o.transport.UploadAudio(ctx, req)
	default:
		return o.transport.UploadDocument(ctx, req)
	}
}

func (o *Orchestrator) notify(ctx context.Context, chatID int64, text string) {
	if _, err := o.transport.SendText(ctx, chatID, text); err != nil {
		logger.Warn("Failed to send message", "chatID", chatID, "error", err)
	}
}

// renameInPlace 在同一目录下改名，目标已存在时失败
func renameInPlace(path, newName string) (string, error) {
	target := filepath.Join(filepath.Dir(path), newName)
	if target == path {
		return path, nil
	}
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("target already exists: %s", newName)
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.Rename(path, target); err != nil {
		return "", err
	}
	return target, nil
}

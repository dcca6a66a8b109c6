package telegram

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zeebo/blake3"

	"github.com/easayliu/tg-file-renamer/internal/application/contracts"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

var _ contracts.Transport = (*Client)(nil)

// Download 通过 getFile 获取路径后下载文件，同时计算 blake3 校验值
func (c *Client) Download(ctx context.Context, artifact rename.ArtifactRef, dir string, progress io.Writer) (*contracts.DownloadedFile, error) {
	name := localFileName(artifact.FileName, artifact.FileID)
	return c.downloadFile(ctx, artifact.FileID, filepath.Join(dir, name), progress)
}

func (c *Client) downloadFile(ctx context.Context, fileID, dest string, progress io.Writer) (*contracts.DownloadedFile, error) {
	if err := c.limiter.Wait(ctx, 0); err != nil {
		return nil, err
	}

	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if c.maxDownload > 0 && int64(file.FileSize) > c.maxDownload {
		return nil, fmt.Errorf("file size %d exceeds download limit %d", file.FileSize, c.maxDownload)
	}

	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %s", logger.SanitizeString(err.Error()))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 错误信息里带有含 token 的 URL
		return nil, fmt.Errorf("failed to download file: %s", logger.SanitizeString(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: unexpected status %s", resp.Status)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file: %w", err)
	}

	hasher := blake3.New()
	writers := []io.Writer{out, hasher}
	if progress != nil {
		writers = append(writers, progress)
	}

	body := io.Reader(resp.Body)
	if c.maxDownload > 0 {
		body = io.LimitReader(resp.Body, c.maxDownload+1)
	}

	n, copyErr := io.Copy(io.MultiWriter(writers...), body)
	closeErr := out.Close()
	if copyErr == nil && c.maxDownload > 0 && n > c.maxDownload {
		copyErr = fmt.Errorf("download exceeds limit %d", c.maxDownload)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to write local file: %w", copyErr)
	}

	logger.Debug("File downloaded", "fileID", fileID, "path", dest, "size", n)
	return &contracts.DownloadedFile{
		Path:     dest,
		Size:     n,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// localFileName 生成本地保存用的文件名，去掉路径部分
func localFileName(name, fileID string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		id := fileID
		if len(id) > 16 {
			id = id[:16]
		}
		return "file_" + id
	}
	return name
}

func (c *Client) UploadDocument(ctx context.Context, req contracts.UploadRequest) error {
	return c.upload(ctx, req, func(file tgbotapi.RequestFileData, thumb tgbotapi.RequestFileData) tgbotapi.Chattable {
		doc := tgbotapi.NewDocument(req.ChatID, file)
		doc.Caption = req.Caption
		doc.Thumb = thumb
		return doc
	})
}

func (c *Client) UploadVideo(ctx context.Context, req contracts.UploadRequest) error {
	return c.upload(ctx, req, func(file tgbotapi.RequestFileData, thumb tgbotapi.RequestFileData) tgbotapi.Chattable {
		video := tgbotapi.NewVideo(req.ChatID, file)
		video.Caption = req.Caption
		video.Thumb = thumb
		video.Duration = req.Duration
		video.SupportsStreaming = true
		return video
	})
}

func (c *Client) UploadAudio(ctx context.Context, req contracts.UploadRequest) error {
	return c.upload(ctx, req, func(file tgbotapi.RequestFileData, thumb tgbotapi.RequestFileData) tgbotapi.Chattable {
		audio := tgbotapi.NewAudio(req.ChatID, file)
		audio.Caption = req.Caption
		audio.Thumb = thumb
		audio.Duration = req.Duration
		return audio
	})
}

type buildUpload func(file tgbotapi.RequestFileData, thumb tgbotapi.RequestFileData) tgbotapi.Chattable

// upload 单次上传，进度通过 TeeReader 统计
func (c *Client) upload(ctx context.Context, req contracts.UploadRequest, build buildUpload) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if req.Progress != nil {
		reader = io.TeeReader(f, req.Progress)
	}
	file := tgbotapi.FileReader{Name: req.FileName, Reader: reader}

	// 缩略图只能随文件一起上传，不能直接引用 file_id
	var thumb tgbotapi.RequestFileData
	if req.Thumbnail != "" {
		thumbPath := filepath.Join(filepath.Dir(req.Path), ".thumb.jpg")
		if _, err := c.downloadFile(ctx, req.Thumbnail, thumbPath, nil); err != nil {
			logger.Warn("Failed to fetch thumbnail, uploading without it", "error", err)
		} else {
			defer os.Remove(thumbPath)
			thumb = tgbotapi.FilePath(thumbPath)
		}
	}

	if err := c.limiter.Wait(ctx, req.ChatID); err != nil {
		return err
	}
	if _, err := c.bot.Send(build(file, thumb)); err != nil {
		return err
	}
	return nil
}

package preference

import (
	"context"
	"strings"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/internal/domain/repositories"
	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
)

// MaxCaptionLength Telegram 说明文字上限
const MaxCaptionLength = 1024

// Service 用户偏好服务
// 实现 contracts.PreferenceStore，同时提供命令和 HTTP 接口使用的修改方法
type Service struct {
	repo repositories.PreferenceRepository
	now  func() time.Time
}

// NewService 创建偏好服务
func NewService(repo repositories.PreferenceRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) GetSendAsMode(ctx context.Context, userID int64) (rename.SendAsMode, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return rename.SendAsAuto, err
	}
	return rename.ParseSendAsMode(prefs.SendAs), nil
}

func (s *Service) GetThumbnail(ctx context.Context, userID int64) (string, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return prefs.ThumbnailFileID, nil
}

func (s *Service) GetCaptionTemplate(ctx context.Context, userID int64) (string, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return prefs.CaptionTemplate, nil
}

func (s *Service) IncrementRenameCount(ctx context.Context, userID int64) error {
	_, err := s.repo.IncrementRenameCount(ctx, userID)
	return err
}

// Get 返回完整偏好
func (s *Service) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	return s.repo.Get(ctx, userID)
}

// SetSendAs 设置上传方式，只接受 auto/document/video/media
func (s *Service) SetSendAs(ctx context.Context, userID int64, value string) (rename.SendAsMode, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "auto", "document", "video", "media":
	default:
		return "", apperrors.NewServiceErrorWithDetails(apperrors.ErrorCodeInvalidRequest,
			"send_as must be one of auto, document, video",
			map[string]interface{}{"value": value})
	}

	mode := rename.ParseSendAsMode(v)
	_, err := s.repo.Update(ctx, userID, func(p *entities.UserPreferences) {
		p.SendAs = string(mode)
		p.UpdatedAt = s.now()
	})
	return mode, err
}

// SetCaptionTemplate 设置说明文字模板，空字符串等同于删除
func (s *Service) SetCaptionTemplate(ctx context.Context, userID int64, template string) error {
	template = strings.TrimSpace(template)
	if len([]rune(template)) > MaxCaptionLength {
		return apperrors.NewServiceErrorWithDetails(apperrors.ErrorCodeInvalidRequest,
			"caption template too long",
			map[string]interface{}{"max": MaxCaptionLength})
	}
	_, err := s.repo.Update(ctx, userID, func(p *entities.UserPreferences) {
		p.CaptionTemplate = template
		p.UpdatedAt = s.now()
	})
	return err
}

// SetThumbnail 保存缩略图 file_id，空字符串删除
func (s *Service) SetThumbnail(ctx context.Context, userID int64, fileID string) error {
	_, err := s.repo.Update(ctx, userID, func(p *entities.UserPreferences) {
		p.ThumbnailFileID = fileID
		p.UpdatedAt = s.now()
	})
	return err
}

// Patch 批量更新，nil 字段保持不变
type Patch struct {
	SendAs          *string `json:"send_as,omitempty"`
	CaptionTemplate *string `json:"caption_template,omitempty"`
	ThumbnailFileID *string `json:"thumbnail_file_id,omitempty"`
}

// Apply 应用 Patch 并返回更新后的偏好
func (s *Service) Apply(ctx context.Context, userID int64, patch Patch) (*entities.UserPreferences, error) {
	if patch.SendAs != nil {
		if _, err := s.SetSendAs(ctx, userID, *patch.SendAs); err != nil {
			return nil, err
		}
	}
	if patch.CaptionTemplate != nil {
		if err := s.SetCaptionTemplate(ctx, userID, *patch.CaptionTemplate); err != nil {
			return nil, err
		}
	}
	if patch.ThumbnailFileID != nil {
		if err := s.SetThumbnail(ctx, userID, strings.TrimSpace(*patch.ThumbnailFileID)); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, userID)
}

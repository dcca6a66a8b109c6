package repositories

import (
	"context"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
)

// PreferenceRepository 用户偏好存储库接口
// Get 在用户不存在时返回默认偏好而不是错误
type PreferenceRepository interface {
	Get(ctx context.Context, userID int64) (*entities.UserPreferences, error)
	Update(ctx context.Context, userID int64, mutate func(*entities.UserPreferences)) (*entities.UserPreferences, error)
	IncrementRenameCount(ctx context.Context, userID int64) (int64, error)
	Close() error
}

package repository

import (
	"fmt"
	"strings"

	"github.com/easayliu/tg-file-renamer/internal/domain/repositories"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

// NewPreferenceRepository 按 storage.driver 创建偏好存储
// cache_ttl 大于 0 时外包一层缓存
func NewPreferenceRepository(cfg config.StorageConfig) (repositories.PreferenceRepository, error) {
	var (
		repo repositories.PreferenceRepository
		err  error
	)

	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "", "json":
		repo, err = NewJSONPreferenceRepository(cfg.DataDir)
	case "sqlite":
		repo, err = NewSQLitePreferenceRepository(cfg.SQLitePath)
	case "redis":
		repo, err = NewRedisPreferenceRepository(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Preference repository initialized", "driver", driver, "cacheTTL", cfg.CacheTTL)

	if cfg.CacheTTL > 0 {
		return NewCachedPreferenceRepository(repo, cfg.CacheTTL), nil
	}
	return repo, nil
}

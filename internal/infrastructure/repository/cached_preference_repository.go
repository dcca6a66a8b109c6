package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
	"github.com/easayliu/tg-file-renamer/internal/domain/repositories"
)

// CachedPreferenceRepository 为偏好读取加一层进程内缓存
// 写操作先写后端，再用返回值刷新缓存
type CachedPreferenceRepository struct {
	inner repositories.PreferenceRepository
	cache *cache.Cache
}

// NewCachedPreferenceRepository ttl 为缓存有效期
func NewCachedPreferenceRepository(inner repositories.PreferenceRepository, ttl time.Duration) *CachedPreferenceRepository {
	return &CachedPreferenceRepository{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func cacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (r *CachedPreferenceRepository) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	if v, ok := r.cache.Get(cacheKey(userID)); ok {
		return v.(*entities.UserPreferences).Clone(), nil
	}

	p, err := r.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(cacheKey(userID), p.Clone())
	return p, nil
}

func (r *CachedPreferenceRepository) Update(ctx context.Context, userID int64, mutate func(*entities.UserPreferences)) (*entities.UserPreferences, error) {
	p, err := r.inner.Update(ctx, userID, mutate)
	if err != nil {
		r.cache.Delete(cacheKey(userID))
		return nil, err
	}
	r.cache.SetDefault(cacheKey(userID), p.Clone())
	return p, nil
}

func (r *CachedPreferenceRepository) IncrementRenameCount(ctx context.Context, userID int64) (int64, error) {
	// 计数只在后端维护，缓存直接失效
	defer r.cache.Delete(cacheKey(userID))
	return r.inner.IncrementRenameCount(ctx, userID)
}

func (r *CachedPreferenceRepository) Close() error {
	r.cache.Flush()
	return r.inner.Close()
}

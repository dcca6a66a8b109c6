package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
)

// maxUpdateRetries WATCH 冲突时的重试次数
const maxUpdateRetries = 5

const (
	fieldSendAs      = "send_as"
	fieldCaption     = "caption_template"
	fieldThumbnail   = "thumbnail_file_id"
	fieldRenameCount = "rename_count"
	fieldUpdatedAt   = "updated_at"
)

// RedisPreferenceRepository 每个用户一个 hash: <prefix>:prefs:<user_id>
type RedisPreferenceRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisPreferenceRepository 连接 Redis 并检查可用性
func NewRedisPreferenceRepository(cfg config.RedisConfig) (*RedisPreferenceRepository, error) {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return NewRedisPreferenceRepositoryWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisPreferenceRepositoryWithClient 使用已有客户端
func NewRedisPreferenceRepositoryWithClient(client *redis.Client, prefix string) *RedisPreferenceRepository {
	if prefix == "" {
		prefix = "renamer"
	}
	return &RedisPreferenceRepository{client: client, prefix: prefix}
}

func (r *RedisPreferenceRepository) key(userID int64) string {
	return fmt.Sprintf("%s:prefs:%d", r.prefix, userID)
}

func decodePreferences(userID int64, fields map[string]string) *entities.UserPreferences {
	p := entities.NewUserPreferences(userID)
	if v, ok := fields[fieldSendAs]; ok && v != "" {
		p.SendAs = v
	}
	p.CaptionTemplate = fields[fieldCaption]
	p.ThumbnailFileID = fields[fieldThumbnail]
	if v, err := strconv.ParseInt(fields[fieldRenameCount], 10, 64); err == nil {
		p.RenameCount = v
	}
	if v, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64); err == nil && v > 0 {
		p.UpdatedAt = time.Unix(v, 0)
	}
	return p
}

func encodePreferences(p *entities.UserPreferences) map[string]interface{} {
	return map[string]interface{}{
		fieldSendAs:      p.SendAs,
		fieldCaption:     p.CaptionTemplate,
		fieldThumbnail:   p.ThumbnailFileID,
		fieldRenameCount: p.RenameCount,
		fieldUpdatedAt:   unixOrZero(p.UpdatedAt),
	}
}

func (r *RedisPreferenceRepository) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	fields, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return decodePreferences(userID, fields), nil
}

// Update 使用 WATCH 乐观锁读-改-写
func (r *RedisPreferenceRepository) Update(ctx context.Context, userID int64, mutate func(*entities.UserPreferences)) (*entities.UserPreferences, error) {
	key := r.key(userID)
	var result *entities.UserPreferences

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		p := decodePreferences(userID, fields)
		mutate(p)
		p.UserID = userID

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodePreferences(p))
			return nil
		})
		if err == nil {
			result = p
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil, fmt.Errorf("failed to save preferences: too many concurrent updates")
}

func (r *RedisPreferenceRepository) IncrementRenameCount(ctx context.Context, userID int64) (int64, error) {
	key := r.key(userID)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, fieldRenameCount, 1)
		pipe.HSet(ctx, key, fieldUpdatedAt, time.Now().Unix())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment rename count: %w", err)
	}
	return incr.Val(), nil
}

func (r *RedisPreferenceRepository) Close() error {
	return r.client.Close()
}

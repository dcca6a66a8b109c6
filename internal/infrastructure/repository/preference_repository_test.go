package repository

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
	"github.com/easayliu/tg-file-renamer/internal/domain/repositories"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
)

func backends(t *testing.T) map[string]repositories.PreferenceRepository {
	t.Helper()

	jsonRepo, err := NewJSONPreferenceRepository(t.TempDir())
	require.NoError(t, err)

	sqliteRepo, err := NewSQLitePreferenceRepository(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)

	jsonForCache, err := NewJSONPreferenceRepository(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisRepo := NewRedisPreferenceRepositoryWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")

	repos := map[string]repositories.PreferenceRepository{
		"json":   jsonRepo,
		"sqlite": sqliteRepo,
		"redis":  redisRepo,
		"cached": NewCachedPreferenceRepository(jsonForCache, time.Minute),
	}
	t.Cleanup(func() {
		for _, r := range repos {
			r.Close()
		}
	})
	return repos
}

func TestPreferenceRepositoryDefaults(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p, err := repo.Get(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, int64(42), p.UserID)
			assert.Equal(t, "auto", p.SendAs)
			assert.Empty(t, p.CaptionTemplate)
			assert.Empty(t, p.ThumbnailFileID)
			assert.Zero(t, p.RenameCount)
		})
	}
}

func TestPreferenceRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			updated, err := repo.Update(ctx, 7, func(p *entities.UserPreferences) {
				p.SendAs = "document"
				p.CaptionTemplate = "{filename} - {filesize}"
				p.ThumbnailFileID = "thumb-1"
			})
			require.NoError(t, err)
			assert.Equal(t, "document", updated.SendAs)

			got, err := repo.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, "document", got.SendAs)
			assert.Equal(t, "{filename} - {filesize}", got.CaptionTemplate)
			assert.Equal(t, "thumb-1", got.ThumbnailFileID)

			// 修改返回值不影响存储
			got.SendAs = "video"
			again, err := repo.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, "document", again.SendAs)
		})
	}
}

func TestPreferenceRepositoryIncrement(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Update(ctx, 9, func(p *entities.UserPreferences) {
				p.CaptionTemplate = "keep"
			})
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.IncrementRenameCount(ctx, 9)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			p, err := repo.Get(ctx, 9)
			require.NoError(t, err)
			assert.Equal(t, int64(10), p.RenameCount)
			assert.Equal(t, "keep", p.CaptionTemplate)
		})
	}
}

func TestJSONPreferenceRepositoryPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewJSONPreferenceRepository(dir)
	require.NoError(t, err)
	_, err = repo.Update(ctx, 1, func(p *entities.UserPreferences) { p.SendAs = "video" })
	require.NoError(t, err)
	_, err = repo.IncrementRenameCount(ctx, 1)
	require.NoError(t, err)

	reopened, err := NewJSONPreferenceRepository(dir)
	require.NoError(t, err)
	p, err := reopened.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "video", p.SendAs)
	assert.Equal(t, int64(1), p.RenameCount)
}

func TestJSONPreferenceRepositorySaveFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewJSONPreferenceRepository(dir)
	require.NoError(t, err)
	_, err = repo.Update(ctx, 1, func(p *entities.UserPreferences) { p.SendAs = "video" })
	require.NoError(t, err)

	// 临时文件路径被目录占用，写盘必然失败
	require.NoError(t, os.Mkdir(filepath.Join(dir, "user_preferences.json.tmp"), 0755))

	_, err = repo.Update(ctx, 1, func(p *entities.UserPreferences) { p.SendAs = "document" })
	assert.Error(t, err)
	_, err = repo.Update(ctx, 2, func(p *entities.UserPreferences) { p.SendAs = "document" })
	assert.Error(t, err)

	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "video", p.SendAs)
	p, err = repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "auto", p.SendAs)
}

func TestSQLitePreferenceRepositoryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	ctx := context.Background()

	repo, err := NewSQLitePreferenceRepository(path)
	require.NoError(t, err)
	count, err := repo.IncrementRenameCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.NoError(t, repo.Close())

	// 再次打开时迁移不应重复执行
	reopened, err := NewSQLitePreferenceRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err = reopened.IncrementRenameCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	p, err := reopened.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "auto", p.SendAs)
	assert.False(t, p.UpdatedAt.IsZero())
}

type countingRepository struct {
	repositories.PreferenceRepository
	mu   sync.Mutex
	gets int
}

func (c *countingRepository) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.PreferenceRepository.Get(ctx, userID)
}

func TestCachedPreferenceRepositoryHits(t *testing.T) {
	ctx := context.Background()
	inner, err := NewJSONPreferenceRepository(t.TempDir())
	require.NoError(t, err)
	counting := &countingRepository{PreferenceRepository: inner}
	repo := NewCachedPreferenceRepository(counting, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := repo.Get(ctx, 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counting.gets)

	// 计数递增后缓存失效
	_, err = repo.IncrementRenameCount(ctx, 3)
	require.NoError(t, err)
	p, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.RenameCount)
	assert.Equal(t, 2, counting.gets)

	// Update 用返回值刷新缓存
	_, err = repo.Update(ctx, 3, func(p *entities.UserPreferences) { p.SendAs = "document" })
	require.NoError(t, err)
	p, err = repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "document", p.SendAs)
	assert.Equal(t, 2, counting.gets)
}

func TestRedisPreferenceEncoding(t *testing.T) {
	p := entities.NewUserPreferences(11)
	p.SendAs = "video"
	p.CaptionTemplate = "{filename}"
	p.RenameCount = 4
	p.UpdatedAt = time.Unix(1700000000, 0)

	fields := make(map[string]string)
	for k, v := range encodePreferences(p) {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case int64:
			fields[k] = strconv.FormatInt(val, 10)
		}
	}

	decoded := decodePreferences(11, fields)
	assert.Equal(t, p.SendAs, decoded.SendAs)
	assert.Equal(t, p.CaptionTemplate, decoded.CaptionTemplate)
	assert.Equal(t, p.RenameCount, decoded.RenameCount)
	assert.True(t, p.UpdatedAt.Equal(decoded.UpdatedAt))

	empty := decodePreferences(12, map[string]string{})
	assert.Equal(t, "auto", empty.SendAs)
	assert.Zero(t, empty.RenameCount)
}

func TestRedisPreferenceRepositoryRetriesOnConflict(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	repo, err := NewRedisPreferenceRepository(config.RedisConfig{Host: mr.Host(), Port: port, KeyPrefix: "bot"})
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	calls := 0
	updated, err := repo.Update(ctx, 5, func(p *entities.UserPreferences) {
		calls++
		if calls == 1 {
			// 读-改-写之间另一个写入者修改了同一个 hash
			mr.HSet("bot:prefs:5", fieldCaption, "from-other-writer")
		}
		p.SendAs = "video"
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "video", updated.SendAs)
	assert.Equal(t, "from-other-writer", updated.CaptionTemplate)

	n, err := repo.IncrementRenameCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "1", mr.HGet("bot:prefs:5", fieldRenameCount))
	assert.Equal(t, "video", mr.HGet("bot:prefs:5", fieldSendAs))
}

func TestNewPreferenceRepository(t *testing.T) {
	repo, err := NewPreferenceRepository(config.StorageConfig{Driver: "json", DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &JSONPreferenceRepository{}, repo)

	repo, err = NewPreferenceRepository(config.StorageConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "p.db"),
		CacheTTL:   time.Minute,
	})
	require.NoError(t, err)
	assert.IsType(t, &CachedPreferenceRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = NewPreferenceRepository(config.StorageConfig{Driver: "mongo"})
	assert.Error(t, err)

	_, err = NewPreferenceRepository(config.StorageConfig{
		Driver: "redis",
		Redis:  config.RedisConfig{Host: "127.0.0.1", Port: 1},
	})
	assert.Error(t, err)
}

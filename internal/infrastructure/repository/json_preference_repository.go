package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
)

// JSONPreferenceRepository 以单个 JSON 文件保存用户偏好
type JSONPreferenceRepository struct {
	filePath string
	mu       sync.RWMutex
	prefs    map[int64]*entities.UserPreferences
}

func NewJSONPreferenceRepository(dataDir string) (*JSONPreferenceRepository, error) {
	// 确保数据目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &JSONPreferenceRepository{
		filePath: filepath.Join(dataDir, "user_preferences.json"),
		prefs:    make(map[int64]*entities.UserPreferences),
	}

	if err := repo.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	return repo, nil
}

// load 从文件加载
func (r *JSONPreferenceRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var list []*entities.UserPreferences
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs = make(map[int64]*entities.UserPreferences, len(list))
	for _, p := range list {
		r.prefs[p.UserID] = p
	}
	return nil
}

// saveUnlocked 写入文件（调用时必须已经持有锁）
// 先写临时文件再 rename，避免进程中断留下半个文件
func (r *JSONPreferenceRepository) saveUnlocked() error {
	list := make([]*entities.UserPreferences, 0, len(r.prefs))
	for _, p := range r.prefs {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.filePath)
}

func (r *JSONPreferenceRepository) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prefs[userID]; ok {
		return p.Clone(), nil
	}
	return entities.NewUserPreferences(userID), nil
}

func (r *JSONPreferenceRepository) Update(ctx context.Context, userID int64, mutate func(*entities.UserPreferences)) (*entities.UserPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.prefs[userID]
	var p *entities.UserPreferences
	if !ok {
		p = entities.NewUserPreferences(userID)
	} else {
		p = prev.Clone()
	}
	mutate(p)
	p.UserID = userID

	r.prefs[userID] = p
	if err := r.saveUnlocked(); err != nil {
		// 写盘失败时内存保持原值
		if ok {
			r.prefs[userID] = prev
		} else {
			delete(r.prefs, userID)
		}
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return p.Clone(), nil
}

func (r *JSONPreferenceRepository) IncrementRenameCount(ctx context.Context, userID int64) (int64, error) {
	p, err := r.Update(ctx, userID, func(p *entities.UserPreferences) {
		p.RenameCount++
		p.UpdatedAt = time.Now()
	})
	if err != nil {
		return 0, err
	}
	return p.RenameCount, nil
}

func (r *JSONPreferenceRepository) Close() error {
	return nil
}

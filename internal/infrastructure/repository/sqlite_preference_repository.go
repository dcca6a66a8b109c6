package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/easayliu/tg-file-renamer/internal/domain/entities"
	_ "modernc.org/sqlite"
)

// sqliteSchemaVersion 当前表结构版本，新增迁移时递增
const sqliteSchemaVersion = 1

// SQLitePreferenceRepository 基于 SQLite 的偏好存储
type SQLitePreferenceRepository struct {
	db *sql.DB
}

// NewSQLitePreferenceRepository 打开（必要时创建）数据库并执行迁移
func NewSQLitePreferenceRepository(path string) (*SQLitePreferenceRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 单连接串行写入，避免读事务升级写锁时的 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLitePreferenceRepository{db: db}, nil
}

// migrateSQLite 按 user_version 执行迁移
func migrateSQLite(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS user_preferences (
		  user_id           INTEGER PRIMARY KEY,
		  send_as           TEXT NOT NULL DEFAULT 'auto',
		  caption_template  TEXT NOT NULL DEFAULT '',
		  thumbnail_file_id TEXT NOT NULL DEFAULT '',
		  rename_count      INTEGER NOT NULL DEFAULT 0,
		  updated_at        INTEGER NOT NULL DEFAULT 0
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
	}

	if version < sqliteSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreferences(row rowScanner) (*entities.UserPreferences, error) {
	var (
		p         entities.UserPreferences
		updatedAt int64
	)
	if err := row.Scan(&p.UserID, &p.SendAs, &p.CaptionTemplate, &p.ThumbnailFileID, &p.RenameCount, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt > 0 {
		p.UpdatedAt = time.Unix(updatedAt, 0)
	}
	return &p, nil
}

const selectPreferences = `SELECT user_id, send_as, caption_template, thumbnail_file_id, rename_count, updated_at
FROM user_preferences WHERE user_id = ?`

func (r *SQLitePreferenceRepository) Get(ctx context.Context, userID int64) (*entities.UserPreferences, error) {
	p, err := scanPreferences(r.db.QueryRowContext(ctx, selectPreferences, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return entities.NewUserPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	return p, nil
}

// Update 在事务内读-改-写
func (r *SQLitePreferenceRepository) Update(ctx context.Context, userID int64, mutate func(*entities.UserPreferences)) (*entities.UserPreferences, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPreferences(tx.QueryRowContext(ctx, selectPreferences, userID))
	if errors.Is(err, sql.ErrNoRows) {
		p = entities.NewUserPreferences(userID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	mutate(p)
	p.UserID = userID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, send_as, caption_template, thumbnail_file_id, rename_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		  send_as = excluded.send_as,
		  caption_template = excluded.caption_template,
		  thumbnail_file_id = excluded.thumbnail_file_id,
		  rename_count = excluded.rename_count,
		  updated_at = excluded.updated_at`,
		p.UserID, p.SendAs, p.CaptionTemplate, p.ThumbnailFileID, p.RenameCount, unixOrZero(p.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit preferences: %w", err)
	}
	return p, nil
}

func (r *SQLitePreferenceRepository) IncrementRenameCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_preferences (user_id, rename_count, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		  rename_count = rename_count + 1,
		  updated_at = excluded.updated_at
		RETURNING rename_count`,
		userID, time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rename count: %w", err)
	}
	return count, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func (r *SQLitePreferenceRepository) Close() error {
	return r.db.Close()
}

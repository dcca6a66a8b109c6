package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123456:ABCDEF"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("server.port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Rename.SessionTimeout != 120*time.Second {
		t.Errorf("rename.session_timeout = %s, want 2m0s", cfg.Rename.SessionTimeout)
	}
	if cfg.Rename.ProgressInterval != 3*time.Second {
		t.Errorf("rename.progress_interval = %s", cfg.Rename.ProgressInterval)
	}
	if cfg.Storage.Driver != "json" {
		t.Errorf("storage.driver = %s, want json", cfg.Storage.Driver)
	}
	if cfg.Storage.Redis.Port != 6379 {
		t.Errorf("storage.redis.port = %d", cfg.Storage.Redis.Port)
	}
	if cfg.Janitor.MaxAge != 6*time.Hour {
		t.Errorf("janitor.max_age = %s", cfg.Janitor.MaxAge)
	}
	if cfg.Rename.MaxFileSize() != 0 {
		t.Errorf("MaxFileSize() = %d, want unlimited", cfg.Rename.MaxFileSize())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123456:ABCDEF"
  admin_ids: [1, 2]
rename:
  session_timeout: 300s
  max_file_size_mb: 20
  show_progress: false
storage:
  driver: sqlite
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Rename.SessionTimeout != 5*time.Minute {
		t.Errorf("session_timeout = %s, want 5m", cfg.Rename.SessionTimeout)
	}
	if cfg.Rename.MaxFileSize() != 20*1024*1024 {
		t.Errorf("MaxFileSize() = %d", cfg.Rename.MaxFileSize())
	}
	if len(cfg.Telegram.AdminIDs) != 2 {
		t.Errorf("admin_ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %s", cfg.Storage.Driver)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "from-file"
`)
	t.Setenv("RENAMER_TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("bot_token = %s, want from-env", cfg.Telegram.BotToken)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		hasErr bool
	}{
		{"缺少token", "telegram:\n  enabled: true\n", true},
		{"禁用telegram", "telegram:\n  enabled: false\n", false},
		{"未知存储", "telegram:\n  bot_token: x\nstorage:\n  driver: mongo\n", true},
		{"超时为零", "telegram:\n  bot_token: x\nrename:\n  session_timeout: 0s\n", true},
		{"webhook缺少url", "telegram:\n  bot_token: x\n  webhook:\n    enabled: true\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			if (err != nil) != tt.hasErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.hasErr)
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

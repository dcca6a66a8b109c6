package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Rename   RenameConfig   `mapstructure:"rename"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // console, file, both
	Format    string `mapstructure:"format"` // text, json
	FilePath  string `mapstructure:"file_path"`
	Colorize  bool   `mapstructure:"colorize"`
	AddSource bool   `mapstructure:"add_source"`
}

type TelegramConfig struct {
	BotToken     string        `mapstructure:"bot_token"`
	Enabled      bool          `mapstructure:"enabled"`
	AdminIDs     []int64       `mapstructure:"admin_ids"`     // 为空时所有人可用
	APIEndpoint  string        `mapstructure:"api_endpoint"`  // 自建 Bot API 服务器时修改
	FileEndpoint string        `mapstructure:"file_endpoint"` // 格式同 tgbotapi.FileEndpoint
	QPS          int           `mapstructure:"qps"`           // Bot API 调用速率，0 为不限制
	ChatQPS      float64       `mapstructure:"chat_qps"`      // 单个聊天的发送速率，0 为不限制
	PollTimeout  int           `mapstructure:"poll_timeout"`  // 长轮询秒数
	Webhook      WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type RenameConfig struct {
	SessionTimeout   time.Duration `mapstructure:"session_timeout"`
	WorkDir          string        `mapstructure:"work_dir"`
	ShowProgress     bool          `mapstructure:"show_progress"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	DeleteInput      bool          `mapstructure:"delete_input"` // 处理时删除用户发送的文件名消息
	MaxFileSizeMB    int64         `mapstructure:"max_file_size_mb"`
	UploadErrorLimit int           `mapstructure:"upload_error_limit"` // 回显给用户的错误信息最大字符数
}

// MaxFileSize 以字节返回文件大小上限，0 表示不限制
func (r RenameConfig) MaxFileSize() int64 {
	if r.MaxFileSizeMB <= 0 {
		return 0
	}
	return r.MaxFileSizeMB * 1024 * 1024
}

type StorageConfig struct {
	Driver     string        `mapstructure:"driver"` // json, sqlite, redis
	DataDir    string        `mapstructure:"data_dir"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"` // 0 关闭缓存
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type JanitorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Cron    string        `mapstructure:"cron"`    // 标准5字段 cron 表达式
	MaxAge  time.Duration `mapstructure:"max_age"` // 超过该时长的工作目录文件会被清理
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SetDefaults 写入默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file_path", "./logs/renamer.log")
	v.SetDefault("log.colorize", true)
	v.SetDefault("log.add_source", false)

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.qps", 25)
	v.SetDefault("telegram.chat_qps", 1)
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.webhook.enabled", false)

	v.SetDefault("rename.session_timeout", "120s")
	v.SetDefault("rename.work_dir", "./data/work")
	v.SetDefault("rename.show_progress", true)
	v.SetDefault("rename.progress_interval", "3s")
	v.SetDefault("rename.delete_input", true)
	v.SetDefault("rename.max_file_size_mb", 0)
	v.SetDefault("rename.upload_error_limit", 512)

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.sqlite_path", "./data/preferences.db")
	v.SetDefault("storage.cache_ttl", "5m")
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.key_prefix", "renamer")

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.cron", "*/30 * * * *")
	v.SetDefault("janitor.max_age", "6h")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// LoadConfig 加载配置，configFile 为空时在默认路径查找 config.yaml
// 环境变量 RENAMER_TELEGRAM_BOT_TOKEN 等可覆盖配置文件
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RENAMER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 检查配置项
func (c *Config) Validate() error {
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	if c.Telegram.Webhook.Enabled && c.Telegram.Webhook.URL == "" {
		return fmt.Errorf("telegram.webhook.url is required when webhook is enabled")
	}
	if c.Rename.SessionTimeout <= 0 {
		return fmt.Errorf("rename.session_timeout must be positive, got %s", c.Rename.SessionTimeout)
	}
	if c.Rename.WorkDir == "" {
		return fmt.Errorf("rename.work_dir is required")
	}
	if c.Rename.ShowProgress && c.Rename.ProgressInterval <= 0 {
		return fmt.Errorf("rename.progress_interval must be positive when progress is shown")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "json", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported storage.driver: %s", c.Storage.Driver)
	}

	if c.Janitor.Enabled && c.Janitor.MaxAge <= 0 {
		return fmt.Errorf("janitor.max_age must be positive")
	}
	return nil
}

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Options 日志初始化选项
type Options struct {
	Level     string // debug, info, warn, error
	Output    string // console, file, both
	Format    string // text, json
	FilePath  string
	Colorize  bool // 仅对控制台文本输出生效
	AddSource bool
}

var (
	defaultLogger *slog.Logger
	levelVar      = new(slog.LevelVar)
	mu            sync.RWMutex
	logFile       *os.File
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// Init 初始化全局日志
func Init(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	levelVar.Set(level)

	writers, err := openWriters(opts)
	if err != nil {
		return err
	}

	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		handlers = append(handlers, newHandler(w.writer, opts, w.console))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &fanoutHandler{handlers: handlers}
	}

	mu.Lock()
	defaultLogger = slog.New(handler)
	mu.Unlock()

	return nil
}

type target struct {
	writer  io.Writer
	console bool
}

func openWriters(opts Options) ([]target, error) {
	output := strings.ToLower(opts.Output)
	if output == "" {
		output = "console"
	}

	var targets []target
	if output == "console" || output == "both" {
		targets = append(targets, target{writer: os.Stdout, console: true})
	}

	if output == "file" || output == "both" {
		if opts.FilePath == "" {
			return nil, fmt.Errorf("log file path is required for output %q", output)
		}
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		mu.Lock()
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		mu.Unlock()

		targets = append(targets, target{writer: f})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("unknown log output: %s", opts.Output)
	}
	return targets, nil
}

func newHandler(w io.Writer, opts Options, console bool) slog.Handler {
	handlerOpts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: opts.AddSource,
	}

	if strings.ToLower(opts.Format) == "json" {
		return slog.NewJSONHandler(w, handlerOpts)
	}

	if console && opts.Colorize {
		handlerOpts.ReplaceAttr = colorizeLevel
	}
	return slog.NewTextHandler(w, handlerOpts)
}

// colorizeLevel 给控制台输出的级别字段上色
func colorizeLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}

	color := colorGray
	switch {
	case level >= slog.LevelError:
		color = colorRed
	case level >= slog.LevelWarn:
		color = colorYellow
	case level >= slog.LevelInfo:
		color = colorBlue
	}
	return slog.String(a.Key, color+level.String()+colorReset)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// SetLevel 动态调整日志级别
func SetLevel(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return err
	}
	levelVar.Set(l)
	return nil
}

func get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	// 未初始化时使用控制台文本输出
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
	}
	return defaultLogger
}

// Logger 返回底层 slog.Logger
func Logger() *slog.Logger {
	return get()
}

// With 返回附带固定字段的 logger
func With(args ...any) *slog.Logger {
	return get().With(SanitizeArgs(args...)...)
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// DebugSafe 等 *Safe 方法在输出前对敏感字段脱敏
func DebugSafe(msg string, args ...any) { get().Debug(msg, SanitizeArgs(args...)...) }
func InfoSafe(msg string, args ...any)  { get().Info(msg, SanitizeArgs(args...)...) }
func WarnSafe(msg string, args ...any)  { get().Warn(msg, SanitizeArgs(args...)...) }
func ErrorSafe(msg string, args ...any) { get().Error(msg, SanitizeArgs(args...)...) }

// Close 关闭日志文件
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// fanoutHandler 将同一条记录写入多个 handler（output=both）
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hd := range h.handlers {
		if hd.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hd := range h.handlers {
		if !hd.Enabled(ctx, r.Level) {
			continue
		}
		if err := hd.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hd := range h.handlers {
		next[i] = hd.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hd := range h.handlers {
		next[i] = hd.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

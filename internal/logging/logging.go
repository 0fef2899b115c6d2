package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	Level      string // debug, info, warn, error
	File       string // optional rotating log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	NoColor    bool
}

var (
	disabled atomic.Bool
	level    = new(slog.LevelVar)
	logger   atomic.Pointer[slog.Logger]
	closer   io.Closer
)

func init() {
	logger.Store(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

// Setup installs the console handler and, when opts.File is set, a rotating
// file handler next to it. It also becomes slog's default logger.
func Setup(opts Options) error {
	if err := SetLevel(opts.Level); err != nil {
		return err
	}

	var h slog.Handler = tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	})

	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 2),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		if closer != nil {
			closer.Close()
		}
		closer = lj
		h = fanout{h, slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: level})}
	}

	l := slog.New(h)
	logger.Store(l)
	slog.SetDefault(l)
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// SetLevel changes the level at runtime. An empty name means info.
func SetLevel(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		level.Set(slog.LevelInfo)
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

// Level returns the current level.
func Level() slog.Level { return level.Level() }

// Logger returns the structured logger for components that take one.
func Logger() *slog.Logger {
	if disabled.Load() {
		return slog.New(discard{})
	}
	return logger.Load()
}

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

func logf(lvl slog.Level, msg string) {
	if disabled.Load() {
		return
	}
	logger.Load().Log(context.Background(), lvl, msg)
}

// Info logs an info message
func Info(v ...any) { logf(slog.LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Infof logs a formatted info message
func Infof(format string, v ...any) { logf(slog.LevelInfo, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...any) { logf(slog.LevelError, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Errorf logs a formatted error message
func Errorf(format string, v ...any) { logf(slog.LevelError, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...any) { logf(slog.LevelWarn, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) { logf(slog.LevelWarn, fmt.Sprintf(format, v...)) }

// Debug logs a debug message
func Debug(v ...any) { logf(slog.LevelDebug, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) { logf(slog.LevelDebug, fmt.Sprintf(format, v...)) }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// fanout writes each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }

// File: internal/log/log.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Structured logging for mediabuf. The pool and queue cores never log; the
// collaborators around them (facade, adapters, relay, monitor, statsdb, CLI)
// go through this package.

package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init sets up the global logger once. GO_ENV=production selects JSON output.
func Init(level string) {
	once.Do(func() {
		opts := &slog.HandlerOptions{Level: ParseLevel(level)}
		var h slog.Handler
		if os.Getenv("GO_ENV") == "production" {
			h = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			h = slog.NewTextHandler(os.Stderr, opts)
		}
		set(slog.New(h))
	})
}

// SetOutput replaces the global logger with a text logger writing to w.
// Tests use it to capture or silence output.
func SetOutput(w io.Writer, level string) {
	once.Do(func() {})
	set(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})))
}

func set(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the global logger, initializing it at info level if needed.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init("info")
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any) { L().Info(msg, args...) }
func Warn(msg string, args ...any) { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

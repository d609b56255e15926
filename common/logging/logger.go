// Package logging wraps log/slog with the conventions shared by the
// ChainTrace services: structured JSON by default, request-id extraction
// from the middleware context, and typed field helpers for the domain.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/chaintrace-systems/chaintrace-stack/common/middleware"
)

// Logger is a context-aware slog.Logger. The *Context methods pull the
// request ID out of the context so every line of a request carries it.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to stdout. format is "json" or "text";
// anything else falls back to JSON, the deployment default. Source
// locations are attached only when the level is error or stricter.
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelError,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default wraps the process-wide slog default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// SetDefault installs l as the process default, for slog.Default and the
// plain log package alike.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

// ParseLevel maps a config string to a slog.Level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithContext returns the underlying logger tagged with the request ID from
// ctx, when one is present.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	if id := middleware.GetRequestID(ctx); id != "" {
		return l.Logger.With(slog.String("request_id", id))
	}
	return l.Logger
}

// InfoContext logs at info level with the request ID attached.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with the request ID attached.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with the request ID attached.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// DebugContext logs at debug level with the request ID attached.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).DebugContext(ctx, msg, args...)
}

// With returns a Logger with the attributes pre-applied.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

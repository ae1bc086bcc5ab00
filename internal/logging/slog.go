package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Structured is the Logger used by the server and the CLIs. Context values
// reach the slog handler through the *Context logging methods.
type Structured struct {
	base *slog.Logger
}

// Wrap adapts an existing slog logger.
func Wrap(base *slog.Logger) *Structured {
	return &Structured{base: base}
}

// New builds a slog-backed logger writing to w. format is "json" or "text";
// level is one of debug, info, warn, error (info when unrecognised).
func New(w io.Writer, level, format string) *Structured {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return Wrap(slog.New(h))
}

// Nop returns a logger that discards everything.
func Nop() *Structured {
	return Wrap(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *Structured) Debug(ctx context.Context, msg string, args ...any) {
	s.base.DebugContext(ctx, msg, args...)
}

func (s *Structured) Info(ctx context.Context, msg string, args ...any) {
	s.base.InfoContext(ctx, msg, args...)
}

func (s *Structured) Warn(ctx context.Context, msg string, args ...any) {
	s.base.WarnContext(ctx, msg, args...)
}

func (s *Structured) Error(ctx context.Context, msg string, args ...any) {
	s.base.ErrorContext(ctx, msg, args...)
}

func (s *Structured) With(args ...any) Logger {
	return &Structured{base: s.base.With(args...)}
}

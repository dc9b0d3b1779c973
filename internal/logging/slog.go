package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func newSlogJSON(level string) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel(level)})))
}

func newSlogText(level string) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel(level)})))
}

// NewTextLogger writes slog text records at level or above to w.
func NewTextLogger(w io.Writer, level string) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
}

func slogLevel(level string) slog.Level {
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

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

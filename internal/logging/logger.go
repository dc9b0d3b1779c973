// Package logging defines the structured-logging interface used across
// MindWell. Implementations wrap slog (default) or zap with a rotating file.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "job advanced", "job_id", id, "stage", stage)
type Logger interface {
	// Debug logs verbose diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Options selects and tunes a Logger implementation.
type Options struct {
	// Format is "json" (slog JSON to stdout), "text" (slog text) or "zap".
	Format string
	// Level is one of debug, info, warn, error.
	Level string
	// File, when set with the zap format, receives rotated log output.
	File string
}

// New builds a Logger from opts. Unknown formats fall back to slog JSON.
func New(opts Options) (Logger, error) {
	switch opts.Format {
	case "zap":
		return NewZapLogger(opts)
	case "text":
		return newSlogText(opts.Level), nil
	default:
		return newSlogJSON(opts.Level), nil
	}
}

type nopLogger struct{}

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) Logger                  { return n }

package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapLogger adapts a sugared zap logger to Logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger writes JSON to stdout and, when opts.File is set, to a
// lumberjack-rotated file as well.
func NewZapLogger(opts Options) (*ZapLogger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(defaultLevel(opts.Level)))); err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.NewMultiWriteSyncer(sinks...), level)
	return NewZapLoggerFrom(zap.New(core)), nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.Sugar()}
}

func defaultLevel(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

func (z *ZapLogger) Debug(_ context.Context, msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *ZapLogger) Info(_ context.Context, msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *ZapLogger) Warn(_ context.Context, msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *ZapLogger) Error(_ context.Context, msg string, args ...any) { z.s.Errorw(msg, args...) }

func (z *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{s: z.s.With(args...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.s.Sync()
}

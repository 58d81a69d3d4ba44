package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the key/value logging interface used across the service.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(err error, msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
	Named(name string) Logger
	Sync() error
}

// Options controls how the process logger is built.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	core *zap.SugaredLogger
}

// New builds a zap-backed Logger.
func New(opts Options) (Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	format := opts.Format
	if format != "json" {
		format = "console"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	core, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return &zapLogger{core: core.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{core: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debug(msg string, keysAndValues ...any) { z.core.Debugw(msg, keysAndValues...) }
func (z *zapLogger) Info(msg string, keysAndValues ...any)  { z.core.Infow(msg, keysAndValues...) }
func (z *zapLogger) Warn(msg string, keysAndValues ...any)  { z.core.Warnw(msg, keysAndValues...) }

func (z *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	if err != nil {
		keysAndValues = append(keysAndValues, zap.Error(err))
	}
	z.core.Errorw(msg, keysAndValues...)
}

func (z *zapLogger) With(keysAndValues ...any) Logger {
	return &zapLogger{core: z.core.With(keysAndValues...)}
}

func (z *zapLogger) Named(name string) Logger {
	return &zapLogger{core: z.core.Named(name)}
}

func (z *zapLogger) Sync() error { return z.core.Sync() }

var (
	mu  sync.RWMutex
	std = NewNop()
)

// Init builds a logger from opts and installs it as the process-wide logger.
func Init(opts Options) (Logger, error) {
	l, err := New(opts)
	if err != nil {
		return nil, err
	}
	SetStd(l)
	return l, nil
}

// SetStd replaces the process-wide logger.
func SetStd(l Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	std = l
	mu.Unlock()
}

// Std returns the process-wide logger. It is a nop logger until SetStd is called.
func Std() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

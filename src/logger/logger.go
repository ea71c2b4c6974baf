package logger

import (
	"fmt"
	"strings"

	"stream-processor/src/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger is the application logger. It keeps a printf-style API on top of a zap
// SugaredLogger so call sites read "component : message".
type Logger struct {
	name  string
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a logger configured from the log section of the config.
// It falls back to a production zap logger if the configured outputs cannot be opened.
func NewLogger(config *config.Config, name string) *Logger {
	zapLogger, err := build(config)
	if err != nil {
		zapLogger, _ = zap.NewProduction()
		zapLogger.Warn("failed to build configured logger, using defaults", zap.Error(err))
	}
	return NewLoggerFromZap(zapLogger, name)
}

// -----------------------------------------------------------------------------

// NewLoggerFromZap wraps an existing zap logger.
func NewLoggerFromZap(zapLogger *zap.Logger, name string) *Logger {
	named := zapLogger.Named(name).WithOptions(zap.AddCallerSkip(1))
	return &Logger{
		name:  name,
		base:  named,
		sugar: named.Sugar(),
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger returns a logger discarding every entry.
func NewNopLogger() *Logger {
	return NewLoggerFromZap(zap.NewNop(), "nop")
}

// -----------------------------------------------------------------------------

// Named returns a child logger whose name is appended to the current one.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:  l.name + "." + name,
		base:  l.base.Named(name),
		sugar: l.base.Named(name).Sugar(),
	}
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warning(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Critical logs at error level with a severity marker. It never exits the process;
// callers decide whether the condition is fatal.
func (l *Logger) Critical(format string, args ...any) {
	l.sugar.Errorw(fmt.Sprintf(format, args...), "severity", "critical")
}

// -----------------------------------------------------------------------------

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// -----------------------------------------------------------------------------

func build(config *config.Config) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(config.Log.Level))
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if config.Log.Format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if len(config.Log.OutputPaths) > 0 {
		cfg.OutputPaths = config.Log.OutputPaths
	}

	return cfg.Build()
}

// -----------------------------------------------------------------------------

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "critical":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

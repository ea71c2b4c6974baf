package logger

import (
	"path/filepath"
	"testing"

	"stream-processor/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromZap(zap.New(core), "test"), logs
}

// -----------------------------------------------------------------------------

func TestLoggerFormatsMessages(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)

	log.Debug("%s : debug %d", "feed", 1)
	log.Info("%s : connected", "feed")
	log.Warning("%s : slow consumer", "feed")
	log.Error("%s : failed: %v", "feed", assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "feed : debug 1", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Contains(t, entries[3].Message, assert.AnError.Error())
	assert.Equal(t, "test", entries[0].LoggerName)
}

func TestLoggerCritical(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	log.Critical("%s : giving up", "feed")

	entries := logs.FilterField(zap.String("severity", "critical")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "feed : giving up", entries[0].Message)
}

func TestLoggerNamed(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	log.Named("child").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "test.child", logs.All()[0].LoggerName)
}

func TestLoggerLevelFiltering(t *testing.T) {
	log, logs := observed(zapcore.WarnLevel)
	log.Debug("dropped")
	log.Info("dropped")
	log.Warning("kept")
	assert.Equal(t, 1, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("critical"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewLoggerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "console"
	cfg.Log.OutputPaths = []string{filepath.Join(t.TempDir(), "app.log")}

	log := NewLogger(cfg, "app")
	require.NotNil(t, log)
	log.Info("%s : started", "app")
	_ = log.Sync()

	// unopenable outputs fall back to defaults instead of failing
	cfg.Log.OutputPaths = []string{filepath.Join(t.TempDir(), "missing", "dir", "app.log")}
	assert.NotNil(t, NewLogger(cfg, "app"))
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopLogger().Error("%s : ignored", "x")
	})
}

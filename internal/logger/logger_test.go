package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelError,
		"":        slog.LevelError,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in, slog.LevelError), "input %q", in)
	}
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	t.Setenv("MELODIA_LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, DefaultConfig().Level)

	t.Setenv("MELODIA_LOG_LEVEL", "")
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.Level)
	assert.Equal(t, "text", cfg.Format)
}

func TestNewLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	log.Debug("hidden")
	log.Info("track changed", slog.String("track_id", "s-101"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"track_id":"s-101"`)
}

func TestNewTestLoggerLevel(t *testing.T) {
	ctx := context.Background()

	t.Setenv("TEST_DEBUG", "")
	assert.False(t, NewTestLogger().Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewTestLogger().Enabled(ctx, slog.LevelWarn))

	t.Setenv("TEST_DEBUG", "1")
	assert.True(t, NewTestLogger().Enabled(ctx, slog.LevelDebug))

	t.Setenv("TEST_DEBUG", "info")
	log := NewTestLogger()
	assert.True(t, log.Enabled(ctx, slog.LevelInfo))
	assert.False(t, log.Enabled(ctx, slog.LevelDebug))
}

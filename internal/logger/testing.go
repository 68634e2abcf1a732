package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger returns the logger used by tests: text on stdout at WARN.
//
// TEST_DEBUG raises the level. A level name (debug, info, ...) is honoured,
// any other non-empty value means debug.
func NewTestLogger() *slog.Logger {
	return NewLogger(Config{
		Level:  testLevel(os.Getenv("TEST_DEBUG")),
		Format: "text",
		Output: os.Stdout,
	})
}

func testLevel(env string) slog.Level {
	if env == "" {
		return slog.LevelWarn
	}
	return ParseLevel(env, slog.LevelDebug)
}

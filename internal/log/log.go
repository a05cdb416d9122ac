// Package log wires slog for the bilancio binaries: one text handler on
// stdout, level from LOG_LEVEL, component tag on every record.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// LevelFromEnv maps LOG_LEVEL to a slog level, defaulting to Info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
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

// Init builds the process logger, installs it as the slog default and
// returns it. Every record carries the component name so logs from the
// three binaries can be told apart when aggregated.
func Init(component string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: LevelFromEnv(),
	})
	logger := slog.New(handler).With("component", component)
	slog.SetDefault(logger)
	return logger
}

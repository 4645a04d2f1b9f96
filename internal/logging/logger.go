// Package logging configures the process-wide slog logger. Everything else
// in the codebase logs through the slog default; only main calls Init.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the default structured logger. Level and format normally
// come from config; empty strings select info-level text output.
func Init(level, format string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", "devpulse"))

	slog.Info("logger initialized",
		"level", parseLevel(level).String(),
		"format", format,
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

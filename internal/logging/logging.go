package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text-handler slog.Logger at the given level as the
// package default and returns it. level "silent" discards all output.
func Setup(level string) *slog.Logger {
	var w io.Writer = os.Stderr
	if level == "silent" {
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
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

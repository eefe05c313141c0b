package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds a structured logger writing to w. Format "text" selects the
// human readable handler, anything else emits JSON.
func Setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupDefault installs the logger as the process-wide default and returns it
func SetupDefault(w io.Writer, level, format string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, level, format)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
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

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides structured logging using slog
var Logger *slog.Logger

func init() {
	Logger = New(os.Stdout, slog.LevelInfo, "json")
}

// New builds a logger writing to w in the given format ("json" or "text")
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Configure replaces the package logger from config values
func Configure(level, format string) {
	Logger = New(os.Stdout, ParseLevel(level), format)
	slog.SetDefault(Logger)
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewLogger creates a new logger with the given name
func NewLogger(name string) *slog.Logger {
	return Logger.With("component", name)
}

// Discard returns a logger that drops everything, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

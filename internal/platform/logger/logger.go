// Package logger provides structured logging for the game server.
// Every state transition worth auditing should be traceable through this.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a slog.Logger with the call shape the rest of the server uses.
type Logger struct {
	base *slog.Logger
}

// NewLogger creates a text logger on stdout at info level.
func NewLogger() *Logger {
	return New(os.Stdout, "info", "text")
}

// New creates a logger writing to w. format is "text" or "json".
func New(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{base: slog.New(handler).With("app", "it-empire")}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, "error", "text")
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
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

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{base: l.base.With(args...)}
}

// Debug logs verbose diagnostics.
func (l *Logger) Debug(msg string, args ...any) {
	l.base.Debug(msg, args...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, args ...any) {
	l.base.Info(msg, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warn(msg, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, args ...any) {
	l.base.Error(msg, args...)
}

// Event logs a game event for the audit trail.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.base.Info("event", "type", eventType, "actor", actorID, "details", details)
}

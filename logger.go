package memarena

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with memarena-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithArena adds an arena field to the logger.
func (l *Logger) WithArena(a Arena) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", a.id),
	}
}

// LogAlloc logs an allocation.
func (l *Logger) LogAlloc(p Ptr, size int, backing Backing, site Site, err error) {
	if err != nil {
		l.Error("alloc failed",
			"size", size,
			"backing", backing.String(),
			"site", site.String(),
			"error", err,
		)
		return
	}
	l.Debug("alloc",
		"ptr", p.String(),
		"size", size,
		"backing", backing.String(),
		"site", site.String(),
	)
}

// LogFree logs a single release.
func (l *Logger) LogFree(p Ptr, size int, site Site, err error) {
	if err != nil {
		l.Error("free failed",
			"ptr", p.String(),
			"site", site.String(),
			"error", err,
		)
		return
	}
	l.Debug("free",
		"ptr", p.String(),
		"size", size,
	)
}

// LogDestroy logs a bulk release.
func (l *Logger) LogDestroy(a Arena, chunks, bytes int, err error) {
	if err != nil {
		l.Error("arena destroy failed",
			"arena", a.id,
			"chunks", chunks,
			"bytes", bytes,
			"error", err,
		)
		return
	}
	l.Debug("arena destroyed",
		"arena", a.id,
		"chunks", chunks,
		"bytes", bytes,
	)
}

// LogLeak logs an arena that was still alive when its manager closed.
func (l *Logger) LogLeak(a Arena, chunks, bytes int) {
	l.Warn("arena leaked",
		"arena", a.id,
		"chunks", chunks,
		"bytes", bytes,
	)
}

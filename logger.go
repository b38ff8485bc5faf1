package pstgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with pstgo-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds the source path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithNID adds a node id field to the logger.
func (l *Logger) WithNID(nid uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("nid", nid),
	}
}

// LogOpen logs opening a file.
func (l *Logger) LogOpen(ctx context.Context, source string, format string, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "file opened",
			"source", source,
			"format", format,
			"duration", d,
		)
	}
}

// LogClear logs a cache generation change.
func (l *Logger) LogClear(ctx context.Context, generation uint64) {
	l.DebugContext(ctx, "caches cleared",
		"generation", generation,
	)
}

// LogRowSkipped logs a table row that failed to decode during enumeration.
func (l *Logger) LogRowSkipped(ctx context.Context, table string, nid uint32, err error) {
	l.WarnContext(ctx, "row skipped",
		"table", table,
		"nid", nid,
		"error", err,
	)
}

// LogDecode logs decoding of a property or table context.
func (l *Logger) LogDecode(ctx context.Context, what string, nid uint32, d time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "decode failed",
			"what", what,
			"nid", nid,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "decoded",
			"what", what,
			"nid", nid,
			"duration", d,
		)
	}
}

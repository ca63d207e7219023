package segread

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with segread-specific context.
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
	return newLogger(os.Stderr, "json", level)
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return newLogger(os.Stderr, "text", level)
}

func newLogger(w io.Writer, format string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return NewLogger(slog.NewJSONHandler(w, opts))
	}
	return NewLogger(slog.NewTextHandler(w, opts))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithPath adds a directory path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithBackend adds a storage backend field to the logger.
func (l *Logger) WithBackend(backend string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", backend),
	}
}

// LogDirectoryGet logs a directory acquisition.
func (l *Logger) LogDirectoryGet(ctx context.Context, path, lockType string, refs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "directory get failed",
			"path", path,
			"lock_type", lockType,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "directory acquired",
			"path", path,
			"lock_type", lockType,
			"refs", refs,
		)
	}
}

// LogRelease logs a directory release.
func (l *Logger) LogRelease(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "directory release failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "directory released",
			"path", path,
		)
	}
}

// LogSearch logs a sorted collection over one reader.
func (l *Logger) LogSearch(ctx context.Context, sort string, numHits, totalHits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"sort", sort,
			"num_hits", numHits,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"sort", sort,
			"num_hits", numHits,
			"total_hits", totalHits,
		)
	}
}

// LogMerge logs a cross-shard merge.
func (l *Logger) LogMerge(ctx context.Context, shards, topN, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"shards", shards,
			"top_n", topN,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "merge completed",
			"shards", shards,
			"top_n", topN,
			"hits", hits,
		)
	}
}

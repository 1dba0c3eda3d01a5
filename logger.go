package shmvec

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with shared-vector field names.
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

// WithNamespace adds a namespace field to the logger.
func (l *Logger) WithNamespace(ns string) *Logger {
	return &Logger{
		Logger: l.Logger.With("namespace", ns),
	}
}

// WithVector adds a vec_id field to the logger.
func (l *Logger) WithVector(id VectorID) *Logger {
	return &Logger{
		Logger: l.Logger.With("vec_id", id),
	}
}

// LogAlloc logs an allocation.
func (l *Logger) LogAlloc(id VectorID, req AllocRequest, reused bool, err error) {
	if err != nil {
		l.Error("alloc failed",
			"element_size", req.ElementSize,
			"max_elements", req.MaxElements,
			"window_elements", req.WindowElements,
			"error", err,
		)
		return
	}
	l.Info("vector allocated",
		"vec_id", id,
		"element_size", req.ElementSize,
		"max_elements", req.MaxElements,
		"window_elements", req.WindowElements,
		"initial_capacity", req.InitialCapacity,
		"reused_id", reused,
	)
}

// LogFree logs a release attempt.
func (l *Logger) LogFree(id VectorID, freed bool, err error) {
	switch {
	case freed:
		l.Info("vector freed", "vec_id", id)
	case err != nil:
		l.Warn("free refused", "vec_id", id, "error", err)
	}
}

// LogSlide logs a window move.
func (l *Logger) LogSlide(id VectorID, window uint64, offset int64, err error) {
	if err != nil {
		l.Error("window map failed",
			"vec_id", id,
			"window", window,
			"offset", offset,
			"error", err,
		)
		return
	}
	l.Debug("window mapped",
		"vec_id", id,
		"window", window,
		"offset", offset,
	)
}

// LogCommit logs growth of the committed region.
func (l *Logger) LogCommit(id VectorID, committed uint64, err error) {
	if err != nil {
		l.Error("commit failed",
			"vec_id", id,
			"committed_bytes", committed,
			"error", err,
		)
		return
	}
	l.Debug("window committed",
		"vec_id", id,
		"committed_bytes", committed,
	)
}

// LogWait logs a failed wait.
func (l *Logger) LogWait(id VectorID, err error) {
	l.Error("wait failed", "vec_id", id, "error", err)
}

// LogSnapshot logs a snapshot export or import.
func (l *Logger) LogSnapshot(op string, id VectorID, name string, elements uint64, bytes int64, err error) {
	if err != nil {
		l.Error("snapshot failed", "op", op, "vec_id", id, "blob", name, "bytes", bytes, "error", err)
		return
	}
	l.Info("snapshot done", "op", op, "vec_id", id, "blob", name, "elements", elements, "bytes", bytes)
}

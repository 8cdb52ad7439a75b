// Package runlog provides the append-only run log shared by the extractor's
// structured diagnostics and the raw output of the transcoder.
// It uses the standard library log/slog package for structured logging.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Log is an append-only log sink. Structured records and raw tool output
// go through the same lock so lines never interleave.
type Log struct {
	mu     sync.Mutex
	out    io.Writer
	file   *os.File
	path   string
	logger *slog.Logger
}

// Open creates the log directory if needed and opens path for appending.
// Existing content is never truncated. Call Close() when done.
func Open(path string, level slog.Level) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(f, level)
	l.file = f
	l.path = path
	return l, nil
}

// New wraps an arbitrary writer. Used in tests.
func New(w io.Writer, level slog.Level) *Log {
	l := &Log{out: w}
	l.logger = slog.New(slog.NewTextHandler(&lockedWriter{log: l}, &slog.HandlerOptions{Level: level}))
	return l
}

// Logger returns the structured logger writing to this log
func (l *Log) Logger() *slog.Logger {
	return l.logger
}

// Writer returns a writer appending raw bytes to the log under the shared lock
func (l *Log) Writer() io.Writer {
	return &lockedWriter{log: l}
}

// Path returns the file path, or "" when not file-backed
func (l *Log) Path() string {
	return l.path
}

// Close closes the log file if one was opened.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.out = io.Discard
		return err
	}
	return nil
}

type lockedWriter struct {
	log *Log
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.log.mu.Lock()
	defer w.log.mu.Unlock()
	return w.log.out.Write(p)
}

// WithRunID returns a logger with run_id attribute
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithComponent returns a logger with component attribute
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// ParseLevel maps a config string to a slog level.
// Supported levels: debug, info, warn, error
func ParseLevel(level string) slog.Level {
	switch level {
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

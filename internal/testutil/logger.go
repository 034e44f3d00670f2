// Package testutil provides loggers and schema fixtures shared by tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes to t.Log, so
// output only shows for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogRecord is one captured log call.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps records for assertions.
type LogRecorder struct {
	mu      sync.Mutex
	records []LogRecord
	attrs   []slog.Attr
	parent  *LogRecorder
}

// NewRecordingLogger returns a logger and the recorder behind it.
func NewRecordingLogger() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(rec), rec
}

func (r *LogRecorder) root() *LogRecorder {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, record.NumAttrs()+len(r.attrs))
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.String()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})

	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.records = append(root.records, LogRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	return nil
}

// WithAttrs implements slog.Handler.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &LogRecorder{attrs: merged, parent: r}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns the captured records at or above level.
func (r *LogRecorder) Records(level slog.Level) []LogRecord {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var out []LogRecord
	for _, rec := range root.records {
		if rec.Level >= level {
			out = append(out, rec)
		}
	}
	return out
}

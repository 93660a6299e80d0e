// Package observability builds the process logger and the Prometheus metrics
// exported by the watch daemon.
package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type contextKey string

// RunIDContextKey stores the identifier of the current analysis run.
const RunIDContextKey contextKey = "run_id"

// WithRunID returns a context carrying id; records logged with it get a
// run_id attribute.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDContextKey, id)
}

// RunID extracts the run identifier from ctx, or "".
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RunIDContextKey).(string)
	return id
}

// NewLogger builds a slog logger writing to w. format is "json" or "text";
// level is one of debug, info, warn, error and defaults to info.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(&runHandler{Handler: h})
}

// NopLogger discards everything.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level.
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

// runHandler injects run_id from the record's context.
type runHandler struct {
	slog.Handler
}

func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RunID(ctx); id != "" {
		r.AddAttrs(slog.String(string(RunIDContextKey), id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{Handler: h.Handler.WithGroup(name)}
}

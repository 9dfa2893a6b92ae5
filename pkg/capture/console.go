package capture

import (
	"context"
	"fmt"
	"log/slog"
)

// LogHandler tees slog records into the event log before forwarding them to
// the wrapped handler. Install it around the application's handler:
//
//	slog.SetDefault(slog.New(capture.NewLogHandler(inner, agent)))
//
// The agent's own logger must not route through a LogHandler, or its
// warnings would feed back into capture.
type LogHandler struct {
	inner    slog.Handler
	recorder Recorder
}

// NewLogHandler wraps inner with console capture.
func NewLogHandler(inner slog.Handler, recorder Recorder) *LogHandler {
	if inner == nil {
		inner = slog.Default().Handler()
	}
	return &LogHandler{inner: inner, recorder: recorder}
}

// Enabled defers entirely to the wrapped handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle records the message and forwards the record unchanged. Capture
// happens first: a failing inner handler must not lose the telemetry.
func (h *LogHandler) Handle(ctx context.Context, rec slog.Record) error {
	h.recorder.RecordConsole(severityFor(rec.Level), renderRecord(rec))
	return h.inner.Handle(ctx, rec)
}

// WithAttrs forwards to the wrapped handler, keeping capture attached.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{inner: h.inner.WithAttrs(attrs), recorder: h.recorder}
}

// WithGroup forwards to the wrapped handler, keeping capture attached.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{inner: h.inner.WithGroup(name), recorder: h.recorder}
}

func severityFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// renderRecord flattens the message and its attrs into one line.
func renderRecord(rec slog.Record) string {
	out := rec.Message
	rec.Attrs(func(attr slog.Attr) bool {
		out += fmt.Sprintf(" %s=%v", attr.Key, attr.Value.Any())
		return true
	})
	return out
}

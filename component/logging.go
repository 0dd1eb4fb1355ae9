package component

import (
	"log/slog"
	"time"
)

// LogEntry is the wire form of an event, published as JSON
type LogEntry struct {
	Timestamp string         `json:"timestamp"` // RFC3339 format
	Level     string         `json:"level"`
	Network   string         `json:"network"`
	Component string         `json:"component"`
	Kind      EventKind      `json:"kind"`
	Message   string         `json:"message"`
	Error     string         `json:"error,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// NewLogEntry converts an event to its wire form
func NewLogEntry(e Event) LogEntry {
	entry := LogEntry{
		Timestamp: e.Time.UTC().Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Network:   e.Network,
		Component: e.Component,
		Kind:      e.Kind,
		Message:   e.Message,
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}
	if len(e.Attrs) > 0 {
		entry.Attrs = make(map[string]any, len(e.Attrs))
		for _, a := range e.Attrs {
			entry.Attrs[a.Key] = a.Value.Resolve().Any()
		}
	}
	return entry
}

// Logger is the per-component logging facade. Records go to the event sink
// the network injected, tagged with the component path.
type Logger struct {
	base *Base
}

// Debug logs a debug-level message. args are slog-style key/value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, nil, args)
}

// Info logs an info-level message
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, nil, args)
}

// Warn logs a warning-level message
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, nil, args)
}

// Error logs an error-level message with optional error details
func (l *Logger) Error(msg string, err error, args ...any) {
	l.log(slog.LevelError, msg, err, args)
}

func (l *Logger) log(level slog.Level, msg string, err error, args []any) {
	var attrs []slog.Attr
	if len(args) > 0 {
		attrs = slog.Group("", args...).Value.Group()
	}
	l.base.emit(Event{
		Kind:    EventLog,
		Level:   level,
		Message: msg,
		Err:     err,
		Attrs:   attrs,
	})
}

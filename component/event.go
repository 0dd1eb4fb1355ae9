package component

import (
	"context"
	"log/slog"
	"time"
)

// EventKind classifies events reported by components and the runtime
type EventKind string

// Event kinds
const (
	EventLog     EventKind = "log"
	EventState   EventKind = "state"
	EventFailure EventKind = "failure"
)

// Event is a structured observation about one component
type Event struct {
	Time      time.Time
	Network   string
	Component string
	Level     slog.Level
	Kind      EventKind
	Message   string
	Err       error
	State     State
	Attrs     []slog.Attr
}

// EventSink receives component events. Implementations must be safe for
// concurrent use and must not block the emitting component for long.
type EventSink interface {
	Emit(Event)
}

// NopSink discards every event
type NopSink struct{}

// Emit implements EventSink
func (NopSink) Emit(Event) {}

// SinkFunc adapts a function to EventSink
type SinkFunc func(Event)

// Emit implements EventSink
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans every event out to each sink in order
type MultiSink []EventSink

// Emit implements EventSink
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// SlogSink writes events to a slog logger
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing to logger, or slog.Default() when nil
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit implements EventSink
func (s *SlogSink) Emit(e Event) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, e.Level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(e.Attrs)+5)
	attrs = append(attrs,
		slog.String("network", e.Network),
		slog.String("component", e.Component),
		slog.String("kind", string(e.Kind)),
	)
	if e.Kind == EventState {
		attrs = append(attrs, slog.String("state", e.State.String()))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	attrs = append(attrs, e.Attrs...)

	s.logger.LogAttrs(ctx, e.Level, e.Message, attrs...)
}

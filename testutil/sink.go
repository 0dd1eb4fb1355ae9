package testutil

import (
	"log/slog"
	"sync"

	"github.com/wildparky/pflow/component"
)

// RecordingSink is an EventSink that keeps every event for inspection.
// Thread-safe for concurrent use from multiple goroutines.
type RecordingSink struct {
	mu     sync.Mutex
	events []component.Event
}

// NewRecordingSink creates an empty sink
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Emit implements component.EventSink
func (s *RecordingSink) Emit(e component.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of every event recorded
func (s *RecordingSink) Events() []component.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]component.Event(nil), s.events...)
}

// Kind returns the events of one kind
func (s *RecordingSink) Kind(kind component.EventKind) []component.Event {
	var out []component.Event
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the messages of log events at level, in order
func (s *RecordingSink) Messages(level slog.Level) []string {
	var out []string
	for _, e := range s.Kind(component.EventLog) {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Reset drops every recorded event
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

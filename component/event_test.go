package component

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerEmitsEvents(t *testing.T) {
	sink := &recordingSink{}
	p := newPipe("p")
	initialized(t, p)
	p.AttachRuntime("net", sink, nil)

	p.Log().Warn("careful", "count", 3)
	p.Log().Error("broken", fmt.Errorf("boom"))

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventLog, events[0].Kind)
	assert.Equal(t, slog.LevelWarn, events[0].Level)
	assert.Equal(t, "careful", events[0].Message)
	assert.Equal(t, "p", events[0].Component)
	assert.Equal(t, "net", events[0].Network)
	require.Len(t, events[0].Attrs, 1)
	assert.Equal(t, "count", events[0].Attrs[0].Key)
	assert.False(t, events[0].Time.IsZero())

	assert.Equal(t, slog.LevelError, events[1].Level)
	assert.EqualError(t, events[1].Err, "boom")
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewSlogSink(logger)

	sink.Emit(Event{Level: slog.LevelDebug, Kind: EventLog, Message: "hidden"})
	sink.Emit(Event{
		Level:     slog.LevelInfo,
		Kind:      EventState,
		Network:   "net",
		Component: "tap/split",
		Message:   "state running",
		State:     StateRunning,
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "state running", record["msg"])
	assert.Equal(t, "net", record["network"])
	assert.Equal(t, "tap/split", record["component"])
	assert.Equal(t, "state", record["kind"])
	assert.Equal(t, "running", record["state"])
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var calls int
	m := MultiSink{a, nil, b, SinkFunc(func(Event) { calls++ })}

	m.Emit(Event{Message: "x"})
	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
	assert.Equal(t, 1, calls)
	NopSink{}.Emit(Event{})
}

func TestNewLogEntry(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := NewLogEntry(Event{
		Time:      at,
		Network:   "net",
		Component: "gen",
		Level:     slog.LevelWarn,
		Kind:      EventLog,
		Message:   "slow",
		Err:       fmt.Errorf("late"),
		Attrs:     []slog.Attr{slog.Int("lag", 4)},
	})

	assert.Equal(t, LogEntry{
		Timestamp: "2024-05-01T12:00:00Z",
		Level:     "WARN",
		Network:   "net",
		Component: "gen",
		Kind:      EventLog,
		Message:   "slow",
		Error:     "late",
		Attrs:     map[string]any{"lag": int64(4)},
	}, entry)
}

// fakePublisher records published messages
type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string][][]byte
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.msgs == nil {
		f.msgs = make(map[string][][]byte)
	}
	f.msgs[subject] = append(f.msgs[subject], data)
	return nil
}

func (f *fakePublisher) get(subject string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[subject]
}

func TestNATSSinkPublishesEntries(t *testing.T) {
	pub := &fakePublisher{}
	sink, err := NewNATSSink(pub, nil, NATSSinkConfig{Level: slog.LevelInfo})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	sink.Emit(Event{Level: slog.LevelDebug, Network: "net", Component: "gen", Message: "skipped"})
	sink.Emit(Event{Level: slog.LevelInfo, Network: "net", Component: "tap/split", Kind: EventLog, Message: "hello"})
	require.NoError(t, sink.Stop(time.Second))

	subject := "logs.net.tap_split"
	assert.Equal(t, subject, sink.Subject(Event{Network: "net", Component: "tap/split"}))
	msgs := pub.get(subject)
	require.Len(t, msgs, 1)

	var entry LogEntry
	require.NoError(t, json.Unmarshal(msgs[0], &entry))
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "INFO", entry.Level)
	assert.Empty(t, pub.get("logs.net.gen"))
	assert.Zero(t, sink.Dropped())
}

func TestNATSSinkCountsFailures(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("no responders")}
	var logs bytes.Buffer
	sink, err := NewNATSSink(pub, slog.New(slog.NewTextHandler(&logs, nil)), NATSSinkConfig{SubjectPrefix: "events"})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	sink.Emit(Event{Level: slog.LevelError, Message: "x"})
	require.NoError(t, sink.Stop(time.Second))

	assert.Equal(t, int64(1), sink.Failed())
	assert.Contains(t, logs.String(), "Failed to publish log to NATS")
	assert.Equal(t, "events._._", sink.Subject(Event{}))
}

func TestNATSSinkRequiresPublisher(t *testing.T) {
	_, err := NewNATSSink(nil, nil, NATSSinkConfig{})
	assert.Error(t, err)
}

func TestNATSSinkDropsBeforeStart(t *testing.T) {
	sink, err := NewNATSSink(&fakePublisher{}, nil, NATSSinkConfig{})
	require.NoError(t, err)
	sink.Emit(Event{Level: slog.LevelError})
	assert.Equal(t, int64(1), sink.Dropped())
}

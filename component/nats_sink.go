package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/metric"
	"github.com/wildparky/pflow/pkg/worker"
)

// Publisher is the subset of *nats.Conn the NATS sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSSinkConfig configures a NATSSink
type NATSSinkConfig struct {
	// SubjectPrefix is the first subject token, "logs" by default
	SubjectPrefix string
	// Level is the minimum level published
	Level     slog.Level
	Workers   int
	QueueSize int
	// Registry enables worker pool metrics when set
	Registry *metric.MetricsRegistry
}

// NATSSink publishes events as JSON LogEntry messages on
// "{prefix}.{network}.{component}". Publishing happens on a worker pool so
// a slow connection never blocks a component; events arriving while the
// pool queue is full are dropped and counted.
type NATSSink struct {
	pub     Publisher
	logger  *slog.Logger
	prefix  string
	level   slog.Level
	pool    *worker.Pool[Event]
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewNATSSink creates a sink publishing through pub
func NewNATSSink(pub Publisher, logger *slog.Logger, cfg NATSSinkConfig) (*NATSSink, error) {
	if pub == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "NATSSink", "New", "publisher check")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "logs"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	s := &NATSSink{
		pub:    pub,
		logger: logger,
		prefix: cfg.SubjectPrefix,
		level:  cfg.Level,
	}

	var opts []worker.Option[Event]
	if cfg.Registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Event](cfg.Registry, "nats_sink"))
	}
	pool, err := worker.NewPool(cfg.Workers, cfg.QueueSize, s.publish, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "NATSSink", "New", "create worker pool")
	}
	s.pool = pool
	return s, nil
}

// Start starts the publishing workers
func (s *NATSSink) Start(ctx context.Context) error {
	return s.pool.Start(ctx)
}

// Stop drains pending events and stops the workers
func (s *NATSSink) Stop(timeout time.Duration) error {
	return s.pool.Stop(timeout)
}

// Emit implements EventSink
func (s *NATSSink) Emit(e Event) {
	if e.Level < s.level {
		return
	}
	if err := s.pool.Submit(e); err != nil {
		s.dropped.Add(1)
	}
}

// Dropped returns the number of events not queued for publishing
func (s *NATSSink) Dropped() int64 { return s.dropped.Load() }

// Failed returns the number of events whose publish failed
func (s *NATSSink) Failed() int64 { return s.failed.Load() }

// Subject returns the subject an event is published on
func (s *NATSSink) Subject(e Event) string {
	return fmt.Sprintf("%s.%s.%s", s.prefix, subjectToken(e.Network), subjectToken(e.Component))
}

func (s *NATSSink) publish(_ context.Context, e Event) error {
	data, err := json.Marshal(NewLogEntry(e))
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("Failed to marshal log entry", "error", err)
		return err
	}

	subject := s.Subject(e)
	if err := s.pub.Publish(subject, data); err != nil {
		s.failed.Add(1)
		s.logger.Error("Failed to publish log to NATS", "error", err, "subject", subject)
		return err
	}
	return nil
}

// subjectToken makes a name safe to use as a single NATS subject token
func subjectToken(name string) string {
	if name == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "/", "_").Replace(name)
}

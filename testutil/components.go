package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/wildparky/pflow/component"
)

// Feeder is a source component that sends a fixed sequence of values on OUT
// and then terminates.
type Feeder struct {
	*component.Base
	values []any
	out    *component.OutputPort
	next   int
	gate   <-chan struct{}
}

// NewFeeder creates a feeder for values
func NewFeeder(name string, values ...any) *Feeder {
	return &Feeder{Base: component.NewBase(name), values: values}
}

// WithGate holds the first value back until gate is closed
func (f *Feeder) WithGate(gate <-chan struct{}) *Feeder {
	f.gate = gate
	return f
}

// Initialize declares OUT
func (f *Feeder) Initialize() error {
	f.out = f.DeclareOutput("OUT")
	return nil
}

// Run sends one value per invocation and terminates after the last one
func (f *Feeder) Run(ctx context.Context) error {
	if f.gate != nil {
		select {
		case <-f.gate:
			f.gate = nil
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
	if f.next >= len(f.values) {
		f.Terminate()
		return nil
	}
	if err := f.out.Send(ctx, f.values[f.next]); err != nil {
		return err
	}
	f.next++
	return nil
}

// Collector is a sink component that records every value received on IN.
type Collector struct {
	*component.Base
	in    *component.InputPort
	delay time.Duration

	mu     sync.Mutex
	values []any
	got    chan struct{}
}

// NewCollector creates a collector
func NewCollector(name string) *Collector {
	return &Collector{Base: component.NewBase(name), got: make(chan struct{}, 1)}
}

// WithDelay makes the collector suspend for d after every value, so its
// queue fills up
func (c *Collector) WithDelay(d time.Duration) *Collector {
	c.delay = d
	return c
}

// Initialize declares IN
func (c *Collector) Initialize() error {
	c.in = c.DeclareInput("IN")
	return nil
}

// Run receives and records one value
func (c *Collector) Run(ctx context.Context) error {
	v, err := c.in.Receive(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()

	select {
	case c.got <- struct{}{}:
	default:
	}
	return c.Suspend(ctx, c.delay)
}

// Values returns a copy of the values received so far
func (c *Collector) Values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.values...)
}

// WaitFor blocks until at least n values arrived or timeout elapses
func (c *Collector) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(c.Values()) >= n {
			return true
		}
		select {
		case <-c.got:
		case <-deadline:
			return len(c.Values()) >= n
		}
	}
}

// Blocker receives nothing and runs until it is terminated or the network
// shuts down. Use it to hold a port open.
type Blocker struct {
	*component.Base
}

// NewBlocker creates a blocker
func NewBlocker(name string) *Blocker {
	return &Blocker{Base: component.NewBase(name)}
}

// Initialize declares no ports
func (b *Blocker) Initialize() error { return nil }

// Run waits for cancellation
func (b *Blocker) Run(ctx context.Context) error {
	<-ctx.Done()
	return context.Cause(ctx)
}

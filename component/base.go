package component

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/metric"
	"github.com/wildparky/pflow/packet"
)

// Base carries the ports, lifecycle state and runtime hooks every node
// needs. Components embed *Base and declare their ports in Initialize.
type Base struct {
	name   string
	parent *Base
	path   string

	inputs    []*InputPort
	outputs   []*OutputPort
	inByName  map[string]*InputPort
	outByName map[string]*OutputPort
	inArrays  map[string]*ArrayInputPort
	outArrays map[string]*ArrayOutputPort
	declErr   error

	initialized bool
	state       atomic.Int32
	terminated  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelCauseFunc
	held   map[*packet.Packet]struct{}

	network  string
	sink     EventSink
	metrics  *metric.Metrics
	logger   *Logger
	sent     atomic.Int64
	received atomic.Int64
}

// NewBase creates the embeddable core of a node
func NewBase(name string) *Base {
	b := &Base{
		name:      name,
		inByName:  make(map[string]*InputPort),
		outByName: make(map[string]*OutputPort),
		inArrays:  make(map[string]*ArrayInputPort),
		outArrays: make(map[string]*ArrayOutputPort),
		sink:      NopSink{},
	}
	b.logger = &Logger{base: b}
	return b
}

// Core returns the base itself; it satisfies Node for embedding types.
func (b *Base) Core() *Base { return b }

// Name returns the component name, unique within its graph
func (b *Base) Name() string { return b.name }

// Path returns the name qualified by every enclosing graph below the root,
// e.g. "tap/split". It is unique within a network.
func (b *Base) Path() string {
	if b.path != "" {
		return b.path
	}
	if b.parent == nil || b.parent.parent == nil {
		return b.name
	}
	return b.parent.Path() + "/" + b.name
}

// Parent returns the enclosing graph's base, nil for the root
func (b *Base) Parent() *Base { return b.parent }

// Network returns the name of the network running the component
func (b *Base) Network() string { return b.network }

func (b *Base) declare(name string) bool {
	if name == "" || strings.ContainsAny(name, "[]./") {
		b.declErr = errors.Join(b.declErr, errors.WrapInvalid(
			fmt.Errorf("invalid port name %q", name), b.Path(), "Declare", "port name validation"))
		return false
	}
	_, in := b.inByName[name]
	_, out := b.outByName[name]
	_, inArr := b.inArrays[name]
	_, outArr := b.outArrays[name]
	if in || out || inArr || outArr {
		b.declErr = errors.Join(b.declErr, errors.WrapInvalid(
			fmt.Errorf("port %q declared twice", name), b.Path(), "Declare", "duplicate port check"))
		return false
	}
	return true
}

func newSpec(opts []PortOption) portSpec {
	var spec portSpec
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

// DeclareInput adds a scalar input port
func (b *Base) DeclareInput(name string, opts ...PortOption) *InputPort {
	p := &InputPort{portCore: portCore{name: name, index: -1, owner: b, spec: newSpec(opts)}}
	if !b.declare(name) {
		p.missing = true
		return p
	}
	b.inByName[name] = p
	b.inputs = append(b.inputs, p)
	return p
}

// DeclareOutput adds a scalar output port
func (b *Base) DeclareOutput(name string, opts ...PortOption) *OutputPort {
	p := &OutputPort{portCore: portCore{name: name, index: -1, owner: b, spec: newSpec(opts)}}
	if !b.declare(name) {
		p.missing = true
		return p
	}
	b.outByName[name] = p
	b.outputs = append(b.outputs, p)
	return p
}

// DeclareInputArray adds an array of size input ports sharing one name
func (b *Base) DeclareInputArray(name string, size int, opts ...PortOption) *ArrayInputPort {
	a := &ArrayInputPort{name: name, owner: b}
	if size <= 0 {
		b.declErr = errors.Join(b.declErr, errors.WrapInvalid(
			fmt.Errorf("array port %q needs a positive size", name), b.Path(), "Declare", "array size"))
		a.missing = true
		return a
	}
	if !b.declare(name) {
		a.missing = true
		return a
	}
	spec := newSpec(opts)
	for i := 0; i < size; i++ {
		p := &InputPort{portCore: portCore{name: name, index: i, owner: b, spec: spec}}
		a.ports = append(a.ports, p)
		b.inputs = append(b.inputs, p)
	}
	b.inArrays[name] = a
	return a
}

// DeclareOutputArray adds an array of size output ports sharing one name
func (b *Base) DeclareOutputArray(name string, size int, opts ...PortOption) *ArrayOutputPort {
	a := &ArrayOutputPort{name: name, owner: b}
	if size <= 0 {
		b.declErr = errors.Join(b.declErr, errors.WrapInvalid(
			fmt.Errorf("array port %q needs a positive size", name), b.Path(), "Declare", "array size"))
		a.missing = true
		return a
	}
	if !b.declare(name) {
		a.missing = true
		return a
	}
	spec := newSpec(opts)
	for i := 0; i < size; i++ {
		p := &OutputPort{portCore: portCore{name: name, index: i, owner: b, spec: spec}}
		a.ports = append(a.ports, p)
		b.outputs = append(b.outputs, p)
	}
	b.outArrays[name] = a
	return a
}

// In returns the input port named ref ("IN" or "IN[2]"). Unknown names
// return a port whose every operation fails with ErrUnknownPort.
func (b *Base) In(ref string) *InputPort {
	name, idx, err := ParsePortName(ref)
	if err == nil {
		if idx < 0 {
			if p, ok := b.inByName[name]; ok {
				return p
			}
		} else if a, ok := b.inArrays[name]; ok && idx < len(a.ports) {
			return a.ports[idx]
		}
	}
	return &InputPort{portCore: portCore{name: ref, index: -1, owner: b, missing: true}}
}

// Out returns the output port named ref ("OUT" or "OUT[2]")
func (b *Base) Out(ref string) *OutputPort {
	name, idx, err := ParsePortName(ref)
	if err == nil {
		if idx < 0 {
			if p, ok := b.outByName[name]; ok {
				return p
			}
		} else if a, ok := b.outArrays[name]; ok && idx < len(a.ports) {
			return a.ports[idx]
		}
	}
	return &OutputPort{portCore: portCore{name: ref, index: -1, owner: b, missing: true}}
}

// InArray returns the input array port named name
func (b *Base) InArray(name string) *ArrayInputPort {
	if a, ok := b.inArrays[name]; ok {
		return a
	}
	return &ArrayInputPort{name: name, owner: b, missing: true}
}

// OutArray returns the output array port named name
func (b *Base) OutArray(name string) *ArrayOutputPort {
	if a, ok := b.outArrays[name]; ok {
		return a
	}
	return &ArrayOutputPort{name: name, owner: b, missing: true}
}

// Inputs returns every input port, array members included, in declaration order
func (b *Base) Inputs() []*InputPort {
	return append([]*InputPort(nil), b.inputs...)
}

// Outputs returns every output port, array members included, in declaration order
func (b *Base) Outputs() []*OutputPort {
	return append([]*OutputPort(nil), b.outputs...)
}

// CreatePacket wraps v in a packet owned by this component
func (b *Base) CreatePacket(v any) *packet.Packet {
	return packet.New(v, b.Path())
}

// Drop discards a packet without forwarding it, returning its queue credit
func (b *Base) Drop(pkt *packet.Packet) error {
	if pkt == nil {
		return nil
	}
	return pkt.Discard()
}

// Suspend pauses the calling component for d. It returns early with the
// cancellation cause when the component is terminated or the network shuts
// down.
func (b *Base) Suspend(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if d <= 0 {
		return nil
	}

	prev := b.State()
	b.SetState(StateSuspended)
	defer func() {
		if b.state.CompareAndSwap(int32(StateSuspended), int32(prev)) {
			b.recordState(prev)
		}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Terminate marks the component finished and cancels its run context.
// It is idempotent. Outputs close once the body returns.
func (b *Base) Terminate() {
	if !b.terminated.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel(errors.ErrComponentTerminated)
	}
}

// IsTerminated reports whether Terminate has been called
func (b *Base) IsTerminated() bool {
	return b.terminated.Load()
}

// State returns the current lifecycle state
func (b *Base) State() State {
	return State(b.state.Load())
}

// SetState records a lifecycle transition and reports it to the sink
func (b *Base) SetState(s State) {
	if State(b.state.Swap(int32(s))) == s {
		return
	}
	b.recordState(s)
}

func (b *Base) recordState(s State) {
	if b.metrics != nil {
		b.metrics.RecordComponentState(b.network, b.Path(), int(s))
	}
	b.emit(Event{Kind: EventState, Level: slog.LevelDebug, Message: "state " + s.String(), State: s})
}

// Log returns the component's logger
func (b *Base) Log() *Logger {
	return b.logger
}

// Sent returns the number of packets sent through this component's outputs
func (b *Base) Sent() int64 { return b.sent.Load() }

// Received returns the number of packets received on this component's inputs
func (b *Base) Received() int64 { return b.received.Load() }

// AttachRuntime connects the component to its network's event sink and
// metrics. Called by the network before the component is started.
func (b *Base) AttachRuntime(network string, sink EventSink, metrics *metric.Metrics) {
	b.path = ""
	b.path = b.Path()
	b.network = network
	if sink != nil {
		b.sink = sink
	}
	b.metrics = metrics
}

// Launch derives the run context for the component's body. A component
// terminated before launch gets an already-cancelled context.
func (b *Base) Launch(parent context.Context) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	if b.terminated.Load() {
		cancel(errors.ErrComponentTerminated)
	}
	return ctx
}

// InputsExhausted reports whether the component has at least one connected
// input and every connected input is closed and drained.
func (b *Base) InputsExhausted() bool {
	connected := 0
	for _, in := range b.inputs {
		if in.queue == nil {
			continue
		}
		connected++
		if !in.queue.Exhausted() {
			return false
		}
	}
	return connected > 0
}

// Finish closes the component's outputs so downstream receivers observe
// closure, rejects further sends into its inputs and returns the credit of
// every packet it still holds. Called by the network when the body is done.
func (b *Base) Finish() {
	for _, out := range b.outputs {
		if out.queue != nil {
			out.queue.CloseWrite()
		}
	}
	for _, in := range b.inputs {
		if in.queue != nil {
			in.queue.Reject()
		}
	}

	b.mu.Lock()
	held := b.held
	b.held = nil
	cancel := b.cancel
	b.mu.Unlock()

	for pkt := range held {
		pkt.Release()
	}
	if cancel != nil {
		cancel(errors.ErrComponentTerminated)
	}
}

// Held returns the number of received packets not yet consumed or forwarded
func (b *Base) Held() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.held)
}

func (b *Base) hold(pkt *packet.Packet, q *Queue) {
	b.mu.Lock()
	if b.held == nil {
		b.held = make(map[*packet.Packet]struct{})
	}
	b.held[pkt] = struct{}{}
	b.mu.Unlock()

	pkt.Hold(func() {
		q.Release()
		b.mu.Lock()
		delete(b.held, pkt)
		b.mu.Unlock()
	})
}

func (b *Base) recordSent() {
	b.sent.Add(1)
	if b.metrics != nil {
		b.metrics.RecordPacketSent(b.network, b.Path())
	}
}

func (b *Base) recordReceived() {
	b.received.Add(1)
	if b.metrics != nil {
		b.metrics.RecordPacketReceived(b.network, b.Path())
	}
}

func (b *Base) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Network = b.network
	e.Component = b.Path()
	b.sink.Emit(e)
}

// Emit reports an event on behalf of the component. The network uses it for
// failures; components normally log through Log().
func (b *Base) Emit(e Event) {
	b.emit(e)
}

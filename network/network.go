package network

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/component/flowgraph"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/health"
	"github.com/wildparky/pflow/metric"
	"github.com/wildparky/pflow/packet"
	"github.com/wildparky/pflow/pkg/buffer"
)

// Run outcomes
const (
	OutcomeQuiescent = "quiescent"
	OutcomeShutdown  = "shutdown"
	OutcomeFailed    = "failed"
)

const (
	stateBuilt int32 = iota
	stateRunning
	stateDone
)

// connection is an edge after alias resolution, between two leaves
type connection struct {
	from     *component.OutputPort
	to       *component.InputPort
	capacity int
}

// Network owns the concurrent execution of one graph instantiation. Each
// leaf component runs on its own goroutine; packets move along bounded
// queues between them.
type Network struct {
	name            string
	id              string
	root            *component.Graph
	capacity        int
	policy          Policy
	shutdownTimeout time.Duration

	sink     component.EventSink
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	core     *metric.Metrics
	metrics  *networkMetrics
	health   *health.Monitor

	leaves      []component.Component
	byPath      map[string]component.Component
	connections []connection
	initials    []component.Initial
	queues      []*component.Queue
	analysis    *flowgraph.FlowAnalysisResult

	state        atomic.Int32
	shuttingDown atomic.Bool
	mu           sync.Mutex
	cancel       context.CancelCauseFunc
	failures     []Failure
	done         chan struct{}
	shutdownOnce sync.Once
}

// New initializes root, flattens nested graphs to their leaf components,
// validates the wiring and creates a queue for every connection. Wiring and
// validation errors are returned here, before anything runs.
func New(root component.Node, opts ...Option) (*Network, error) {
	if root == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil root"), "Network", "New", "root check")
	}

	n := &Network{
		id:              uuid.New().String(),
		capacity:        buffer.DefaultCapacity,
		policy:          PolicyIsolate,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default(),
		byPath:          make(map[string]component.Component),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	graph, err := rootGraph(root)
	if err != nil {
		return nil, err
	}
	n.root = graph
	if n.name == "" {
		n.name = graph.Name()
	}
	if n.sink == nil {
		n.sink = component.NewSlogSink(n.logger)
	}
	n.logger = n.logger.With("network", n.name, "run_id", n.id)

	if n.registry != nil {
		n.core = n.registry.CoreMetrics()
		if n.metrics, err = newNetworkMetrics(n.registry, n.name); err != nil {
			n.logger.Error("Failed to initialize network metrics", "error", err)
			n.metrics = nil // Continue without metrics
		}
	}

	if err := n.flatten(graph); err != nil {
		return nil, err
	}
	if err := n.validate(); err != nil {
		return nil, err
	}
	if err := n.wire(); err != nil {
		return nil, err
	}

	for _, leaf := range n.leaves {
		leaf.Core().AttachRuntime(n.name, n.sink, n.core)
		if n.health != nil {
			n.health.UpdateHealthy(leaf.Core().Path(), "ready")
		}
	}
	n.metrics.setQueues(len(n.queues))
	n.metrics.recordStates(n.Status())

	n.logger.Debug("Network wired",
		"components", len(n.leaves),
		"connections", len(n.connections),
		"initials", len(n.initials))
	return n, nil
}

// rootGraph initializes the root node and returns the graph to run. A bare
// component is wrapped in a graph of its own.
func rootGraph(root component.Node) (*component.Graph, error) {
	if c, ok := root.(component.Composite); ok {
		if err := component.InitializeNode(root); err != nil {
			return nil, errors.Wrap(err, "Network", "New", "initialize root")
		}
		return c.Subgraph(), nil
	}
	g := component.NewGraph(root.Name())
	if err := g.Add(root); err != nil {
		return nil, errors.Wrap(err, "Network", "New", "wrap root component")
	}
	return g, nil
}

// flatten collects every leaf component and every edge of every nested graph
func (n *Network) flatten(g *component.Graph) error {
	for _, child := range g.Children() {
		switch node := child.(type) {
		case component.Composite:
			if err := n.flatten(node.Subgraph()); err != nil {
				return err
			}
		case component.Component:
			path := node.Core().Path()
			if _, exists := n.byPath[path]; exists {
				return errors.WrapInvalid(fmt.Errorf("duplicate component path %s", path), "Network", "New", "flatten")
			}
			n.byPath[path] = node
			n.leaves = append(n.leaves, node)
		default:
			return errors.WrapInvalid(
				fmt.Errorf("node %s (%T) has no Run body and no subgraph", child.Core().Path(), child),
				"Network", "New", "flatten")
		}
	}
	for _, e := range g.Edges() {
		n.connections = append(n.connections, connection{from: e.From, to: e.To, capacity: e.Capacity})
	}
	n.initials = append(n.initials, g.Initials()...)
	return nil
}

func (n *Network) isLeaf(b *component.Base) bool {
	c, ok := n.byPath[b.Path()]
	return ok && c.Core() == b
}

// validate resolves aliases and runs flow graph analysis
func (n *Network) validate() error {
	for i := range n.connections {
		c := &n.connections[i]
		from, to := c.from.Resolve(), c.to.Resolve()
		if !n.isLeaf(from.Owner()) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: graph output %s is not bound to an inner port", errors.ErrDisconnectedPort, from.FullName()),
				"Network", "New", "alias resolution")
		}
		if !n.isLeaf(to.Owner()) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: graph input %s is not bound to an inner port", errors.ErrDisconnectedPort, to.FullName()),
				"Network", "New", "alias resolution")
		}
		if !component.TypesIntersect(from.Types(), to.Types()) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s cannot feed %s", errors.ErrTypeMismatch, from.FullName(), to.FullName()),
				"Network", "New", "type check")
		}
		c.from, c.to = from, to

		if c.capacity <= 0 {
			c.capacity = to.Capacity()
		}
		if c.capacity <= 0 {
			c.capacity = n.capacity
		}
	}
	for i := range n.initials {
		to := n.initials[i].To.Resolve()
		if !n.isLeaf(to.Owner()) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: graph input %s is not bound to an inner port", errors.ErrDisconnectedPort, to.FullName()),
				"Network", "New", "alias resolution")
		}
		n.initials[i].To = to
	}

	fg := flowgraph.NewFlowGraph()
	for _, leaf := range n.leaves {
		inputs, outputs := flowgraph.NodePorts(leaf)
		if err := fg.AddComponentNode(leaf.Core().Path(), inputs, outputs); err != nil {
			return errors.WrapInvalid(err, "Network", "New", "flow graph")
		}
	}
	for _, c := range n.connections {
		if err := fg.AddEdge(portRef(c.from.Owner(), c.from.Name()), portRef(c.to.Owner(), c.to.Name()), c.capacity); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrPortAlreadyConnected, err), "Network", "New", "flow graph")
		}
	}
	for _, ini := range n.initials {
		if err := fg.AddInitial(portRef(ini.To.Owner(), ini.To.Name())); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrPortAlreadyConnected, err), "Network", "New", "flow graph")
		}
	}

	n.analysis = fg.AnalyzeConnectivity()
	for _, w := range n.analysis.Warnings {
		n.logger.Warn("Flow graph warning", "component", w.ComponentName, "port", w.PortName, "issue", w.Message)
	}
	if err := n.analysis.Err(); err != nil {
		return errors.WrapInvalid(err, "Network", "New", "flow graph analysis")
	}
	return nil
}

func portRef(owner *component.Base, port string) flowgraph.ComponentPortRef {
	return flowgraph.ComponentPortRef{ComponentName: owner.Path(), PortName: port}
}

// wire creates the queues and preloads initial information packets
func (n *Network) wire() error {
	for _, c := range n.connections {
		q, err := n.newQueue(c.capacity, c.to)
		if err != nil {
			return err
		}
		c.from.Attach(q, c.to)
		c.to.Attach(q, c.from)
	}

	for _, ini := range n.initials {
		q, err := n.newQueue(1, ini.To)
		if err != nil {
			return err
		}
		if err := q.Put(context.Background(), packet.New(ini.Value, ini.To.FullName())); err != nil {
			return errors.Wrap(err, "Network", "New", "preload initial packet")
		}
		q.CloseWrite()
		ini.To.Attach(q, nil)
	}
	return nil
}

func (n *Network) newQueue(capacity int, to *component.InputPort) (*component.Queue, error) {
	opts := []buffer.Option[*packet.Packet]{
		buffer.WithDropCallback(func(pkt *packet.Packet) {
			_ = pkt.Discard()
		}),
	}
	if n.registry != nil {
		opts = append(opts, buffer.WithMetrics[*packet.Packet](n.registry, n.name+":"+to.FullName()))
	}
	q, err := buffer.NewQueue(capacity, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Network", "New", "create queue for "+to.FullName())
	}
	n.queues = append(n.queues, q)
	return q, nil
}

// Run drives every leaf component until the network is quiescent (every
// component terminated), Shutdown is called or ctx is cancelled. Under
// PolicyFailFast a component failure shuts the network down and Run returns
// a *RunError; under PolicyIsolate failures are available from Failures.
func (n *Network) Run(ctx context.Context) error {
	if !n.state.CompareAndSwap(stateBuilt, stateRunning) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Network", "Run", "state check")
	}
	start := time.Now()

	runCtx, cancel := context.WithCancelCause(ctx)
	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()
	if n.shuttingDown.Load() {
		cancel(errors.ErrNetworkTerminated)
	}
	stop := context.AfterFunc(ctx, n.Shutdown)

	n.logger.Info("Network starting", "components", len(n.leaves))

	// Under fail-fast the first failure cancels the group context; isolated
	// failures stay out of the group and are read from Failures.
	g, gctx := errgroup.WithContext(runCtx)
	for _, leaf := range n.leaves {
		g.Go(func() error {
			failure := n.runComponent(gctx, leaf)
			if failure != nil && n.policy == PolicyFailFast {
				n.Shutdown()
				return failure
			}
			return nil
		})
	}
	groupErr := g.Wait()

	stop()
	cancel(errors.ErrNetworkTerminated)
	n.state.Store(stateDone)
	close(n.done)

	failures := n.Failures()
	outcome := OutcomeQuiescent
	switch {
	case groupErr != nil:
		outcome = OutcomeFailed
	case n.shuttingDown.Load():
		outcome = OutcomeShutdown
	}

	elapsed := time.Since(start)
	if n.core != nil {
		n.core.RecordNetworkDuration(n.name, outcome, elapsed)
	}
	n.metrics.recordRun(outcome)
	n.metrics.recordStates(n.Status())

	n.logger.Info("Network finished",
		"outcome", outcome,
		"duration", elapsed,
		"failures", len(failures))

	if outcome == OutcomeFailed {
		return &RunError{Network: n.name, Failures: failures}
	}
	return nil
}

// runComponent is the per-leaf runner loop. It returns the component's
// failure, nil when it terminated cleanly.
func (n *Network) runComponent(ctx context.Context, c component.Component) error {
	b := c.Core()
	path := b.Path()
	cctx := b.Launch(ctx)

	n.metrics.componentStarted()
	defer n.metrics.componentFinished()

	b.SetState(component.StateRunning)
	if n.health != nil {
		n.health.UpdateHealthy(path, "running")
	}

	var failure error
	for cctx.Err() == nil && !b.IsTerminated() {
		if b.InputsExhausted() {
			b.Terminate()
			break
		}
		if n.core != nil {
			n.core.RecordComponentRun(n.name, path)
		}

		err := n.invoke(cctx, c)
		if err == nil {
			continue
		}
		// Errors surfacing after the network context ended are part of shutdown
		if !errors.IsTermination(err) && ctx.Err() == nil {
			failure = err
		}
		break
	}

	b.Terminate()
	b.Finish()

	if failure != nil {
		n.recordFailure(b, failure)
		b.SetState(component.StateFailed)
		return failure
	}

	b.SetState(component.StateTerminated)
	if n.health != nil {
		n.health.Update(path, health.NewHealthy(path, "terminated").WithMetrics(&health.Metrics{
			PacketsSent:     b.Sent(),
			PacketsReceived: b.Received(),
		}))
	}
	return nil
}

// invoke runs one body invocation, turning a panic into a fatal error
func (n *Network) invoke(ctx context.Context, c component.Component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("panic: %v", r), c.Core().Path(), "Run", "component body")
		}
	}()
	return c.Run(ctx)
}

func (n *Network) recordFailure(b *component.Base, err error) {
	f := Failure{Component: b.Path(), Err: err, At: time.Now()}

	n.mu.Lock()
	n.failures = append(n.failures, f)
	n.mu.Unlock()

	if n.core != nil {
		n.core.RecordComponentFailure(n.name, f.Component, errors.Classify(err).String())
	}
	if n.health != nil {
		n.health.Update(f.Component, health.FromFailure(f.Component, err))
	}
	b.Emit(component.Event{
		Time:    f.At,
		Level:   slog.LevelError,
		Kind:    component.EventFailure,
		Message: "component failed",
		Err:     err,
	})
}

// Shutdown stops the network: every blocked send and receive returns
// ErrNetworkTerminated and every run context is cancelled. It is idempotent
// and does not wait; use Done or Stop to wait.
func (n *Network) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.shuttingDown.Store(true)
		n.logger.Debug("Network shutting down")

		for _, q := range n.queues {
			q.Abort()
		}

		n.mu.Lock()
		cancel := n.cancel
		n.mu.Unlock()
		if cancel != nil {
			cancel(errors.ErrNetworkTerminated)
		}
	})
}

// Stop shuts the network down and waits up to the shutdown timeout for every
// component to finish
func (n *Network) Stop() error {
	n.Shutdown()
	if n.state.Load() == stateBuilt {
		return nil
	}

	timer := time.NewTimer(n.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-n.done:
		return nil
	case <-timer.C:
		return errors.WrapTransient(
			fmt.Errorf("components still running after %s", n.shutdownTimeout), "Network", "Stop", "wait for components")
	}
}

// Done is closed when Run returns
func (n *Network) Done() <-chan struct{} {
	return n.done
}

// Name returns the network name
func (n *Network) Name() string { return n.name }

// ID returns the unique identifier of this network instance
func (n *Network) ID() string { return n.id }

// Policy returns the failure policy
func (n *Network) Policy() Policy { return n.policy }

// Analysis returns the flow graph analysis computed by New
func (n *Network) Analysis() *flowgraph.FlowAnalysisResult { return n.analysis }

// Components returns the paths of every leaf component in wiring order
func (n *Network) Components() []string {
	paths := make([]string, len(n.leaves))
	for i, leaf := range n.leaves {
		paths[i] = leaf.Core().Path()
	}
	return paths
}

// Component returns the leaf component at path
func (n *Network) Component(path string) (component.Component, bool) {
	c, ok := n.byPath[path]
	return c, ok
}

// State returns the lifecycle state of the component at path
func (n *Network) State(path string) (component.State, bool) {
	c, ok := n.byPath[path]
	if !ok {
		return component.StateCreated, false
	}
	return c.Core().State(), true
}

// Status returns the lifecycle state of every leaf component
func (n *Network) Status() map[string]component.State {
	status := make(map[string]component.State, len(n.leaves))
	for _, leaf := range n.leaves {
		status[leaf.Core().Path()] = leaf.Core().State()
	}
	return status
}

// Failures returns the component failures recorded so far
func (n *Network) Failures() []Failure {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Failure(nil), n.failures...)
}

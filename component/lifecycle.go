package component

import (
	"context"
	"fmt"

	"github.com/wildparky/pflow/errors"
)

// State represents the lifecycle state of a component
type State int32

const (
	// StateCreated indicates the component was constructed but not initialized
	StateCreated State = iota
	// StateReady indicates ports are declared and the component awaits scheduling
	StateReady
	// StateRunning indicates the component body is executing
	StateRunning
	// StateSuspended indicates the component is inside Suspend
	StateSuspended
	// StateTerminated indicates the component finished
	StateTerminated
	// StateFailed indicates the component finished because its body failed
	StateFailed
)

// String returns a string representation of the component state
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsFinal reports whether the state is terminal
func (s State) IsFinal() bool {
	return s == StateTerminated || s == StateFailed
}

// Node is anything that can be placed in a graph: a leaf component or a
// nested graph. Embedding *Base (or *Graph) provides Name and Core.
type Node interface {
	Name() string
	// Initialize declares ports and, for graphs, adds and wires children.
	// It is called exactly once, must not block and must not do I/O.
	Initialize() error
	Core() *Base
}

// Component is a leaf node with a repeatable body.
//
// Run is invoked repeatedly until the component terminates, its connected
// inputs are exhausted, or the network shuts down. Returning nil does not
// terminate the component; bodies that loop internally should watch ctx.
type Component interface {
	Node
	Run(ctx context.Context) error
}

// Composite is a node made of other nodes
type Composite interface {
	Node
	Subgraph() *Graph
}

// InitializeNode runs n.Initialize once. Later calls are no-ops.
func InitializeNode(n Node) error {
	b := n.Core()
	if b == nil {
		return errors.WrapInvalid(fmt.Errorf("node %T has no base", n), "Node", "Initialize", "base check")
	}
	if b.initialized {
		return nil
	}
	b.initialized = true

	if err := n.Initialize(); err != nil {
		return errors.Wrap(err, b.Path(), "Initialize", "initialize component")
	}
	if b.declErr != nil {
		return b.declErr
	}
	b.state.Store(int32(StateReady))
	return nil
}

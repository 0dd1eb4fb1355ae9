package component

import (
	"fmt"

	"github.com/wildparky/pflow/errors"
)

// Edge is a directed connection from one output slot to one input slot
// between two children of the same graph
type Edge struct {
	From *OutputPort
	To   *InputPort
	// Capacity overrides the queue capacity; zero means the input's
	// declared capacity or the network default
	Capacity int
}

// Initial is an initial information packet: a value delivered once to an
// input, after which that input closes
type Initial struct {
	Value any
	To    *InputPort
}

// ConnectOption configures a connection
type ConnectOption func(*Edge)

// Buffered sets the queue capacity of a connection
func Buffered(capacity int) ConnectOption {
	return func(e *Edge) {
		e.Capacity = capacity
	}
}

// Graph is a node composed of child nodes and the connections between them.
// Its own ports are aliases onto child ports. Custom graphs embed *Graph and
// declare ports, add children and connect them in Initialize.
type Graph struct {
	*Base

	children []Node
	byName   map[string]Node
	edges    []Edge
	initials []Initial
}

// NewGraph creates an empty graph
func NewGraph(name string) *Graph {
	return &Graph{
		Base:   NewBase(name),
		byName: make(map[string]Node),
	}
}

// Initialize implements Node. A plain graph is wired by its builder.
func (g *Graph) Initialize() error { return nil }

// Subgraph implements Composite
func (g *Graph) Subgraph() *Graph { return g }

// Add registers child nodes and initializes each of them.
// Names must be unique within the graph.
func (g *Graph) Add(nodes ...Node) error {
	for _, n := range nodes {
		if n == nil || n.Core() == nil {
			return errors.WrapInvalid(fmt.Errorf("nil node"), g.Path(), "Add", "node check")
		}
		name := n.Name()
		if err := ValidateComponentName(name); err != nil {
			return errors.Wrap(fmt.Errorf("%q: %w", name, err), g.Path(), "Add", "name validation")
		}
		if _, exists := g.byName[name]; exists {
			return errors.WrapInvalid(
				fmt.Errorf("component %q already exists in graph", name), g.Path(), "Add", "duplicate check")
		}
		b := n.Core()
		if b.parent != nil {
			return errors.WrapInvalid(
				fmt.Errorf("component %q already belongs to a graph", name), g.Path(), "Add", "parent check")
		}

		b.parent = g.Base
		g.byName[name] = n
		g.children = append(g.children, n)

		if err := InitializeNode(n); err != nil {
			return err
		}
	}
	return nil
}

// Children returns the child nodes in insertion order
func (g *Graph) Children() []Node {
	return append([]Node(nil), g.children...)
}

// Child returns the child named name
func (g *Graph) Child(name string) (Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Edges returns the connections between children
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Initials returns the initial information packets
func (g *Graph) Initials() []Initial {
	return append([]Initial(nil), g.initials...)
}

func (g *Graph) isChild(b *Base) bool {
	if b == nil || b.parent != g.Base {
		return false
	}
	n, ok := g.byName[b.name]
	return ok && n.Core() == b
}

// Connect adds a directed connection. Three forms are accepted:
//   - child output to child input: an edge carrying packets;
//   - graph input to child input: the graph port becomes an alias;
//   - child output to graph output: the graph port becomes an alias.
func (g *Graph) Connect(src, dst Endpoint, opts ...ConnectOption) error {
	if src == nil || dst == nil {
		return errors.WrapInvalid(fmt.Errorf("nil endpoint"), g.Path(), "Connect", "endpoint check")
	}
	s, d := src.endpoint(), dst.endpoint()
	if s.missing {
		return s.unknown("Connect")
	}
	if d.missing {
		return d.unknown("Connect")
	}

	switch from := src.(type) {
	case *OutputPort:
		if !g.isChild(from.owner) {
			return g.foreign(from)
		}
		switch to := dst.(type) {
		case *InputPort:
			if !g.isChild(to.owner) {
				return g.foreign(to)
			}
			return g.connectEdge(from, to, opts)
		case *OutputPort:
			if to.owner != g.Base {
				return g.foreign(to)
			}
			return g.aliasOutput(to, from)
		}
	case *InputPort:
		to, ok := dst.(*InputPort)
		if !ok || from.owner != g.Base {
			break
		}
		if !g.isChild(to.owner) {
			return g.foreign(to)
		}
		return g.aliasInput(from, to)
	}

	return errors.WrapInvalid(
		fmt.Errorf("cannot connect %s (%s) to %s (%s)", src.FullName(), src.Direction(), dst.FullName(), dst.Direction()),
		g.Path(), "Connect", "direction check")
}

func (g *Graph) foreign(p Endpoint) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s does not belong to graph %s", errors.ErrUnknownPort, p.FullName(), g.Path()),
		g.Path(), "Connect", "ownership check")
}

func alreadyConnected(p Endpoint) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrPortAlreadyConnected, p.FullName()),
		"Graph", "Connect", "connection check")
}

func typeMismatch(src, dst *portCore) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s %s cannot feed %s %s", errors.ErrTypeMismatch,
			src.FullName(), typeNames(src.spec.types), dst.FullName(), typeNames(dst.spec.types)),
		"Graph", "Connect", "type check")
}

func (g *Graph) connectEdge(from *OutputPort, to *InputPort, opts []ConnectOption) error {
	if from.bound {
		return alreadyConnected(from)
	}
	if to.bound {
		return alreadyConnected(to)
	}
	if !TypesIntersect(from.spec.types, to.spec.types) {
		return typeMismatch(&from.portCore, &to.portCore)
	}

	edge := Edge{From: from, To: to}
	for _, opt := range opts {
		if opt != nil {
			opt(&edge)
		}
	}
	if edge.Capacity < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("negative capacity %d on %s", edge.Capacity, to.FullName()), g.Path(), "Connect", "capacity check")
	}

	from.bound = true
	to.bound = true
	g.edges = append(g.edges, edge)
	return nil
}

func (g *Graph) aliasInput(outer, inner *InputPort) error {
	if outer.target != nil {
		return alreadyConnected(outer)
	}
	if inner.bound {
		return alreadyConnected(inner)
	}
	if !TypesIntersect(outer.spec.types, inner.spec.types) {
		return typeMismatch(&outer.portCore, &inner.portCore)
	}
	inner.bound = true
	outer.target = inner
	return nil
}

func (g *Graph) aliasOutput(outer, inner *OutputPort) error {
	if outer.target != nil {
		return alreadyConnected(outer)
	}
	if inner.bound {
		return alreadyConnected(inner)
	}
	if !TypesIntersect(inner.spec.types, outer.spec.types) {
		return typeMismatch(&inner.portCore, &outer.portCore)
	}
	inner.bound = true
	outer.target = inner
	return nil
}

// Initial attaches an initial information packet to a child input
func (g *Graph) Initial(value any, dst *InputPort) error {
	if dst == nil {
		return errors.WrapInvalid(fmt.Errorf("nil endpoint"), g.Path(), "Initial", "endpoint check")
	}
	if dst.missing {
		return dst.unknown("Initial")
	}
	if !g.isChild(dst.owner) {
		return g.foreign(dst)
	}
	if dst.bound {
		return alreadyConnected(dst)
	}
	if err := checkValue(dst.spec.types, value, dst.FullName()); err != nil {
		return err
	}
	dst.bound = true
	g.initials = append(g.initials, Initial{Value: value, To: dst})
	return nil
}

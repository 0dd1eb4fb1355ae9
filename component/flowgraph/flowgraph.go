// Package flowgraph provides flow graph analysis and validation for component connections.
package flowgraph

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/wildparky/pflow/component"
)

// Validation statuses reported by AnalyzeConnectivity
const (
	StatusHealthy  = "healthy"
	StatusWarnings = "warnings"
	StatusErrors   = "errors"
)

// Issue types
const (
	IssueUnconnectedInput  = "unconnected_input"
	IssueUnconnectedOutput = "unconnected_output"
	IssueDisconnectedNode  = "disconnected_node"
	IssuePotentialDeadlock = "potential_deadlock"
)

// FlowGraph represents the directed graph of leaf components and the
// connections between their ports
type FlowGraph struct {
	nodes    map[string]*ComponentNode // componentName -> node
	order    []string
	edges    []FlowEdge
	initials map[ComponentPortRef]bool
}

// ComponentNode represents a component in the flow graph
type ComponentNode struct {
	ComponentName string
	InputPorts    []PortInfo
	OutputPorts   []PortInfo
}

// PortInfo contains port metadata for graph analysis
type PortInfo struct {
	Name      string
	Direction component.Direction
	Types     []component.ValueType
	Required  bool // Whether the port must be connected
}

// FlowEdge represents a connection between two component ports
type FlowEdge struct {
	From     ComponentPortRef `json:"from"`
	To       ComponentPortRef `json:"to"`
	Capacity int              `json:"capacity"`
}

// ComponentPortRef references a specific port on a component
type ComponentPortRef struct {
	ComponentName string `json:"component_name"`
	PortName      string `json:"port_name"`
}

// String returns "component.PORT"
func (r ComponentPortRef) String() string {
	return r.ComponentName + "." + r.PortName
}

// Issue is a single validation problem
type Issue struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"` // "error", "warning"
	ComponentName string `json:"component_name"`
	PortName      string `json:"port_name,omitempty"`
	Message       string `json:"message"`
}

// Cycle is a strongly connected group of components
type Cycle struct {
	Components []string   `json:"components"`
	Edges      []FlowEdge `json:"edges"`
	// Deadlock is set when every port on the cycle is mandatory and no
	// connection can buffer more packets than there are components in it
	Deadlock bool `json:"deadlock"`
}

// FlowAnalysisResult contains the results of connectivity analysis
type FlowAnalysisResult struct {
	ConnectedComponents [][]string `json:"connected_components"`
	ConnectedEdges      []FlowEdge `json:"connected_edges"`
	Cycles              []Cycle    `json:"cycles"`
	Errors              []Issue    `json:"errors"`
	Warnings            []Issue    `json:"warnings"`
	ValidationStatus    string     `json:"validation_status"`
}

// HasErrors reports whether the analysis found problems fatal to startup
func (r *FlowAnalysisResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err summarizes the errors as a single error, nil when there are none
func (r *FlowAnalysisResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, issue := range r.Errors {
		msgs[i] = issue.Message
	}
	return fmt.Errorf("flow graph has %d error(s): %s", len(r.Errors), strings.Join(msgs, "; "))
}

// NewFlowGraph creates a new empty FlowGraph
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		nodes:    make(map[string]*ComponentNode),
		edges:    make([]FlowEdge, 0),
		initials: make(map[ComponentPortRef]bool),
	}
}

// NodePorts extracts the port metadata of a component. Array members are
// listed individually as NAME[i].
func NodePorts(n component.Node) (inputs, outputs []PortInfo) {
	b := n.Core()
	for _, p := range b.Inputs() {
		inputs = append(inputs, PortInfo{
			Name:      p.Name(),
			Direction: component.DirectionInput,
			Types:     p.Types(),
			Required:  !p.IsOptional(),
		})
	}
	for _, p := range b.Outputs() {
		outputs = append(outputs, PortInfo{
			Name:      p.Name(),
			Direction: component.DirectionOutput,
			Types:     p.Types(),
			Required:  !p.IsOptional(),
		})
	}
	return inputs, outputs
}

// GetNodes returns a copy of the component nodes
func (g *FlowGraph) GetNodes() map[string]*ComponentNode {
	result := make(map[string]*ComponentNode, len(g.nodes))
	for k, v := range g.nodes {
		result[k] = &ComponentNode{
			ComponentName: v.ComponentName,
			InputPorts:    slices.Clone(v.InputPorts),
			OutputPorts:   slices.Clone(v.OutputPorts),
		}
	}
	return result
}

// GetEdges returns the edges in the graph
func (g *FlowGraph) GetEdges() []FlowEdge {
	return slices.Clone(g.edges)
}

// AddComponentNode adds a component as a node in the graph
func (g *FlowGraph) AddComponentNode(name string, inputs, outputs []PortInfo) error {
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("component %s already exists in graph", name)
	}

	g.nodes[name] = &ComponentNode{
		ComponentName: name,
		InputPorts:    slices.Clone(inputs),
		OutputPorts:   slices.Clone(outputs),
	}
	g.order = append(g.order, name)
	return nil
}

func (g *FlowGraph) port(ref ComponentPortRef, dir component.Direction) (PortInfo, error) {
	node, ok := g.nodes[ref.ComponentName]
	if !ok {
		return PortInfo{}, fmt.Errorf("unknown component %s", ref.ComponentName)
	}
	ports := node.InputPorts
	if dir == component.DirectionOutput {
		ports = node.OutputPorts
	}
	for _, p := range ports {
		if p.Name == ref.PortName {
			return p, nil
		}
	}
	return PortInfo{}, fmt.Errorf("unknown %s port %s", dir, ref)
}

// AddEdge adds a connection between an output and an input
func (g *FlowGraph) AddEdge(from, to ComponentPortRef, capacity int) error {
	if _, err := g.port(from, component.DirectionOutput); err != nil {
		return err
	}
	if _, err := g.port(to, component.DirectionInput); err != nil {
		return err
	}
	for _, e := range g.edges {
		if e.From == from {
			return fmt.Errorf("output %s already connected to %s", from, e.To)
		}
		if e.To == to {
			return fmt.Errorf("input %s already connected from %s", to, e.From)
		}
	}
	if g.initials[to] {
		return fmt.Errorf("input %s already receives an initial packet", to)
	}

	g.edges = append(g.edges, FlowEdge{From: from, To: to, Capacity: capacity})
	return nil
}

// AddInitial records that an input is fed by an initial information packet
func (g *FlowGraph) AddInitial(to ComponentPortRef) error {
	if _, err := g.port(to, component.DirectionInput); err != nil {
		return err
	}
	if g.initials[to] || slices.ContainsFunc(g.edges, func(e FlowEdge) bool { return e.To == to }) {
		return fmt.Errorf("input %s already connected", to)
	}
	g.initials[to] = true
	return nil
}

// AnalyzeConnectivity performs graph connectivity analysis: clusters,
// unconnected ports, disconnected nodes and cycles that can deadlock.
func (g *FlowGraph) AnalyzeConnectivity() *FlowAnalysisResult {
	result := &FlowAnalysisResult{
		ConnectedComponents: g.findConnectedComponents(),
		ConnectedEdges:      g.GetEdges(),
		Cycles:              []Cycle{},
		Errors:              []Issue{},
		Warnings:            []Issue{},
		ValidationStatus:    StatusHealthy,
	}

	connectedIn := make(map[ComponentPortRef]bool, len(g.edges)+len(g.initials))
	connectedOut := make(map[ComponentPortRef]bool, len(g.edges))
	for _, e := range g.edges {
		connectedOut[e.From] = true
		connectedIn[e.To] = true
	}
	for ref := range g.initials {
		connectedIn[ref] = true
	}

	for _, name := range g.order {
		node := g.nodes[name]
		touched := false

		for _, p := range node.InputPorts {
			ref := ComponentPortRef{ComponentName: name, PortName: p.Name}
			if connectedIn[ref] {
				touched = true
				continue
			}
			if p.Required {
				result.Errors = append(result.Errors, Issue{
					Type:          IssueUnconnectedInput,
					Severity:      "error",
					ComponentName: name,
					PortName:      p.Name,
					Message:       fmt.Sprintf("mandatory input %s is not connected", ref),
				})
			}
		}
		for _, p := range node.OutputPorts {
			ref := ComponentPortRef{ComponentName: name, PortName: p.Name}
			if connectedOut[ref] {
				touched = true
				continue
			}
			if p.Required {
				result.Warnings = append(result.Warnings, Issue{
					Type:          IssueUnconnectedOutput,
					Severity:      "warning",
					ComponentName: name,
					PortName:      p.Name,
					Message:       fmt.Sprintf("output %s is not connected", ref),
				})
			}
		}

		if !touched {
			result.Warnings = append(result.Warnings, Issue{
				Type:          IssueDisconnectedNode,
				Severity:      "warning",
				ComponentName: name,
				Message:       fmt.Sprintf("component %s has no connections", name),
			})
		}
	}

	for _, cycle := range g.findCycles() {
		result.Cycles = append(result.Cycles, cycle)
		if cycle.Deadlock {
			result.Errors = append(result.Errors, Issue{
				Type:          IssuePotentialDeadlock,
				Severity:      "error",
				ComponentName: cycle.Components[0],
				Message: fmt.Sprintf("cycle %s can deadlock: every port is mandatory and no connection buffers more than %d packets",
					strings.Join(cycle.Components, " -> "), len(cycle.Components)),
			})
		}
	}

	switch {
	case len(result.Errors) > 0:
		result.ValidationStatus = StatusErrors
	case len(result.Warnings) > 0:
		result.ValidationStatus = StatusWarnings
	}
	return result
}

// findConnectedComponents uses DFS to find connected components in the graph,
// treating edges as undirected
func (g *FlowGraph) findConnectedComponents() [][]string {
	visited := make(map[string]bool)
	components := [][]string{}

	adj := make(map[string][]string)
	for _, edge := range g.edges {
		from := edge.From.ComponentName
		to := edge.To.ComponentName

		adj[from] = append(adj[from], to)
		adj[to] = append(adj[to], from)
	}

	for _, name := range g.order {
		if !visited[name] {
			var cluster []string
			g.dfs(name, adj, visited, &cluster)
			sort.Strings(cluster)
			components = append(components, cluster)
		}
	}

	return components
}

// dfs performs depth-first search for connected components
func (g *FlowGraph) dfs(node string, adj map[string][]string, visited map[string]bool, cluster *[]string) {
	visited[node] = true
	*cluster = append(*cluster, node)

	for _, neighbor := range adj[node] {
		if !visited[neighbor] {
			g.dfs(neighbor, adj, visited, cluster)
		}
	}
}

// findCycles returns every strongly connected component that forms a cycle,
// using Tarjan's algorithm over the directed edges
func (g *FlowGraph) findCycles() []Cycle {
	adj := make(map[string][]string)
	for _, e := range g.edges {
		adj[e.From.ComponentName] = append(adj[e.From.ComponentName], e.To.ComponentName)
	}

	t := &tarjan{
		adj:     adj,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, name := range g.order {
		if _, seen := t.index[name]; !seen {
			t.strongConnect(name)
		}
	}

	var cycles []Cycle
	for _, scc := range t.sccs {
		members := make(map[string]bool, len(scc))
		for _, name := range scc {
			members[name] = true
		}

		var edges []FlowEdge
		for _, e := range g.edges {
			if members[e.From.ComponentName] && members[e.To.ComponentName] {
				edges = append(edges, e)
			}
		}
		// a single component is a cycle only through a self-loop
		if len(scc) == 1 && len(edges) == 0 {
			continue
		}

		sort.Strings(scc)
		cycles = append(cycles, Cycle{
			Components: scc,
			Edges:      edges,
			Deadlock:   g.canDeadlock(edges, len(scc)),
		})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Components[0] < cycles[j].Components[0]
	})
	return cycles
}

func (g *FlowGraph) canDeadlock(edges []FlowEdge, length int) bool {
	for _, e := range edges {
		if e.Capacity > length {
			return false
		}
		from, err := g.port(e.From, component.DirectionOutput)
		if err != nil || !from.Required {
			return false
		}
		to, err := g.port(e.To, component.DirectionInput)
		if err != nil || !to.Required {
			return false
		}
	}
	return true
}

type tarjan struct {
	adj     map[string][]string
	counter int
	index   map[string]int
	lowlink map[string]int
	stack   []string
	onStack map[string]bool
	sccs    [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var scc []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

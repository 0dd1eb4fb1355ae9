package flowgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/component"
)

func in(name string, required bool) PortInfo {
	return PortInfo{Name: name, Direction: component.DirectionInput, Required: required}
}

func out(name string, required bool) PortInfo {
	return PortInfo{Name: name, Direction: component.DirectionOutput, Required: required}
}

func ref(comp, port string) ComponentPortRef {
	return ComponentPortRef{ComponentName: comp, PortName: port}
}

// pipeline builds gen -> pass -> sink
func pipeline(t *testing.T) *FlowGraph {
	t.Helper()
	g := NewFlowGraph()
	require.NoError(t, g.AddComponentNode("gen", nil, []PortInfo{out("OUT", true)}))
	require.NoError(t, g.AddComponentNode("pass", []PortInfo{in("IN", true)}, []PortInfo{out("OUT", true)}))
	require.NoError(t, g.AddComponentNode("sink", []PortInfo{in("IN", true)}, nil))
	require.NoError(t, g.AddEdge(ref("gen", "OUT"), ref("pass", "IN"), 10))
	require.NoError(t, g.AddEdge(ref("pass", "OUT"), ref("sink", "IN"), 10))
	return g
}

func TestFlowGraphConstruction(t *testing.T) {
	t.Run("create empty FlowGraph", func(t *testing.T) {
		graph := NewFlowGraph()

		assert.NotNil(t, graph)
		assert.Empty(t, graph.GetNodes())
		assert.Empty(t, graph.GetEdges())
	})

	t.Run("add duplicate component node returns error", func(t *testing.T) {
		graph := NewFlowGraph()
		require.NoError(t, graph.AddComponentNode("a", nil, nil))

		err := graph.AddComponentNode("a", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("edge to unknown port is rejected", func(t *testing.T) {
		graph := NewFlowGraph()
		require.NoError(t, graph.AddComponentNode("a", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, graph.AddComponentNode("b", []PortInfo{in("IN", true)}, nil))

		assert.Error(t, graph.AddEdge(ref("a", "NOPE"), ref("b", "IN"), 1))
		assert.Error(t, graph.AddEdge(ref("a", "OUT"), ref("c", "IN"), 1))
	})

	t.Run("a slot takes one counterpart", func(t *testing.T) {
		graph := NewFlowGraph()
		require.NoError(t, graph.AddComponentNode("a", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, graph.AddComponentNode("b", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, graph.AddComponentNode("c", []PortInfo{in("IN", true)}, nil))

		require.NoError(t, graph.AddEdge(ref("a", "OUT"), ref("c", "IN"), 1))
		assert.Error(t, graph.AddEdge(ref("b", "OUT"), ref("c", "IN"), 1))
		assert.Error(t, graph.AddInitial(ref("c", "IN")))
	})
}

func TestAnalyzeConnectivity(t *testing.T) {
	t.Run("healthy pipeline", func(t *testing.T) {
		result := pipeline(t).AnalyzeConnectivity()

		assert.Equal(t, StatusHealthy, result.ValidationStatus)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
		assert.Empty(t, result.Cycles)
		assert.NoError(t, result.Err())
		if diff := cmp.Diff([][]string{{"gen", "pass", "sink"}}, result.ConnectedComponents); diff != "" {
			t.Errorf("connected components mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unconnected mandatory input is an error", func(t *testing.T) {
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("filter",
			[]PortInfo{in("IN", true), in("REGEX", true)}, []PortInfo{out("OUT", false)}))
		require.NoError(t, g.AddComponentNode("gen", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddEdge(ref("gen", "OUT"), ref("filter", "IN"), 10))

		result := g.AnalyzeConnectivity()

		assert.Equal(t, StatusErrors, result.ValidationStatus)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, IssueUnconnectedInput, result.Errors[0].Type)
		assert.Equal(t, "REGEX", result.Errors[0].PortName)
		assert.ErrorContains(t, result.Err(), "filter.REGEX")
	})

	t.Run("initial packet satisfies a mandatory input", func(t *testing.T) {
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("filter",
			[]PortInfo{in("IN", true), in("REGEX", true)}, nil))
		require.NoError(t, g.AddComponentNode("gen", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddEdge(ref("gen", "OUT"), ref("filter", "IN"), 10))
		require.NoError(t, g.AddInitial(ref("filter", "REGEX")))

		result := g.AnalyzeConnectivity()
		assert.False(t, result.HasErrors())
	})

	t.Run("unconnected optional ports are silent", func(t *testing.T) {
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("split",
			[]PortInfo{in("IN", true)}, []PortInfo{out("OUT[0]", false), out("OUT[1]", false)}))
		require.NoError(t, g.AddComponentNode("gen", nil, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddEdge(ref("gen", "OUT"), ref("split", "IN"), 10))

		result := g.AnalyzeConnectivity()
		assert.Equal(t, StatusHealthy, result.ValidationStatus)
	})

	t.Run("unconnected mandatory output and lone node are warnings", func(t *testing.T) {
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("gen", nil, []PortInfo{out("OUT", true)}))

		result := g.AnalyzeConnectivity()

		assert.Equal(t, StatusWarnings, result.ValidationStatus)
		types := make([]string, 0, len(result.Warnings))
		for _, w := range result.Warnings {
			types = append(types, w.Type)
		}
		assert.Equal(t, []string{IssueUnconnectedOutput, IssueDisconnectedNode}, types)
	})
}

func TestCycleDetection(t *testing.T) {
	ring := func(t *testing.T, capacity int, optional bool) *FlowGraph {
		t.Helper()
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("a", []PortInfo{in("IN", !optional)}, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddComponentNode("b", []PortInfo{in("IN", true)}, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddEdge(ref("a", "OUT"), ref("b", "IN"), capacity))
		require.NoError(t, g.AddEdge(ref("b", "OUT"), ref("a", "IN"), capacity))
		return g
	}

	t.Run("tight mandatory cycle can deadlock", func(t *testing.T) {
		result := ring(t, 1, false).AnalyzeConnectivity()

		require.Len(t, result.Cycles, 1)
		assert.True(t, result.Cycles[0].Deadlock)
		assert.Equal(t, []string{"a", "b"}, result.Cycles[0].Components)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, IssuePotentialDeadlock, result.Errors[0].Type)
	})

	t.Run("buffering beyond the cycle length is legal", func(t *testing.T) {
		result := ring(t, 3, false).AnalyzeConnectivity()

		require.Len(t, result.Cycles, 1)
		assert.False(t, result.Cycles[0].Deadlock)
		assert.False(t, result.HasErrors())
	})

	t.Run("an optional port makes the cycle legal", func(t *testing.T) {
		result := ring(t, 1, true).AnalyzeConnectivity()

		require.Len(t, result.Cycles, 1)
		assert.False(t, result.Cycles[0].Deadlock)
	})

	t.Run("self loop is a cycle", func(t *testing.T) {
		g := NewFlowGraph()
		require.NoError(t, g.AddComponentNode("loop", []PortInfo{in("IN", true)}, []PortInfo{out("OUT", true)}))
		require.NoError(t, g.AddEdge(ref("loop", "OUT"), ref("loop", "IN"), 1))

		result := g.AnalyzeConnectivity()

		want := []Cycle{{
			Components: []string{"loop"},
			Edges:      []FlowEdge{{From: ref("loop", "OUT"), To: ref("loop", "IN"), Capacity: 1}},
			Deadlock:   true,
		}}
		if diff := cmp.Diff(want, result.Cycles); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("acyclic graph reports no cycles", func(t *testing.T) {
		assert.Empty(t, pipeline(t).AnalyzeConnectivity().Cycles)
	})
}

type twoPorts struct {
	*component.Base
}

func (n *twoPorts) Initialize() error {
	n.DeclareInput("IN", component.WithTypes(component.TypeString))
	n.DeclareOutputArray("OUT", 2, component.Optional())
	return nil
}

func TestNodePorts(t *testing.T) {
	n := &twoPorts{Base: component.NewBase("n")}
	require.NoError(t, component.InitializeNode(n))

	inputs, outputs := NodePorts(n)

	want := []PortInfo{{
		Name:      "IN",
		Direction: component.DirectionInput,
		Types:     []component.ValueType{component.TypeString},
		Required:  true,
	}}
	if diff := cmp.Diff(want, inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, outputs, 2)
	assert.Equal(t, "OUT[1]", outputs[1].Name)
	assert.False(t, outputs[1].Required)
}

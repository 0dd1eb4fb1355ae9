package component

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/errors"
)

// wrapper is a graph exposing an inner pipe through aliased ports
type wrapper struct {
	*Graph
	inner *pipe
}

func newWrapper(name string) *wrapper {
	return &wrapper{Graph: NewGraph(name)}
}

func (w *wrapper) Initialize() error {
	in := w.DeclareInput("IN")
	out := w.DeclareOutput("OUT")
	w.inner = newPipe("inner")
	if err := w.Add(w.inner); err != nil {
		return err
	}
	if err := w.Connect(in, w.inner.In("IN")); err != nil {
		return err
	}
	return w.Connect(w.inner.Out("OUT"), out)
}

func TestGraphConnect(t *testing.T) {
	g := NewGraph("main")
	a, b := newPipe("a"), newPipe("b")
	require.NoError(t, g.Add(a, b))
	require.NoError(t, g.Connect(a.Out("OUT"), b.In("IN"), Buffered(3)))

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Same(t, a.out, edges[0].From)
	assert.Same(t, b.in, edges[0].To)
	assert.Equal(t, 3, edges[0].Capacity)
}

func TestGraphConnectErrors(t *testing.T) {
	g := NewGraph("main")
	a, b, c := newPipe("a"), newPipe("b"), newPipe("c")
	require.NoError(t, g.Add(a, b, c))
	require.NoError(t, g.Connect(a.Out("OUT"), b.In("IN")))

	err := g.Connect(a.Out("OUT"), c.In("IN"))
	assert.ErrorIs(t, err, errors.ErrPortAlreadyConnected)

	err = g.Connect(c.Out("OUT"), b.In("IN"))
	assert.ErrorIs(t, err, errors.ErrPortAlreadyConnected)

	err = g.Connect(c.Out("NOPE"), a.In("IN"))
	assert.ErrorIs(t, err, errors.ErrUnknownPort)

	err = g.Connect(b.In("IN"), c.In("IN"))
	assert.True(t, errors.IsInvalid(err), "input to input is rejected")

	stranger := newPipe("stranger")
	initialized(t, stranger)
	err = g.Connect(stranger.Out("OUT"), c.In("IN"))
	assert.ErrorIs(t, err, errors.ErrUnknownPort)

	err = g.Connect(c.Out("OUT"), a.In("IN"), Buffered(-1))
	assert.Error(t, err)
}

func TestGraphConnectTypeMismatch(t *testing.T) {
	g := NewGraph("main")
	ints := newPipe("ints")
	ints.outOpts = []PortOption{WithTypes(TypeInt)}
	strs := newPipe("strs")
	strs.inOpts = []PortOption{WithTypes(TypeString)}
	anything := newPipe("anything")
	require.NoError(t, g.Add(ints, strs, anything))

	err := g.Connect(ints.Out("OUT"), strs.In("IN"))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	assert.NoError(t, g.Connect(ints.Out("OUT"), anything.In("IN")))
}

func TestGraphAdd(t *testing.T) {
	g := NewGraph("main")
	require.NoError(t, g.Add(newPipe("a")))

	assert.Error(t, g.Add(newPipe("a")), "duplicate name")
	assert.Error(t, g.Add(newPipe("has.dot")), "invalid name")
	assert.Error(t, g.Add(nil))

	b := newPipe("b")
	require.NoError(t, g.Add(b))
	other := NewGraph("other")
	assert.Error(t, other.Add(b), "node already has a parent")

	child, ok := g.Child("b")
	require.True(t, ok)
	assert.Same(t, b, child)
	assert.Len(t, g.Children(), 2)
}

func TestGraphAliases(t *testing.T) {
	g := NewGraph("main")
	src, w, dst := newPipe("src"), newWrapper("wrap"), newPipe("dst")
	require.NoError(t, g.Add(src, w, dst))
	require.NoError(t, g.Connect(src.Out("OUT"), w.In("IN")))
	require.NoError(t, g.Connect(w.Out("OUT"), dst.In("IN")))

	assert.Same(t, w.inner.in, w.In("IN").Resolve())
	assert.Same(t, w.inner.out, w.Out("OUT").Resolve())
	assert.Equal(t, "wrap/inner", w.inner.Path())
	assert.Equal(t, "wrap/inner.IN", w.inner.in.FullName())
	assert.Equal(t, "wrap.IN", w.In("IN").FullName())

	err := w.Connect(w.In("IN"), w.inner.In("IN"))
	assert.ErrorIs(t, err, errors.ErrPortAlreadyConnected)
}

func TestGraphNestedPaths(t *testing.T) {
	root := NewGraph("root")
	outer := NewGraph("outer")
	inner := NewGraph("inner")
	leaf := newPipe("leaf")

	// children added before their parents still get full paths
	require.NoError(t, inner.Add(leaf))
	require.NoError(t, outer.Add(inner))
	require.NoError(t, root.Add(outer))

	assert.Equal(t, "outer/inner/leaf", leaf.Path())
	assert.Equal(t, "outer/inner/leaf.OUT", leaf.Out("OUT").FullName())
	assert.Equal(t, "root", root.Path())
}

func TestGraphInitial(t *testing.T) {
	g := NewGraph("main")
	typed := newPipe("typed")
	typed.inOpts = []PortOption{WithTypes(TypeString)}
	feed := newPipe("feed")
	require.NoError(t, g.Add(typed, feed))

	assert.ErrorIs(t, g.Initial(1, typed.In("IN")), errors.ErrTypeMismatch)
	require.NoError(t, g.Initial("hello", typed.In("IN")))
	assert.ErrorIs(t, g.Initial("again", typed.In("IN")), errors.ErrPortAlreadyConnected)
	assert.ErrorIs(t, g.Connect(feed.Out("OUT"), typed.In("IN")), errors.ErrPortAlreadyConnected)

	got := g.Initials()
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Value)
	assert.Same(t, typed.in, got[0].To)
}

func TestDescribePorts(t *testing.T) {
	d := &declarer{Base: NewBase("d"), declare: func(b *Base) {
		b.DeclareInput("IN", WithTypes(TypeString), WithDescription("text"), WithCapacity(4))
		b.DeclareInput("DELAY", Optional())
		b.DeclareOutputArray("OUT", 3, Optional())
	}}
	initialized(t, d)

	inputs, outputs := DescribePorts(d)
	want := []PortInfo{
		{Name: "IN", Direction: DirectionInput, Types: []string{"string"}, Description: "text", Capacity: 4},
		{Name: "DELAY", Direction: DirectionInput, Optional: true},
	}
	if diff := cmp.Diff(want, inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []PortInfo{{Name: "OUT", Direction: DirectionOutput, Optional: true, Size: 3}}, outputs)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, TypeInt, TypeOf(int64(1)))
	assert.Equal(t, TypeFloat, TypeOf(1.5))
	assert.Equal(t, TypeBytes, TypeOf([]byte("x")))
	assert.Equal(t, TypeAny, TypeOf(struct{}{}))

	assert.True(t, Accepts(nil, struct{}{}))
	assert.False(t, Accepts([]ValueType{TypeInt}, struct{}{}))
	assert.True(t, TypesIntersect([]ValueType{TypeInt, TypeString}, []ValueType{TypeString}))
	assert.False(t, TypesIntersect([]ValueType{TypeInt}, []ValueType{TypeBool}))

	vt, err := ParseValueType("STRING")
	require.NoError(t, err)
	assert.Equal(t, TypeString, vt)
	_, err = ParseValueType("complex")
	assert.Error(t, err)
}

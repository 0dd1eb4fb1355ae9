package processor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/network"
	"github.com/wildparky/pflow/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, g *component.Graph, opts ...network.Option) *network.Network {
	t.Helper()
	opts = append([]network.Option{network.WithLogger(quietLogger())}, opts...)
	n, err := network.New(g, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Run(ctx))
	require.NoError(t, ctx.Err(), "network did not reach quiescence")
	return n
}

// packetRecorder records the identity of every packet it receives
type packetRecorder struct {
	*component.Base
	in *component.InputPort

	mu     sync.Mutex
	ids    []string
	owners []string
	values []any
}

func newPacketRecorder(name string) *packetRecorder {
	return &packetRecorder{Base: component.NewBase(name)}
}

func (r *packetRecorder) Initialize() error {
	r.in = r.DeclareInput("IN")
	return nil
}

func (r *packetRecorder) Run(ctx context.Context) error {
	pkt, err := r.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	v, err := pkt.Value()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.ids = append(r.ids, pkt.ID())
	r.owners = append(r.owners, pkt.Owner())
	r.values = append(r.values, v)
	r.mu.Unlock()
	return r.Drop(pkt)
}

func TestRepeatForwardsInOrder(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1, 2, 3)
	rep := NewRepeat("repeat")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, rep, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), rep.In("IN")))
	require.NoError(t, g.Connect(rep.Out("OUT"), sink.In("IN")))

	n := run(t, g)

	assert.Equal(t, []any{1, 2, 3}, sink.Values())
	assert.Empty(t, n.Failures())
	state, ok := n.State("repeat")
	require.True(t, ok)
	assert.Equal(t, component.StateTerminated, state)
}

func TestSplitSendsIndependentCopies(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "X")
	split := NewSplit("split")
	left := newPacketRecorder("left")
	right := newPacketRecorder("right")
	require.NoError(t, g.Add(feed, split, left, right))
	require.NoError(t, g.Connect(feed.Out("OUT"), split.In("IN")))
	require.NoError(t, g.Connect(split.Out("OUT[0]"), left.In("IN")))
	require.NoError(t, g.Connect(split.Out("OUT[3]"), right.In("IN")))

	run(t, g)

	require.Len(t, left.ids, 1)
	require.Len(t, right.ids, 1)
	assert.Equal(t, []any{"X"}, left.values)
	assert.Equal(t, []any{"X"}, right.values)
	assert.NotEqual(t, left.ids[0], right.ids[0])
	assert.Equal(t, []string{"left"}, left.owners)
	assert.Equal(t, []string{"right"}, right.owners)
}

func TestSplitWithoutConnectedSlotsDrops(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1, 2)
	split := NewSplit("split")
	require.NoError(t, g.Add(feed, split))
	require.NoError(t, g.Connect(feed.Out("OUT"), split.In("IN")))

	n := run(t, g)
	assert.Empty(t, n.Failures())
	assert.Equal(t, 0, split.Held())
}

func TestSleepZeroDelayWarns(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "a", "b")
	sleep := NewSleep("sleep")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, sleep, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), sleep.In("IN")))
	require.NoError(t, g.Connect(sleep.Out("OUT"), sink.In("IN")))
	require.NoError(t, g.Initial(0, sleep.In("DELAY")))

	events := testutil.NewRecordingSink()
	start := time.Now()
	run(t, g, network.WithEventSink(events))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []any{"a", "b"}, sink.Values())
	assert.Contains(t, events.Messages(slog.LevelWarn),
		"Using a Sleep component with 0 DELAY is the same as using Repeat")
}

func TestSleepDelaysEveryPacket(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1, 2)
	sleep := NewSleep("sleep")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, sleep, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), sleep.In("IN")))
	require.NoError(t, g.Connect(sleep.Out("OUT"), sink.In("IN")))
	require.NoError(t, g.Initial("30ms", sleep.In("DELAY")))

	start := time.Now()
	run(t, g)

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, []any{1, 2}, sink.Values())
}

func TestSleepUsesConfiguredDelayWhenUnconnected(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1)
	sleep := NewSleep("sleep").WithDelay(20 * time.Millisecond)
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, sleep, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), sleep.In("IN")))
	require.NoError(t, g.Connect(sleep.Out("OUT"), sink.In("IN")))

	events := testutil.NewRecordingSink()
	start := time.Now()
	run(t, g, network.WithEventSink(events))

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Empty(t, events.Messages(slog.LevelWarn))
}

func TestRegexFilter(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "apple", "banana", "avocado")
	filter := NewRegexFilter("filter")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, filter, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), filter.In("IN")))
	require.NoError(t, g.Connect(filter.Out("OUT"), sink.In("IN")))
	require.NoError(t, g.Initial("^a", filter.In("REGEX")))

	run(t, g)

	assert.Equal(t, []any{"apple", "avocado"}, sink.Values())
	assert.Equal(t, 0, filter.Held())
}

func TestRegexFilterInvalidExpression(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "apple")
	filter := NewRegexFilter("filter")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, filter, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), filter.In("IN")))
	require.NoError(t, g.Connect(filter.Out("OUT"), sink.In("IN")))
	require.NoError(t, g.Initial("(", filter.In("REGEX")))

	n, err := network.New(g, network.WithLogger(quietLogger()), network.WithPolicy(network.PolicyFailFast))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = n.Run(ctx)

	var runErr *network.RunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	assert.Equal(t, "filter", runErr.Failures[0].Component)
	assert.True(t, errors.IsInvalid(runErr.Failures[0].Err))
}

func TestRegexFilterRejectsNonStrings(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 42, "apple")
	filter := NewRegexFilter("filter")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, filter, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), filter.In("IN")))
	require.NoError(t, g.Connect(filter.Out("OUT"), sink.In("IN")))
	require.NoError(t, g.Initial("", filter.In("REGEX")))

	n, err := network.New(g, network.WithLogger(quietLogger()))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Run(ctx))

	failures := n.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "feed", failures[0].Component)
	assert.ErrorIs(t, failures[0].Err, errors.ErrTypeMismatch)
	assert.Empty(t, sink.Values(), "the int never reaches the filter as an empty string")
}

func TestConcatDrainsSlotsInOrder(t *testing.T) {
	g := component.NewGraph("main")
	first := testutil.NewFeeder("first", 1, 2, 3)
	second := testutil.NewFeeder("second", "a", "b")
	concat := NewConcat("concat")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(first, second, concat, sink))
	require.NoError(t, g.Connect(second.Out("OUT"), concat.In("IN[4]")))
	require.NoError(t, g.Connect(first.Out("OUT"), concat.In("IN[1]")))
	require.NoError(t, g.Connect(concat.Out("OUT"), sink.In("IN")))

	run(t, g)

	assert.Equal(t, []any{1, 2, 3, "a", "b"}, sink.Values())
}

func TestMultiply(t *testing.T) {
	g := component.NewGraph("main")
	xs := testutil.NewFeeder("xs", 2, "3", 4.9)
	ys := testutil.NewFeeder("ys", 5, 6, 2)
	mul := NewMultiply("mul")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(xs, ys, mul, sink))
	require.NoError(t, g.Connect(xs.Out("OUT"), mul.In("X")))
	require.NoError(t, g.Connect(ys.Out("OUT"), mul.In("Y")))
	require.NoError(t, g.Connect(mul.Out("OUT"), sink.In("IN")))

	run(t, g)

	assert.Equal(t, []any{10, 18, 8}, sink.Values())
}

func TestLogTapPassesThroughAndPrints(t *testing.T) {
	var buf bytes.Buffer
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1, "two")
	tap := NewLogTap("tap", &buf).WithPrefix("tap: ")
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(feed, tap, sink))
	require.NoError(t, g.Connect(feed.Out("OUT"), tap.In("IN")))
	require.NoError(t, g.Connect(tap.Out("OUT"), sink.In("IN")))

	n := run(t, g)

	assert.Equal(t, []any{1, "two"}, sink.Values())
	assert.Equal(t, "tap: 1\ntap: two\n", buf.String())
	assert.ElementsMatch(t, []string{"feed", "tap/TAP", "tap/LOG", "sink"}, n.Components())
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	for _, name := range []string{"Repeat", "Sleep", "Split", "RegexFilter", "Concat", "Multiply", "LogTap"} {
		node, err := registry.Create(name, "x", nil, component.Dependencies{Stdout: io.Discard})
		require.NoError(t, err, name)
		assert.Equal(t, "x", node.Name())
	}

	_, err := registry.Create("Repeat", "r", map[string]any{"bogus": 1}, component.Dependencies{})
	assert.Error(t, err)

	node, err := registry.Create("Sleep", "s", map[string]any{"delay": 0.5}, component.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, node.(*Sleep).delay)

	assert.Error(t, Register(registry), "registering twice must fail")
}

func TestConversions(t *testing.T) {
	n, err := toInt("  42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = toInt(-2.7)
	require.NoError(t, err)
	assert.Equal(t, -2, n)

	_, err = toInt(struct{}{})
	assert.Error(t, err)

	d, err := toSeconds(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	d, err = toSeconds("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = toSeconds(-1)
	assert.Error(t, err)
}

package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/network"
	"github.com/wildparky/pflow/testutil"
)

func runToQuiescence(t *testing.T, g *component.Graph) *network.Network {
	t.Helper()
	n, err := network.New(g, network.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Run(ctx))
	require.NoError(t, ctx.Err(), "network did not reach quiescence")
	return n
}

func TestDropDiscardsEverything(t *testing.T) {
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1, 2, 3, 4)
	drop := NewDrop("drop")
	require.NoError(t, g.Add(feed, drop))
	require.NoError(t, g.Connect(feed.Out("OUT"), drop.In("IN")))

	n := runToQuiescence(t, g)

	assert.Equal(t, int64(4), drop.Received())
	assert.Equal(t, 0, drop.Held())
	state, _ := n.State("drop")
	assert.Equal(t, component.StateTerminated, state)
}

func TestConsoleLineWriter(t *testing.T) {
	var buf bytes.Buffer
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "hello", 42, true)
	console := NewConsoleLineWriter("console", &buf).WithPrefix("> ")
	require.NoError(t, g.Add(feed, console))
	require.NoError(t, g.Connect(feed.Out("OUT"), console.In("IN")))

	runToQuiescence(t, g)

	assert.Equal(t, "> hello\n> 42\n> true\n", buf.String())
}

func TestNATSPublisher(t *testing.T) {
	pub := testutil.NewMockPublisher()
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 7, "text", map[string]any{"k": "v"})
	natsOut := NewNATSPublisher("nats", "values.out", pub)
	require.NoError(t, g.Add(feed, natsOut))
	require.NoError(t, g.Connect(feed.Out("OUT"), natsOut.In("IN")))

	runToQuiescence(t, g)

	msgs := pub.GetMessages("values.out")
	require.Len(t, msgs, 3)
	assert.Equal(t, "7", string(msgs[0]))
	assert.Equal(t, `"text"`, string(msgs[1]))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[2], &decoded))
	assert.Equal(t, map[string]any{"k": "v"}, decoded)
}

func TestNATSPublisherRawStrings(t *testing.T) {
	pub := testutil.NewMockPublisher()
	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", "plain")
	natsOut := NewNATSPublisher("nats", "", pub)
	natsOut.raw = true
	require.NoError(t, g.Add(feed, natsOut))
	require.NoError(t, g.Connect(feed.Out("OUT"), natsOut.In("IN")))

	runToQuiescence(t, g)

	assert.Equal(t, "pflow.output.nats", natsOut.Subject())
	assert.Equal(t, [][]byte{[]byte("plain")}, pub.GetMessages("pflow.output.nats"))
}

func TestNATSPublisherFailureIsRecorded(t *testing.T) {
	pub := testutil.NewMockPublisher()
	pub.FailWith(fmt.Errorf("connection lost"))

	g := component.NewGraph("main")
	feed := testutil.NewFeeder("feed", 1)
	natsOut := NewNATSPublisher("nats", "x", pub)
	require.NoError(t, g.Add(feed, natsOut))
	require.NoError(t, g.Connect(feed.Out("OUT"), natsOut.In("IN")))

	n := runToQuiescence(t, g)

	failures := n.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "nats", failures[0].Component)
	assert.Contains(t, failures[0].Err.Error(), "connection lost")
}

func TestNATSConfigValidate(t *testing.T) {
	assert.NoError(t, (&NATSConfig{Subject: "a.b.c"}).Validate())
	assert.Error(t, (&NATSConfig{Subject: "a b"}).Validate())
	assert.Error(t, (&NATSConfig{Subject: "a."}).Validate())
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	var buf bytes.Buffer
	node, err := registry.Create("ConsoleLineWriter", "c", map[string]any{"prefix": "# "},
		component.Dependencies{Stdout: &buf})
	require.NoError(t, err)
	assert.Equal(t, "# ", node.(*ConsoleLineWriter).prefix)

	node, err = registry.Create("NATSPublisher", "p", nil, component.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "pflow.output.p", node.(*NATSPublisher).Subject())

	_, err = registry.Create("NATSPublisher", "p", map[string]any{"subject": "bad subject"}, component.Dependencies{})
	assert.Error(t, err)

	_, err = registry.Create("Drop", "d", map[string]any{"unexpected": true}, component.Dependencies{})
	assert.Error(t, err)

	node, err = registry.Create("FileLineWriter", "f", map[string]any{"path": "out.jsonl", "format": "jsonl"},
		component.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, FormatJSONL, node.(*FileLineWriter).config.Format)

	_, err = registry.Create("FileLineWriter", "f", nil, component.Dependencies{})
	assert.Error(t, err)

	node, err = registry.Create("HTTPPoster", "h", map[string]any{"url": "http://localhost/in", "timeout": "2s"},
		component.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, node.(*HTTPPoster).client.Timeout)

	node, err = registry.Create("WebSocketBroadcaster", "w", nil, component.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWebSocketPath, node.(*WebSocketBroadcaster).config.Path)
}

package input

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/network"
	"github.com/wildparky/pflow/testutil"
)

func TestUDPReader(t *testing.T) {
	g := component.NewGraph("main")
	udp := NewUDPReader("udp", UDPConfig{Bind: "127.0.0.1"})
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(udp, sink))
	require.NoError(t, g.Connect(udp.Out("OUT"), sink.In("IN")))

	n, err := network.New(g, network.WithLogger(quietLogger()))
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()

	select {
	case <-udp.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not start listening")
	}

	conn, err := net.Dial("udp", udp.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	for _, msg := range []string{"one", "two"} {
		_, err := conn.Write([]byte(msg))
		require.NoError(t, err)
	}
	require.True(t, sink.WaitFor(2, 3*time.Second))

	stop(t, n, done)
	assert.Equal(t, []any{"one", "two"}, sink.Values())
	assert.Empty(t, n.Failures())
}

func TestUDPConfigValidate(t *testing.T) {
	assert.NoError(t, (&UDPConfig{Port: 5000}).Validate())
	assert.Error(t, (&UDPConfig{Port: 70000}).Validate())
	assert.Error(t, (&UDPConfig{BufferSize: -1}).Validate())
}

func TestWebSocketReader(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range []string{"first", "second"} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
		// wait for the reader to acknowledge the close
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	values := runWebSocketReader(t, WebSocketConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, nil)
	assert.Equal(t, []any{"first", "second"}, values)
}

func TestWebSocketReaderGivesUpWhenServerIsDown(t *testing.T) {
	var failures []network.Failure
	runWebSocketReader(t, WebSocketConfig{URL: "ws://127.0.0.1:1/ws", ConnectAttempts: 2}, &failures)

	require.Len(t, failures, 1)
	assert.Equal(t, "ws", failures[0].Component)
	assert.True(t, errors.Is(failures[0].Err, errors.ErrMaxRetriesExceeded))
}

func runWebSocketReader(t *testing.T, cfg WebSocketConfig, failures *[]network.Failure) []any {
	t.Helper()
	g := component.NewGraph("main")
	ws := NewWebSocketReader("ws", cfg)
	sink := testutil.NewCollector("sink")
	require.NoError(t, g.Add(ws, sink))
	require.NoError(t, g.Connect(ws.Out("OUT"), sink.In("IN")))

	n, err := network.New(g, network.WithLogger(quietLogger()))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Run(ctx))
	require.NoError(t, ctx.Err(), "network did not reach quiescence")

	if failures != nil {
		*failures = n.Failures()
	} else {
		require.Empty(t, n.Failures())
	}
	return sink.Values()
}

func TestWebSocketConfigValidate(t *testing.T) {
	assert.NoError(t, (&WebSocketConfig{URL: "ws://localhost:8081/ws"}).Validate())
	assert.Error(t, (&WebSocketConfig{}).Validate())
	assert.Error(t, (&WebSocketConfig{URL: "http://localhost/ws"}).Validate())
	assert.Error(t, (&WebSocketConfig{URL: "ws://host", ConnectAttempts: -1}).Validate())
}

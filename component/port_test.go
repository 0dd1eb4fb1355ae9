package component

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/packet"
	"github.com/wildparky/pflow/pkg/buffer"
)

// pipe is a minimal component with one input and one output
type pipe struct {
	*Base
	inOpts  []PortOption
	outOpts []PortOption
	in      *InputPort
	out     *OutputPort
}

func newPipe(name string) *pipe {
	return &pipe{Base: NewBase(name)}
}

func (p *pipe) Initialize() error {
	p.in = p.DeclareInput("IN", p.inOpts...)
	p.out = p.DeclareOutput("OUT", p.outOpts...)
	return nil
}

func (p *pipe) Run(ctx context.Context) error {
	pkt, err := p.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	return p.out.SendPacket(ctx, pkt)
}

func initialized(t *testing.T, n Node) {
	t.Helper()
	require.NoError(t, InitializeNode(n))
}

// link wires out to in with a queue of the given capacity
func link(t *testing.T, out *OutputPort, in *InputPort, capacity int) *Queue {
	t.Helper()
	q, err := buffer.NewQueue[*packet.Packet](capacity)
	require.NoError(t, err)
	out.Attach(q, in)
	in.Attach(q, out)
	return q
}

func TestPortSendReceiveOrderAndOwnership(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	link(t, src.out, dst.in, 10)
	ctx := context.Background()

	for _, v := range []any{1, 2, 3} {
		require.NoError(t, src.out.Send(ctx, v))
	}
	assert.Equal(t, int64(3), src.Sent())

	var got []any
	for range 3 {
		pkt, err := dst.in.ReceivePacket(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dst", pkt.Owner())
		assert.Equal(t, "src", pkt.Creator())
		v, err := pkt.Value()
		require.NoError(t, err)
		got = append(got, v)
		require.NoError(t, dst.Drop(pkt))
	}
	assert.Equal(t, []any{1, 2, 3}, got)
	assert.Equal(t, int64(3), dst.Received())
	assert.Equal(t, 0, dst.Held())
}

func TestPortBackpressureCountsHeldPackets(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	q := link(t, src.out, dst.in, 2)
	ctx := context.Background()

	require.NoError(t, src.out.Send(ctx, "a"))
	require.NoError(t, src.out.Send(ctx, "b"))

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, src.out.Send(short, "c"), context.DeadlineExceeded)

	// a received but unconsumed packet still occupies its slot
	held, err := dst.in.ReceivePacket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, q.InFlight())
	assert.Equal(t, 1, dst.Held())

	short2, cancel2 := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, src.out.Send(short2, "c"), context.DeadlineExceeded)

	require.NoError(t, dst.Drop(held))
	assert.Equal(t, 1, q.InFlight())
	require.NoError(t, src.out.Send(ctx, "c"))
}

func TestPortForwardingReturnsCredit(t *testing.T) {
	a, b, c := newPipe("a"), newPipe("b"), newPipe("c")
	for _, p := range []*pipe{a, b, c} {
		initialized(t, p)
	}
	first := link(t, a.out, b.in, 1)
	link(t, b.out, c.in, 1)
	ctx := context.Background()

	require.NoError(t, a.out.Send(ctx, 42))
	require.NoError(t, b.Run(ctx))
	assert.Equal(t, 0, first.InFlight())
	assert.Equal(t, 0, b.Held())

	v, err := c.in.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPortClosure(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	link(t, src.out, dst.in, 10)
	ctx := context.Background()

	require.NoError(t, src.out.Send(ctx, "last"))
	src.Finish()

	assert.False(t, dst.in.Exhausted(), "a queued packet is still receivable")
	v, err := dst.in.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = dst.in.Receive(ctx)
	assert.ErrorIs(t, err, errors.ErrPortClosed)
	assert.True(t, dst.in.Exhausted())
	assert.True(t, dst.InputsExhausted())
}

func TestPortSendToTerminatedReceiver(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	link(t, src.out, dst.in, 10)

	dst.Finish()
	assert.ErrorIs(t, src.out.Send(context.Background(), 1), errors.ErrPortClosed)
}

func TestPortUnconnected(t *testing.T) {
	p := newPipe("p")
	p.inOpts = []PortOption{Optional()}
	p.outOpts = []PortOption{Optional()}
	initialized(t, p)
	ctx := context.Background()

	pkt, err := p.in.ReceivePacket(ctx)
	assert.NoError(t, err)
	assert.Nil(t, pkt)

	sent := p.CreatePacket("x")
	require.NoError(t, p.out.SendPacket(ctx, sent))
	assert.True(t, sent.IsDiscarded())

	m := newPipe("m")
	initialized(t, m)
	_, err = m.in.ReceivePacket(ctx)
	assert.ErrorIs(t, err, errors.ErrDisconnectedPort)
	assert.ErrorIs(t, m.out.Send(ctx, 1), errors.ErrDisconnectedPort)
	assert.False(t, m.InputsExhausted(), "no connected inputs never counts as exhausted")
}

func TestPortTypeChecks(t *testing.T) {
	src := newPipe("src")
	src.outOpts = []PortOption{WithTypes(TypeInt)}
	dst := newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	link(t, src.out, dst.in, 10)

	err := src.out.Send(context.Background(), "text")
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.True(t, errors.IsInvalid(err))
	assert.NoError(t, src.out.Send(context.Background(), 3))
}

func TestPortReceiverTypeIsEnforced(t *testing.T) {
	src := newPipe("src")
	dst := newPipe("dst")
	dst.inOpts = []PortOption{WithTypes(TypeString)}
	initialized(t, src)
	initialized(t, dst)
	q := link(t, src.out, dst.in, 10)
	ctx := context.Background()

	err := src.out.Send(ctx, 42)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.Contains(t, err.Error(), "dst.IN")
	assert.Equal(t, 0, q.Len())

	pkt := src.CreatePacket(7)
	assert.ErrorIs(t, src.out.SendPacket(ctx, pkt), errors.ErrTypeMismatch)
	assert.False(t, pkt.IsDiscarded(), "a rejected packet stays with its sender")

	require.NoError(t, src.out.Send(ctx, "apple"))
	v, err := dst.in.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "apple", v)
}

func TestPortReceiveAfterTerminate(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	q := link(t, src.out, dst.in, 10)
	require.NoError(t, src.out.Send(context.Background(), 1))

	ctx := dst.Launch(context.Background())
	dst.Terminate()

	_, err := dst.in.Receive(ctx)
	assert.ErrorIs(t, err, errors.ErrComponentTerminated)
	assert.Equal(t, 1, q.Len(), "the packet stays queued")
	assert.Equal(t, int64(0), dst.Received())

	// the terminated flag alone is enough, whatever context is passed
	_, err = dst.in.Receive(context.Background())
	assert.ErrorIs(t, err, errors.ErrComponentTerminated)
}

func TestPortReceiveWithCancelledContext(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	q := link(t, src.out, dst.in, 10)
	require.NoError(t, src.out.Send(context.Background(), 1))

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errors.ErrNetworkTerminated)

	_, err := dst.in.ReceivePacket(ctx)
	assert.ErrorIs(t, err, errors.ErrNetworkTerminated)
	assert.Equal(t, 1, q.Len())
}

func TestPortUnknownName(t *testing.T) {
	p := newPipe("p")
	initialized(t, p)

	_, err := p.In("NOPE").Receive(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnknownPort)
	assert.ErrorIs(t, p.Out("OUT[2]").Send(context.Background(), 1), errors.ErrUnknownPort)
	assert.Same(t, p.in, p.In("IN"))
}

func TestPortReceiveCancelled(t *testing.T) {
	src, dst := newPipe("src"), newPipe("dst")
	initialized(t, src)
	initialized(t, dst)
	q := link(t, src.out, dst.in, 10)

	errCh := make(chan error, 1)
	go func() {
		_, err := dst.in.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Abort()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errors.ErrNetworkTerminated)
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock")
	}
}

func TestPacketDiscardedTwice(t *testing.T) {
	p := newPipe("p")
	initialized(t, p)
	pkt := p.CreatePacket(1)

	require.NoError(t, p.Drop(pkt))
	assert.ErrorIs(t, p.Drop(pkt), errors.ErrAlreadyDiscarded)
	_, err := pkt.Value()
	assert.ErrorIs(t, err, errors.ErrDiscardedPacket)
}

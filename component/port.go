package component

import (
	"context"
	"fmt"

	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/packet"
	"github.com/wildparky/pflow/pkg/buffer"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// PortOption configures a port declaration
type PortOption func(*portSpec)

type portSpec struct {
	types       []ValueType
	optional    bool
	description string
	capacity    int
}

// WithTypes restricts the values a port accepts
func WithTypes(types ...ValueType) PortOption {
	return func(s *portSpec) {
		s.types = append([]ValueType(nil), types...)
	}
}

// Optional marks a port as not requiring a connection
func Optional() PortOption {
	return func(s *portSpec) {
		s.optional = true
	}
}

// WithDescription attaches a human-readable description
func WithDescription(description string) PortOption {
	return func(s *portSpec) {
		s.description = description
	}
}

// WithCapacity overrides the queue capacity of an input port
func WithCapacity(capacity int) PortOption {
	return func(s *portSpec) {
		s.capacity = capacity
	}
}

// Queue is the packet queue connecting an output slot to an input slot
type Queue = buffer.Queue[*packet.Packet]

// Endpoint is either end of a connection: an *InputPort or an *OutputPort.
type Endpoint interface {
	Name() string
	FullName() string
	Direction() Direction
	Owner() *Base
	endpoint() *portCore
}

// portCore holds what input and output ports share
type portCore struct {
	name    string
	index   int
	owner   *Base
	spec    portSpec
	missing bool

	// bound is set once the port is used by a connection, alias or IIP in
	// its graph
	bound bool
}

func (p *portCore) endpoint() *portCore { return p }

// Name returns the port name, with an index suffix for array members
func (p *portCore) Name() string {
	if p.index >= 0 {
		return fmt.Sprintf("%s[%d]", p.name, p.index)
	}
	return p.name
}

// FullName returns "component.PORT", using the component's path
func (p *portCore) FullName() string {
	if p.owner == nil {
		return p.Name()
	}
	return p.owner.Path() + "." + p.Name()
}

// Owner returns the component that declared the port
func (p *portCore) Owner() *Base { return p.owner }

// Types returns the allowed value types; empty means unconstrained
func (p *portCore) Types() []ValueType { return p.spec.types }

// IsOptional reports whether the port may stay unconnected
func (p *portCore) IsOptional() bool { return p.spec.optional }

// Description returns the port description
func (p *portCore) Description() string { return p.spec.description }

func (p *portCore) unknown(op string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrUnknownPort, p.FullName()), "Port", op, "port lookup")
}

// InputPort receives packets from at most one upstream connection.
type InputPort struct {
	portCore

	// target is set when this is a graph port aliasing an inner input
	target *InputPort

	queue *Queue
	peer  *OutputPort
}

// Direction implements Endpoint
func (in *InputPort) Direction() Direction { return DirectionInput }

// Capacity returns the declared capacity override, zero when unset
func (in *InputPort) Capacity() int { return in.spec.capacity }

// Resolve follows graph aliases to the leaf port that owns the queue
func (in *InputPort) Resolve() *InputPort {
	p := in
	for p.target != nil {
		p = p.target
	}
	return p
}

// IsConnected reports whether the resolved port has an upstream
func (in *InputPort) IsConnected() bool {
	return in.Resolve().queue != nil
}

// Exhausted reports whether the port is connected and its upstream has
// closed with nothing left to receive.
func (in *InputPort) Exhausted() bool {
	p := in.Resolve()
	return p.queue != nil && p.queue.Exhausted()
}

// Attach wires the queue feeding this port. Used by the network runtime.
func (in *InputPort) Attach(q *Queue, peer *OutputPort) {
	in.queue = q
	in.peer = peer
}

// ReceivePacket takes the next packet, blocking while the queue is empty.
// An optional unconnected port returns (nil, nil). When every upstream has
// finished and the queue is drained it returns ErrPortClosed.
func (in *InputPort) ReceivePacket(ctx context.Context) (*packet.Packet, error) {
	p := in.Resolve()
	if p.missing {
		return nil, p.unknown("Receive")
	}
	if p.queue == nil {
		if p.spec.optional {
			return nil, nil
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDisconnectedPort, p.FullName()),
			"InputPort", "Receive", "connection check")
	}

	// a terminated component takes no further packets
	if p.owner.IsTerminated() {
		return nil, errors.ErrComponentTerminated
	}
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	q := p.queue
	pkt, err := q.Take(ctx)
	if err != nil {
		return nil, err
	}

	owner := p.owner
	if err := pkt.Transfer(p.FullName(), owner.Path()); err != nil {
		q.Release()
		return nil, errors.Wrap(err, "InputPort", "Receive", "ownership transfer")
	}
	owner.hold(pkt, q)
	owner.recordReceived()
	return pkt, nil
}

// Receive takes the next packet and returns its value, consuming the packet.
// A nil value with a nil error means the optional port is unconnected.
func (in *InputPort) Receive(ctx context.Context) (any, error) {
	pkt, err := in.ReceivePacket(ctx)
	if err != nil || pkt == nil {
		return nil, err
	}
	v, err := pkt.Value()
	if err != nil {
		return nil, err
	}
	if err := pkt.Discard(); err != nil {
		return nil, err
	}
	return v, nil
}

// OutputPort sends packets to at most one downstream connection.
type OutputPort struct {
	portCore

	// target is set when this is a graph port aliasing an inner output
	target *OutputPort

	queue *Queue
	peer  *InputPort
}

// Direction implements Endpoint
func (out *OutputPort) Direction() Direction { return DirectionOutput }

// Resolve follows graph aliases to the leaf port that feeds the queue
func (out *OutputPort) Resolve() *OutputPort {
	p := out
	for p.target != nil {
		p = p.target
	}
	return p
}

// IsConnected reports whether the resolved port has a downstream
func (out *OutputPort) IsConnected() bool {
	return out.Resolve().queue != nil
}

// Attach wires the queue this port feeds. Used by the network runtime.
func (out *OutputPort) Attach(q *Queue, peer *InputPort) {
	out.queue = q
	out.peer = peer
}

// Send wraps v in a packet owned by the sending component and sends it.
// A *packet.Packet is sent as is.
func (out *OutputPort) Send(ctx context.Context, v any) error {
	if pkt, ok := v.(*packet.Packet); ok {
		return out.SendPacket(ctx, pkt)
	}
	p := out.Resolve()
	if p.missing {
		return p.unknown("Send")
	}
	if err := checkValue(p.spec.types, v, p.FullName()); err != nil {
		return err
	}
	return out.SendPacket(ctx, p.owner.CreatePacket(v))
}

// SendPacket hands pkt to the downstream queue, blocking while the queue is
// at capacity. Forwarding returns the credit the packet held on its inbound
// queue. An unconnected optional port discards the packet.
func (out *OutputPort) SendPacket(ctx context.Context, pkt *packet.Packet) error {
	p := out.Resolve()
	if p.missing {
		return p.unknown("Send")
	}

	v, err := pkt.Value()
	if err != nil {
		return err
	}
	if err := checkValue(p.spec.types, v, p.FullName()); err != nil {
		return err
	}

	if p.queue == nil {
		if p.spec.optional {
			return pkt.Discard()
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDisconnectedPort, p.FullName()),
			"OutputPort", "Send", "connection check")
	}
	// the receiving port's constraint applies too; an untyped output may feed a typed input
	dst := p.peer.Resolve()
	if err := checkValue(dst.spec.types, v, dst.FullName()); err != nil {
		return err
	}

	if err := pkt.Transfer(p.owner.Path(), p.peer.FullName()); err != nil {
		return errors.Wrap(err, "OutputPort", "Send", "ownership transfer")
	}
	pkt.Release()

	if err := p.queue.Put(ctx, pkt); err != nil {
		_ = pkt.Discard()
		return err
	}
	p.owner.recordSent()
	return nil
}

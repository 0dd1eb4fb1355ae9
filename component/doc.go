// Package component provides the node model of pflow: ports, packets in
// flight, component lifecycle, graph composition and the factory registry.
//
// # Overview
//
// A component is a unit of computation with named input and output ports.
// Components embed *Base, declare their ports in Initialize and implement a
// repeatable Run body:
//
//	type Repeat struct {
//		*component.Base
//		in  *component.InputPort
//		out *component.OutputPort
//	}
//
//	func (r *Repeat) Initialize() error {
//		r.in = r.DeclareInput("IN")
//		r.out = r.DeclareOutput("OUT")
//		return nil
//	}
//
//	func (r *Repeat) Run(ctx context.Context) error {
//		pkt, err := r.in.ReceivePacket(ctx)
//		if err != nil {
//			return err
//		}
//		return r.out.SendPacket(ctx, pkt)
//	}
//
// Run is invoked again each time it returns nil. Returning a termination
// error (ErrPortClosed, ErrNetworkTerminated, ErrComponentTerminated or a
// context cancellation) ends the component cleanly; any other error is a
// failure recorded by the network.
//
// # Ports and Packets
//
// Ports are typed (ValueType) and optionally optional. Array ports group N
// scalar members under one name, addressed as NAME[i]. Each input is fed by
// a bounded queue; a send blocks while the receiver's queue holds capacity
// packets in flight. A received packet keeps its credit on the inbound
// queue until it is discarded or forwarded, so a component that holds
// packets applies backpressure upstream.
//
// # Graphs
//
// A Graph is a node made of child nodes. Connect wires a child output to a
// child input, or binds one of the graph's own ports as an alias onto a child
// port. Graphs nest; aliases resolve recursively when the network wires
// queues.
//
// # Observability
//
// Each component reports events (logs, state transitions, failures) to the
// EventSink injected by the network: SlogSink, NATSSink, MultiSink or any
// custom implementation. Components log through Log().
//
// # Registration
//
// Component packages export a Register(*Registry) error function and the
// componentregistry package registers them all. Factories receive the
// instance name, a free-form configuration decoded with DecodeConfig and
// shared Dependencies.
package component

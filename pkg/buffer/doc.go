// Package buffer provides the bounded, credit-based queue that carries packets
// along every connection of a pflow network, with always-on statistics and
// optional Prometheus metrics.
//
// # Quick Start
//
//	q, err := buffer.NewQueue[*packet.Packet](10,
//		buffer.WithMetrics[*packet.Packet](registry, "queue.split.IN"),
//		buffer.WithDropCallback(func(p *packet.Packet) { _ = p.Discard() }),
//	)
//	if err != nil {
//		return err
//	}
//
//	// producer
//	err = q.Put(ctx, pkt)
//
//	// consumer
//	pkt, err := q.Take(ctx)
//	...
//	q.Release() // once the packet is consumed or forwarded
//
// # Backpressure
//
// Capacity bounds items in flight, not just items queued. A consumer that has
// taken a packet but not yet released it still holds that slot, so a slow
// component throttles its upstream even when the queue itself looks empty.
//
// # Closing
//
// CloseWrite is called by the runtime when the producing component finishes;
// Take drains what is left and then reports ErrPortClosed. Reject is called
// when the consuming component finishes; Put then reports ErrPortClosed and
// the drop callback receives anything still queued. Abort is the shutdown
// broadcast: every blocked Put and Take returns ErrNetworkTerminated.
//
// Context cancellation unblocks Put and Take with context.Cause(ctx), which
// lets callers distinguish a component's own termination from shutdown.
//
// # Observability
//
// Statistics are always tracked with atomic counters and are available
// through Stats(). WithMetrics additionally exports them as Prometheus
// collectors labelled with the queue prefix.
package buffer

// Package worker provides a generic, thread-safe worker pool.
//
// pflow uses it wherever a component-facing call must stay non-blocking while
// the real work may stall, most notably the NATS event sink: Emit submits an
// entry and returns immediately, and a small pool publishes in the background.
//
// Submit never blocks. When the queue is full the item is dropped and counted,
// so a slow NATS server costs log entries rather than network throughput.
//
//	pool, err := worker.NewPool[Entry](2, 1000,
//	    func(ctx context.Context, e Entry) error { return publish(e) },
//	    worker.WithMetricsRegistry[Entry](registry, "events"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Stop closes the queue and waits for workers to drain what was already
// submitted.
package worker

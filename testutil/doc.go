// Package testutil provides test helpers for pflow components and networks.
//
// Components:
//   - Feeder: sends a fixed sequence of values on OUT, then terminates
//   - Collector: records every value received on IN; WithDelay slows it down
//     so its queue fills and backpressure can be observed
//   - Blocker: holds its goroutine until terminated or shut down
//
// Observability:
//   - RecordingSink: an EventSink keeping every event for assertions
//   - MockPublisher: an in-memory replacement for a NATS connection's Publish
//
// Example:
//
//	feeder := testutil.NewFeeder("feed", 1, 2, 3)
//	sink := testutil.NewCollector("sink")
//	g := component.NewGraph("main")
//	_ = g.Add(feeder, sink)
//	_ = g.Connect(feeder.Out("OUT"), sink.In("IN"))
//	net, _ := network.New(g)
//	_ = net.Run(ctx)
//	// sink.Values() == []any{1, 2, 3}
package testutil

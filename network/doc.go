// Package network runs a component graph.
//
// New initializes the root graph, flattens nested graphs down to their leaf
// components, resolves graph port aliases and validates the wiring with a
// flow graph analysis (unconnected mandatory inputs, type conflicts, cycles
// that cannot make progress). Every connection then gets a bounded queue;
// initial information packets are preloaded into queues of their own.
//
// Run starts one goroutine per leaf. The runner re-invokes a component's Run
// until the component terminates itself, every connected input is closed
// and drained, or the network shuts down. A component whose Run loops
// internally is driven the same way; it sees cancellation through ctx.
// When a component finishes, its outputs close, which cascades downstream
// until the whole network is quiescent and Run returns.
//
// Failures are handled by policy:
//
//	PolicyIsolate   the failed component finishes, the rest keep running
//	PolicyFailFast  the first failure shuts the network down; Run returns *RunError
//
// Shutdown aborts every queue, so blocked sends and receives return
// errors.ErrNetworkTerminated, and cancels every run context.
//
// Example:
//
//	g := component.NewGraph("main")
//	limit := 5
//	gen := input.NewRandomNumberGenerator("gen", input.RNGConfig{Limit: &limit})
//	drop := output.NewDrop("drop")
//	_ = g.Add(gen, drop)
//	_ = g.Connect(gen.Out("OUT"), drop.In("IN"))
//
//	n, err := network.New(g, network.WithPolicy(network.PolicyFailFast))
//	if err != nil {
//		return err
//	}
//	return n.Run(ctx)
package network

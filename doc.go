// Package pflow is a flow-based programming runtime: networks of
// independently running components that exchange packets over bounded,
// typed ports.
//
// # Architecture
//
// A network is built from a small set of layers, each in its own package:
//
//	packet      single-owner value envelope with provenance
//	component   ports, component base, graphs, registry, event sinks
//	network     scheduler: one goroutine per leaf component, quiescence, shutdown
//	config      JSON/YAML network definitions, schema and semantic validation
//	input       source components (random numbers, file tail, UDP, WebSocket)
//	processor   transforming components (repeat, sleep, split, filter, concat, ...)
//	output      sink components (drop, console, file, HTTP, NATS, WebSocket)
//
// Supporting packages follow the same conventions: errors (classified error
// wrapping), metric (Prometheus registry and HTTP server), health (component
// health monitor), natsclient (NATS connection lifecycle), and pkg/buffer,
// pkg/worker and pkg/retry for queues, worker pools and backoff.
//
// # Components
//
// A component embeds *component.Base, declares its ports in Initialize and
// does its work in Run. The network calls Run again every time it returns
// nil, until the component terminates itself or all of its inputs are
// exhausted:
//
//	type Doubler struct {
//		*component.Base
//		in  *component.InputPort
//		out *component.OutputPort
//	}
//
//	func (d *Doubler) Initialize() error {
//		d.in = d.DeclareInput("IN", component.WithTypes(component.TypeInt))
//		d.out = d.DeclareOutput("OUT", component.WithTypes(component.TypeInt))
//		return nil
//	}
//
//	func (d *Doubler) Run(ctx context.Context) error {
//		v, err := d.in.Receive(ctx)
//		if err != nil {
//			return err
//		}
//		return d.out.Send(ctx, v.(int)*2)
//	}
//
// Closed ports, network shutdown and context cancellation surface as errors
// that the network treats as clean termination.
//
// # Running a network
//
// Networks are wired in code with component.Graph or loaded from a file:
//
//	pflow validate configs/numbers.yaml
//	pflow run configs/numbers.yaml --metrics --log-format json
//
// See cmd/pflow for the full command set.
package pflow

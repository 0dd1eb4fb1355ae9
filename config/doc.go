// Package config loads and validates pflow network files and builds the
// component graph they describe.
//
// A network file is JSON or YAML, chosen by extension. Both are checked
// against the same JSON Schema, then semantically: component names, port
// references of the form "component.PORT" or "component.PORT[i]", policy,
// log settings and durations.
//
//	version: "1"
//	network:
//	  name: numbers
//	  policy: isolate
//	components:
//	  rng:  {type: RandomNumberGenerator}
//	  sink: {type: Drop}
//	connections:
//	  - {from: rng.OUT, to: sink.IN}
//	initials:
//	  - {value: 5, to: rng.LIMIT}
//
// # Basic Usage
//
//	cfg, err := config.Load("numbers.yaml")
//	if err != nil {
//		return err
//	}
//	registry, err := componentregistry.New()
//	if err != nil {
//		return err
//	}
//	graph, err := config.Build(cfg, registry, component.Dependencies{Logger: logger})
//	if err != nil {
//		return err
//	}
//	opts, err := config.NetworkOptions(cfg)
//	if err != nil {
//		return err
//	}
//	net, err := network.New(graph, opts...)
//
// # Environment Overrides
//
// PFLOW_NETWORK_POLICY, PFLOW_LOG_LEVEL, PFLOW_LOG_FORMAT and PFLOW_NATS_URL
// replace the matching file settings. Overrides are applied after schema
// validation and before semantic validation.
//
// Component "config" maps are free-form here; each factory decodes its own
// map with component.DecodeConfig.
package config

package config

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/network"
)

// Build instantiates every component through registry, connects them and
// attaches the initial packets. The returned graph is ready for network.New.
func Build(cfg *Config, registry *component.Registry, deps component.Dependencies) (*component.Graph, error) {
	if cfg == nil {
		return nil, errors.WrapFatal(fmt.Errorf("config cannot be nil"), "Config", "Build", "config check")
	}
	if registry == nil {
		return nil, errors.WrapFatal(fmt.Errorf("registry cannot be nil"), "Config", "Build", "registry check")
	}

	name := cfg.Network.Name
	if name == "" {
		name = DefaultNetworkName
	}
	g := component.NewGraph(name)

	// Sorted so that creation order, and therefore errors, are stable
	for _, compName := range slices.Sorted(maps.Keys(cfg.Components)) {
		def := cfg.Components[compName]
		node, err := registry.Create(def.Type, compName, def.Config, deps)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build", fmt.Sprintf("create component %q", compName))
		}
		if err := g.Add(node); err != nil {
			return nil, err
		}
	}

	for i, conn := range cfg.Connections {
		from, fromRef, err := resolve(g, conn.From)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build", fmt.Sprintf("connections[%d].from", i))
		}
		to, toRef, err := resolve(g, conn.To)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build", fmt.Sprintf("connections[%d].to", i))
		}

		var opts []component.ConnectOption
		if conn.Capacity > 0 {
			opts = append(opts, component.Buffered(conn.Capacity))
		}
		if err := g.Connect(from.Out(fromRef.Port), to.In(toRef.Port), opts...); err != nil {
			return nil, err
		}
	}

	for i, iip := range cfg.Initials {
		target, ref, err := resolve(g, iip.To)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build", fmt.Sprintf("initials[%d].to", i))
		}
		if err := g.Initial(normalize(iip.Value), target.In(ref.Port)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// NetworkOptions converts the network section into scheduler options
func NetworkOptions(cfg *Config) ([]network.Option, error) {
	policy, err := network.ParsePolicy(cfg.Network.Policy)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "NetworkOptions", "parse shutdown timeout")
	}

	opts := []network.Option{network.WithPolicy(policy)}
	if cfg.Network.Name != "" {
		opts = append(opts, network.WithName(cfg.Network.Name))
	}
	if cfg.Network.Capacity > 0 {
		opts = append(opts, network.WithCapacity(cfg.Network.Capacity))
	}
	if timeout > 0 {
		opts = append(opts, network.WithShutdownTimeout(timeout))
	}
	return opts, nil
}

// resolve finds the component a port reference points at
func resolve(g *component.Graph, ref string) (*component.Base, PortRef, error) {
	r, err := ParsePortRef(ref)
	if err != nil {
		return nil, PortRef{}, err
	}
	node, ok := g.Child(r.Component)
	if !ok {
		return nil, PortRef{}, errors.WrapInvalid(
			fmt.Errorf("%w: unknown component %q in %q", errors.ErrInvalidConfig, r.Component, ref),
			"Config", "resolve", "component lookup")
	}
	return node.Core(), r, nil
}

// normalize turns whole JSON numbers into ints so that initial packets
// satisfy int-typed ports
func normalize(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return v
	}
	return int(f)
}

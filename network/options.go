package network

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/health"
	"github.com/wildparky/pflow/metric"
)

// Policy decides what a component failure does to the rest of the network
type Policy int

const (
	// PolicyIsolate terminates the failed component only; its outputs close
	// and the closure cascades downstream while other branches keep running.
	PolicyIsolate Policy = iota
	// PolicyFailFast shuts the whole network down on the first failure.
	PolicyFailFast
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case PolicyIsolate:
		return "isolate"
	case PolicyFailFast:
		return "fail-fast"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name. An empty name means PolicyIsolate.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "isolate":
		return PolicyIsolate, nil
	case "fail-fast", "failfast", "fail_fast":
		return PolicyFailFast, nil
	default:
		return PolicyIsolate, errors.WrapInvalid(
			fmt.Errorf("%w: unknown policy %q", errors.ErrInvalidConfig, name), "Network", "ParsePolicy", "policy lookup")
	}
}

// Option configures a Network
type Option func(*Network)

// WithName names the network in events, metrics and health reports.
// Defaults to the root graph's name.
func WithName(name string) Option {
	return func(n *Network) {
		n.name = name
	}
}

// WithCapacity sets the default queue capacity for connections that do not
// set their own
func WithCapacity(capacity int) Option {
	return func(n *Network) {
		if capacity > 0 {
			n.capacity = capacity
		}
	}
}

// WithPolicy sets the failure policy
func WithPolicy(policy Policy) Option {
	return func(n *Network) {
		n.policy = policy
	}
}

// WithEventSink sets where component events go. Defaults to a SlogSink over
// the network logger.
func WithEventSink(sink component.EventSink) Option {
	return func(n *Network) {
		n.sink = sink
	}
}

// WithLogger sets the network logger
func WithLogger(logger *slog.Logger) Option {
	return func(n *Network) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics for the network and its queues
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(n *Network) {
		n.registry = registry
	}
}

// WithHealth reports per-component health to monitor
func WithHealth(monitor *health.Monitor) Option {
	return func(n *Network) {
		n.health = monitor
	}
}

// WithShutdownTimeout bounds how long Stop waits for components after
// Shutdown
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(n *Network) {
		if timeout > 0 {
			n.shutdownTimeout = timeout
		}
	}
}

const defaultShutdownTimeout = 5 * time.Second

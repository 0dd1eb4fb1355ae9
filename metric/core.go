package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by pflow.
const Namespace = "pflow"

// Metrics contains the runtime-wide metrics shared by every network
type Metrics struct {
	ComponentState    *prometheus.GaugeVec
	ComponentRuns     *prometheus.CounterVec
	ComponentFailures *prometheus.CounterVec
	PacketsSent       *prometheus.CounterVec
	PacketsReceived   *prometheus.CounterVec
	HealthStatus      *prometheus.GaugeVec
	NetworkDuration   *prometheus.HistogramVec

	NATSConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "component",
				Name:      "state",
				Help:      "Component lifecycle state (0=created, 1=ready, 2=running, 3=suspended, 4=terminated, 5=failed)",
			},
			[]string{"network", "component"},
		),

		ComponentRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "component",
				Name:      "runs_total",
				Help:      "Total number of component body invocations",
			},
			[]string{"network", "component"},
		),

		ComponentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "component",
				Name:      "failures_total",
				Help:      "Total number of component failures",
			},
			[]string{"network", "component", "class"},
		),

		PacketsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "packets",
				Name:      "sent_total",
				Help:      "Total number of packets sent through output ports",
			},
			[]string{"network", "component"},
		),

		PacketsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "packets",
				Name:      "received_total",
				Help:      "Total number of packets received on input ports",
			},
			[]string{"network", "component"},
		),

		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Component health (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		NetworkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "network",
				Name:      "run_duration_seconds",
				Help:      "Wall time from network start to quiescence or shutdown",
				Buckets:   []float64{0.01, 0.1, 1, 10, 60, 600},
			},
			[]string{"network", "outcome"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ComponentState,
		c.ComponentRuns,
		c.ComponentFailures,
		c.PacketsSent,
		c.PacketsReceived,
		c.HealthStatus,
		c.NetworkDuration,
		c.NATSConnected,
	}
}

// RecordComponentState updates the lifecycle state gauge
func (c *Metrics) RecordComponentState(network, component string, state int) {
	c.ComponentState.WithLabelValues(network, component).Set(float64(state))
}

// RecordComponentRun increments the body invocation counter
func (c *Metrics) RecordComponentRun(network, component string) {
	c.ComponentRuns.WithLabelValues(network, component).Inc()
}

// RecordComponentFailure increments the failure counter
func (c *Metrics) RecordComponentFailure(network, component, class string) {
	c.ComponentFailures.WithLabelValues(network, component, class).Inc()
}

// RecordPacketSent increments the sent packet counter
func (c *Metrics) RecordPacketSent(network, component string) {
	c.PacketsSent.WithLabelValues(network, component).Inc()
}

// RecordPacketReceived increments the received packet counter
func (c *Metrics) RecordPacketReceived(network, component string) {
	c.PacketsReceived.WithLabelValues(network, component).Inc()
}

// RecordHealthStatus updates health status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthStatus.WithLabelValues(component).Set(value)
}

// RecordNetworkDuration observes how long a network ran
func (c *Metrics) RecordNetworkDuration(network, outcome string, d time.Duration) {
	c.NetworkDuration.WithLabelValues(network, outcome).Observe(d.Seconds())
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

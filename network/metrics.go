package network

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/metric"
)

// networkMetrics holds the per-network Prometheus metrics. Per-component
// counters live in metric.Metrics and are shared by every network.
type networkMetrics struct {
	runs        *prometheus.CounterVec // By outcome (quiescent/shutdown/failed)
	components  *prometheus.GaugeVec   // Components by lifecycle state
	queues      prometheus.Gauge       // Number of wired queues
	activeLeafs prometheus.Gauge       // Components whose body has not finished
}

// newNetworkMetrics creates and registers the metrics of one network. The
// network name is a constant label so several networks can share a registry.
func newNetworkMetrics(registry *metric.MetricsRegistry, network string) (*networkMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	labels := prometheus.Labels{"network": network}
	m := &networkMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "network",
			Name:        "runs_total",
			Help:        "Total number of network runs by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		components: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "network",
			Name:        "components",
			Help:        "Number of components in each lifecycle state",
			ConstLabels: labels,
		}, []string{"state"}),

		queues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "network",
			Name:        "queues",
			Help:        "Number of connection queues wired",
			ConstLabels: labels,
		}),

		activeLeafs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "network",
			Name:        "active_components",
			Help:        "Components whose body has not finished",
			ConstLabels: labels,
		}),
	}

	if err := registry.RegisterCounterVec(network, "network_runs", m.runs); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec(network, "network_components", m.components); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(network, "network_queues", m.queues); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(network, "network_active_components", m.activeLeafs); err != nil {
		return nil, err
	}

	return m, nil
}

// recordStates recomputes the components-by-state gauge
func (m *networkMetrics) recordStates(states map[string]component.State) {
	if m == nil {
		return
	}
	counts := make(map[component.State]int)
	for _, s := range states {
		counts[s]++
	}
	for s := component.StateCreated; s <= component.StateFailed; s++ {
		m.components.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func (m *networkMetrics) recordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *networkMetrics) setQueues(n int) {
	if m == nil {
		return
	}
	m.queues.Set(float64(n))
}

func (m *networkMetrics) componentStarted() {
	if m == nil {
		return
	}
	m.activeLeafs.Inc()
}

func (m *networkMetrics) componentFinished() {
	if m == nil {
		return
	}
	m.activeLeafs.Dec()
}

package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildparky/pflow/metric"
)

// queueMetrics holds Prometheus metrics for queue operations.
type queueMetrics struct {
	puts     prometheus.Counter
	takes    prometheus.Counter
	releases prometheus.Counter
	blocks   prometheus.Counter
	drops    prometheus.Counter

	size        prometheus.Gauge
	inFlight    prometheus.Gauge
	utilization prometheus.Gauge
}

func newQueueMetrics(registry *metric.MetricsRegistry, prefix string) (*queueMetrics, error) {
	labels := prometheus.Labels{"queue": prefix}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "queue",
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "queue",
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		})
	}

	m := &queueMetrics{
		puts:        counter("puts_total", "Total number of packets enqueued"),
		takes:       counter("takes_total", "Total number of packets dequeued"),
		releases:    counter("releases_total", "Total number of credits returned by consumers"),
		blocks:      counter("blocked_puts_total", "Total number of sends that waited for credit"),
		drops:       counter("drops_total", "Total number of packets dropped after the consumer terminated"),
		size:        gauge("size", "Current number of queued packets"),
		inFlight:    gauge("in_flight", "Queued packets plus packets taken but not yet consumed"),
		utilization: gauge("utilization", "In-flight packets as a fraction of capacity (0.0 to 1.0)"),
	}

	for name, c := range map[string]prometheus.Counter{
		"queue_puts":     m.puts,
		"queue_takes":    m.takes,
		"queue_releases": m.releases,
		"queue_blocks":   m.blocks,
		"queue_drops":    m.drops,
	} {
		if err := registry.RegisterCounter(prefix, name, c); err != nil {
			return nil, err
		}
	}
	for name, g := range map[string]prometheus.Gauge{
		"queue_size":        m.size,
		"queue_in_flight":   m.inFlight,
		"queue_utilization": m.utilization,
	} {
		if err := registry.RegisterGauge(prefix, name, g); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *queueMetrics) recordPut(size, inFlight, capacity int) {
	m.puts.Inc()
	m.updateSize(size, inFlight, capacity)
}

func (m *queueMetrics) recordTake(size int) {
	m.takes.Inc()
	m.size.Set(float64(size))
}

func (m *queueMetrics) recordRelease(inFlight, capacity int) {
	m.releases.Inc()
	m.inFlight.Set(float64(inFlight))
	m.utilization.Set(float64(inFlight) / float64(capacity))
}

func (m *queueMetrics) recordBlock() {
	m.blocks.Inc()
}

func (m *queueMetrics) recordDrop() {
	m.drops.Inc()
}

func (m *queueMetrics) updateSize(size, inFlight, capacity int) {
	m.size.Set(float64(size))
	m.inFlight.Set(float64(inFlight))
	m.utilization.Set(float64(inFlight) / float64(capacity))
}

// Package metric provides Prometheus-based metrics collection and the HTTP
// server that exposes them for pflow networks.
//
// The package has three layers:
//
//  1. Core metrics: runtime-wide collectors registered automatically (Metrics)
//  2. Subsystem registry: keyed registration for subsystem metrics such as
//     queue and worker pool statistics (MetricsRegistrar)
//  3. HTTP server: /metrics in Prometheus format next to a /health endpoint
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, monitor)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(5 * time.Second)
//
//	core := registry.CoreMetrics()
//	core.RecordComponentRun("wordcount", "split")
//
// # Subsystem metrics
//
// Subsystems register their own collectors under a "service.metric" key.
// Registering the same key twice fails with an invalid-class error, which
// keeps two queues from silently sharing a counter:
//
//	if err := registry.RegisterCounter("queue.split.IN", "puts", puts); err != nil {
//	    return err
//	}
package metric

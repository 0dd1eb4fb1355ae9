// Package health tracks per-component health for a running network.
//
// The network updates a Monitor as components change state: a running or
// cleanly terminated component is healthy, a failed one is unhealthy with a
// sanitized error message. The Monitor implements http.Handler and is served
// at /health next to the Prometheus endpoint:
//
//	monitor := health.NewMonitor("wordcount").WithMetrics(registry.CoreMetrics())
//	server := metric.NewServer(9090, "/metrics", registry, monitor)
//
// Aggregation rules: any unhealthy component makes the network unhealthy;
// otherwise any degraded component makes it degraded.
package health

package component

import (
	"io"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/wildparky/pflow/metric"
)

// Dependencies provides the external dependencies component factories may
// need. Every field may be nil.
type Dependencies struct {
	Logger          *slog.Logger            // Structured logger (defaults to slog.Default())
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus
	NATSConn        *nats.Conn              // NATS connection for publishing components
	Stdout          io.Writer               // Console output (defaults to os.Stdout)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// GetStdout returns the console writer
func (d *Dependencies) GetStdout() io.Writer {
	if d.Stdout != nil {
		return d.Stdout
	}
	return os.Stdout
}

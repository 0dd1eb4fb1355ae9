package config

import (
	"encoding/json"
	"time"
)

// Defaults applied to fields a network file leaves empty
const (
	DefaultNetworkName = "main"
	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Config describes one flow network: its components, the connections between
// their ports, the initial information packets, and the runtime settings
// around it
type Config struct {
	Version     string                     `json:"version,omitempty" yaml:"version,omitempty"`
	Network     NetworkConfig              `json:"network" yaml:"network"`
	Components  map[string]ComponentConfig `json:"components" yaml:"components"`
	Connections []ConnectionConfig         `json:"connections,omitempty" yaml:"connections,omitempty"`
	Initials    []InitialConfig            `json:"initials,omitempty" yaml:"initials,omitempty"`
	Logging     LoggingConfig              `json:"logging" yaml:"logging"`
	Metrics     MetricsConfig              `json:"metrics" yaml:"metrics"`
	NATS        NATSConfig                 `json:"nats" yaml:"nats"`
}

// NetworkConfig holds scheduler settings
type NetworkConfig struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"` // Default queue capacity (0 = runtime default)
	Policy   string `json:"policy,omitempty" yaml:"policy,omitempty"`     // isolate | fail-fast
	// ShutdownTimeout is a Go duration string ("5s"); empty means the runtime default
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

// ComponentConfig is one component instance. Config is decoded by the
// factory registered under Type.
type ComponentConfig struct {
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConnectionConfig connects an output to an input, written as
// "component.PORT" or "component.PORT[i]"
type ConnectionConfig struct {
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// InitialConfig delivers Value once to an input port, which then closes
type InitialConfig struct {
	Value any    `json:"value" yaml:"value"`
	To    string `json:"to" yaml:"to"`
}

// LoggingConfig selects the CLI log handler
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug | info | warn | error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // text | json
}

// MetricsConfig enables the Prometheus and health endpoints
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// NATSConfig defines the optional NATS connection used for event
// publishing and NATS output components
type NATSConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ApplyDefaults fills empty settings with their defaults
func (c *Config) ApplyDefaults() {
	if c.Network.Name == "" {
		c.Network.Name = DefaultNetworkName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// ShutdownTimeout returns the parsed network shutdown timeout, zero when unset
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	if c.Network.ShutdownTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Network.ShutdownTimeout)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

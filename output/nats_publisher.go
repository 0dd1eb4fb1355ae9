package output

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// NATSConfig holds configuration for the NATS publisher
type NATSConfig struct {
	// Subject to publish on; defaults to "pflow.output.{name}"
	Subject string `mapstructure:"subject"`
	// Raw publishes strings and byte slices as is instead of JSON
	Raw bool `mapstructure:"raw"`
}

// Validate checks the configuration for errors
func (c *NATSConfig) Validate() error {
	if strings.ContainsAny(c.Subject, " \t\r\n") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "NATSConfig", "Validate", "subject contains whitespace")
	}
	if strings.HasSuffix(c.Subject, ".") || strings.HasPrefix(c.Subject, ".") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "NATSConfig", "Validate", "subject has an empty token")
	}
	return nil
}

// NATSPublisher publishes every value it receives to a NATS subject
type NATSPublisher struct {
	*component.Base
	in      *component.InputPort
	pub     component.Publisher
	subject string
	raw     bool
}

// NewNATSPublisher creates a publisher. pub is usually a *nats.Conn.
func NewNATSPublisher(name, subject string, pub component.Publisher) *NATSPublisher {
	if subject == "" {
		subject = "pflow.output." + name
	}
	return &NATSPublisher{Base: component.NewBase(name), pub: pub, subject: subject}
}

// Subject returns the subject values are published on
func (p *NATSPublisher) Subject() string { return p.subject }

// Initialize declares IN
func (p *NATSPublisher) Initialize() error {
	p.in = p.DeclareInput("IN", component.WithDescription("Values to publish"))
	return nil
}

// Run publishes one value
func (p *NATSPublisher) Run(ctx context.Context) error {
	if p.pub == nil {
		return errors.WrapFatal(fmt.Errorf("no NATS connection"), "NATSPublisher", "Run", "connection check")
	}

	v, err := p.in.Receive(ctx)
	if err != nil {
		return err
	}

	data, err := p.encode(v)
	if err != nil {
		return errors.WrapInvalid(err, "NATSPublisher", "Run", "encode value")
	}
	if err := p.pub.Publish(p.subject, data); err != nil {
		return errors.WrapTransient(err, "NATSPublisher", "Run", "publish")
	}
	p.Log().Debug("published", "subject", p.subject, "bytes", len(data))
	return nil
}

func (p *NATSPublisher) encode(v any) ([]byte, error) {
	if p.raw {
		switch t := v.(type) {
		case string:
			return []byte(t), nil
		case []byte:
			return t, nil
		}
	}
	return json.Marshal(v)
}

func newNATSPublisher(name string, cfg map[string]any, deps component.Dependencies) (component.Node, error) {
	var config NATSConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var pub component.Publisher
	if deps.NATSConn != nil {
		pub = deps.NATSConn
	}
	p := NewNATSPublisher(name, config.Subject, pub)
	p.raw = config.Raw
	return p, nil
}

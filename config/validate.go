package config

import (
	"fmt"
	"strings"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/network"
)

// PortRef addresses a port of a named component: "split.OUT[1]"
type PortRef struct {
	Component string
	Port      string // Port name with optional index, as accepted by Base.In and Base.Out
}

// String returns the reference in "component.PORT" form
func (r PortRef) String() string {
	return r.Component + "." + r.Port
}

// ParsePortRef parses "component.PORT" or "component.PORT[i]"
func ParsePortRef(ref string) (PortRef, error) {
	comp, port, ok := strings.Cut(ref, ".")
	if !ok || comp == "" || port == "" {
		return PortRef{}, errors.WrapInvalid(
			fmt.Errorf("%w: port reference %q must be component.PORT", errors.ErrUnknownPort, ref),
			"Config", "ParsePortRef", "syntax check")
	}
	if err := component.ValidateComponentName(comp); err != nil {
		return PortRef{}, fmt.Errorf("port reference %q: %w", ref, err)
	}
	if _, _, err := component.ParsePortName(port); err != nil {
		return PortRef{}, fmt.Errorf("port reference %q: %w", ref, err)
	}
	return PortRef{Component: comp, Port: port}, nil
}

// Validate checks the semantics the schema cannot express: names, port
// references to declared components, policy, levels and durations. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Components) == 0 {
		errs = append(errs, fmt.Errorf("at least one component is required"))
	}
	for name, comp := range c.Components {
		if err := component.ValidateComponentName(name); err != nil {
			errs = append(errs, fmt.Errorf("component %q: %w", name, err))
		}
		if comp.Type == "" {
			errs = append(errs, fmt.Errorf("component %q: type is required", name))
		}
	}

	if c.Network.Capacity < 0 {
		errs = append(errs, fmt.Errorf("network.capacity must be >= 0"))
	}
	if _, err := network.ParsePolicy(c.Network.Policy); err != nil {
		errs = append(errs, fmt.Errorf("network.policy: %w", err))
	}
	if d, err := c.ShutdownTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("network.shutdown_timeout: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("network.shutdown_timeout must be positive"))
	}

	for i, conn := range c.Connections {
		where := fmt.Sprintf("connections[%d]", i)
		errs = append(errs, c.checkRef(where+".from", conn.From)...)
		errs = append(errs, c.checkRef(where+".to", conn.To)...)
		if conn.Capacity < 0 {
			errs = append(errs, fmt.Errorf("%s.capacity must be >= 0", where))
		}
	}
	for i, iip := range c.Initials {
		errs = append(errs, c.checkRef(fmt.Sprintf("initials[%d].to", i), iip.To)...)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %w", errors.ErrInvalidConfig, errors.Join(errs...)),
		"Config", "Validate", "semantic validation")
}

func (c *Config) checkRef(where, ref string) []error {
	r, err := ParsePortRef(ref)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", where, err)}
	}
	if _, ok := c.Components[r.Component]; !ok {
		return []error{fmt.Errorf("%s: unknown component %q", where, r.Component)}
	}
	return nil
}

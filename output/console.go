package output

import (
	"context"
	"fmt"
	"io"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// ConsoleConfig holds configuration for the console line writer
type ConsoleConfig struct {
	// Prefix is written before every line
	Prefix string `mapstructure:"prefix"`
}

// ConsoleLineWriter writes every value it receives as one line
type ConsoleLineWriter struct {
	*component.Base
	in     *component.InputPort
	w      io.Writer
	prefix string
}

// NewConsoleLineWriter creates a writer printing to w
func NewConsoleLineWriter(name string, w io.Writer) *ConsoleLineWriter {
	return &ConsoleLineWriter{Base: component.NewBase(name), w: w}
}

// WithPrefix sets a prefix written before every line
func (c *ConsoleLineWriter) WithPrefix(prefix string) *ConsoleLineWriter {
	c.prefix = prefix
	return c
}

// Initialize declares IN
func (c *ConsoleLineWriter) Initialize() error {
	c.in = c.DeclareInput("IN", component.WithDescription("Values to print, one per line"))
	return nil
}

// Run prints one value
func (c *ConsoleLineWriter) Run(ctx context.Context) error {
	v, err := c.in.Receive(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.w, "%s%v\n", c.prefix, v); err != nil {
		return errors.WrapTransient(err, "ConsoleLineWriter", "Run", "write line")
	}
	return nil
}

func newConsoleLineWriter(name string, cfg map[string]any, deps component.Dependencies) (component.Node, error) {
	var config ConsoleConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	return NewConsoleLineWriter(name, deps.GetStdout()).WithPrefix(config.Prefix), nil
}

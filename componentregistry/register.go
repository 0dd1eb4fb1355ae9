// Package componentregistry registers every stock pflow component.
package componentregistry

import (
	"errors"

	"github.com/wildparky/pflow/component"
	pkgerrors "github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/input"
	"github.com/wildparky/pflow/output"
	"github.com/wildparky/pflow/processor"
)

// Register registers the stock components with the provided registry:
//
// Inputs:
//   - RandomNumberGenerator
//   - FileTailReader
//
// Processors:
//   - Repeat, Sleep, Split, RegexFilter, Concat, Multiply
//   - LogTap (graph)
//
// Outputs:
//   - Drop, ConsoleLineWriter, NATSPublisher
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := input.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "input component registration")
	}
	if err := processor.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "processor component registration")
	}
	if err := output.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "output component registration")
	}
	return nil
}

// New returns a registry with every stock component registered
func New() (*component.Registry, error) {
	registry := component.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

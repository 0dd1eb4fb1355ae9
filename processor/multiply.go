package processor

import (
	"context"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// Multiply reads one value from X and one from Y and sends int(X)*int(Y)
type Multiply struct {
	*component.Base
	x, y *component.InputPort
	out  *component.OutputPort
}

// NewMultiply creates a Multiply component
func NewMultiply(name string) *Multiply {
	return &Multiply{Base: component.NewBase(name)}
}

// Initialize declares X, Y and OUT
func (m *Multiply) Initialize() error {
	numeric := component.WithTypes(component.TypeInt, component.TypeFloat, component.TypeString)
	m.x = m.DeclareInput("X", numeric)
	m.y = m.DeclareInput("Y", numeric)
	m.out = m.DeclareOutput("OUT", component.WithTypes(component.TypeInt))
	return nil
}

// Run multiplies one pair
func (m *Multiply) Run(ctx context.Context) error {
	x, err := m.receiveInt(ctx, m.x)
	if err != nil {
		return err
	}
	y, err := m.receiveInt(ctx, m.y)
	if err != nil {
		return err
	}
	return m.out.Send(ctx, x*y)
}

func (m *Multiply) receiveInt(ctx context.Context, in *component.InputPort) (int, error) {
	v, err := in.Receive(ctx)
	if err != nil {
		return 0, err
	}
	n, err := toInt(v)
	if err != nil {
		return 0, errors.WrapInvalid(err, m.Path(), "Run", "convert "+in.Name())
	}
	return n, nil
}

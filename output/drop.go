package output

import (
	"context"

	"github.com/wildparky/pflow/component"
)

// Drop discards every packet it receives
type Drop struct {
	*component.Base
	in *component.InputPort
}

// NewDrop creates a Drop component
func NewDrop(name string) *Drop {
	return &Drop{Base: component.NewBase(name)}
}

// Initialize declares IN
func (d *Drop) Initialize() error {
	d.in = d.DeclareInput("IN", component.WithDescription("Packets to discard"))
	return nil
}

// Run receives one packet and discards it
func (d *Drop) Run(ctx context.Context) error {
	pkt, err := d.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	return d.Drop(pkt)
}

func newDrop(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	if err := component.DecodeConfig(cfg, &struct{}{}); err != nil {
		return nil, err
	}
	return NewDrop(name), nil
}

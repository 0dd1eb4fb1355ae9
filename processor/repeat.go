package processor

import (
	"context"

	"github.com/wildparky/pflow/component"
)

// Repeat forwards every packet from IN to OUT unchanged
type Repeat struct {
	*component.Base
	in  *component.InputPort
	out *component.OutputPort
}

// NewRepeat creates a Repeat component
func NewRepeat(name string) *Repeat {
	return &Repeat{Base: component.NewBase(name)}
}

// Initialize declares IN and OUT
func (r *Repeat) Initialize() error {
	r.in = r.DeclareInput("IN")
	r.out = r.DeclareOutput("OUT")
	return nil
}

// Run forwards one packet
func (r *Repeat) Run(ctx context.Context) error {
	pkt, err := r.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	return r.out.SendPacket(ctx, pkt)
}

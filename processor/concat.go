package processor

import (
	"context"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// ConcatWidth is the size of Concat's IN array
const ConcatWidth = 10

// Concat forwards everything from IN[0] until it closes, then everything
// from IN[1], and so on. Unconnected slots are skipped.
type Concat struct {
	*component.Base
	in   *component.ArrayInputPort
	out  *component.OutputPort
	slot int
}

// NewConcat creates a Concat component
func NewConcat(name string) *Concat {
	return &Concat{Base: component.NewBase(name)}
}

// Initialize declares IN[0..9] and OUT
func (c *Concat) Initialize() error {
	c.in = c.DeclareInputArray("IN", ConcatWidth, component.Optional())
	c.out = c.DeclareOutput("OUT")
	return nil
}

// Run forwards one packet from the current slot
func (c *Concat) Run(ctx context.Context) error {
	ports := c.in.Ports()
	for c.slot < len(ports) {
		in := ports[c.slot]
		if !in.IsConnected() {
			c.slot++
			continue
		}

		pkt, err := in.ReceivePacket(ctx)
		if errors.Is(err, errors.ErrPortClosed) {
			c.slot++
			continue
		}
		if err != nil {
			return err
		}
		return c.out.SendPacket(ctx, pkt)
	}

	c.Terminate()
	return nil
}

package processor

import (
	"context"
	"time"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
)

// Sleep forwards every packet from IN to OUT after waiting DELAY seconds.
// DELAY is read once, before the first packet.
type Sleep struct {
	*component.Base
	in       *component.InputPort
	delayIn  *component.InputPort
	out      *component.OutputPort
	delay    time.Duration
	hasDelay bool
}

// NewSleep creates a Sleep component
func NewSleep(name string) *Sleep {
	return &Sleep{Base: component.NewBase(name)}
}

// WithDelay sets the delay used while the DELAY port is unconnected
func (s *Sleep) WithDelay(d time.Duration) *Sleep {
	s.delay = d
	return s
}

// Initialize declares IN, DELAY and OUT
func (s *Sleep) Initialize() error {
	s.in = s.DeclareInput("IN")
	s.delayIn = s.DeclareInput("DELAY",
		component.WithTypes(component.TypeInt, component.TypeFloat, component.TypeString),
		component.Optional(),
		component.WithDescription("Seconds to wait before forwarding each packet"))
	s.out = s.DeclareOutput("OUT")
	return nil
}

// Run forwards one packet
func (s *Sleep) Run(ctx context.Context) error {
	if !s.hasDelay {
		if err := s.readDelay(ctx); err != nil {
			return err
		}
	}

	pkt, err := s.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}
	if err := s.Suspend(ctx, s.delay); err != nil {
		return err
	}
	return s.out.SendPacket(ctx, pkt)
}

func (s *Sleep) readDelay(ctx context.Context) error {
	v, err := s.delayIn.Receive(ctx)
	if err != nil && !errors.Is(err, errors.ErrPortClosed) {
		return err
	}
	if v != nil {
		if s.delay, err = toSeconds(v); err != nil {
			return errors.WrapInvalid(err, s.Path(), "Run", "read DELAY")
		}
	}
	s.hasDelay = true

	if s.delay == 0 {
		s.Log().Warn("Using a Sleep component with 0 DELAY is the same as using Repeat")
	}
	return nil
}

package processor

import (
	"context"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/packet"
)

// SplitWidth is the size of Split's OUT array
const SplitWidth = 10

// Split copies every packet from IN to each connected OUT slot. Every copy
// is an independently owned packet.
type Split struct {
	*component.Base
	in     *component.InputPort
	out    *component.ArrayOutputPort
	closed map[*component.OutputPort]bool
}

// NewSplit creates a Split component
func NewSplit(name string) *Split {
	return &Split{Base: component.NewBase(name), closed: make(map[*component.OutputPort]bool)}
}

// Initialize declares IN and OUT[0..9]
func (s *Split) Initialize() error {
	s.in = s.DeclareInput("IN")
	s.out = s.DeclareOutputArray("OUT", SplitWidth, component.Optional())
	return nil
}

// Run copies one packet to every open slot. A slot whose receiver has
// terminated is skipped from then on; once every slot is closed Split
// terminates.
func (s *Split) Run(ctx context.Context) error {
	pkt, err := s.in.ReceivePacket(ctx)
	if err != nil {
		return err
	}

	var targets []*component.OutputPort
	for _, out := range s.out.Connected() {
		if !s.closed[out] {
			targets = append(targets, out)
		}
	}

	copies := make([]*packet.Packet, 0, len(targets))
	for range targets {
		c, err := pkt.Clone(s.Path())
		if err != nil {
			return err
		}
		copies = append(copies, c)
	}
	if err := s.Drop(pkt); err != nil {
		return err
	}

	for i, out := range targets {
		err := out.SendPacket(ctx, copies[i])
		if err == nil {
			continue
		}
		if errors.Is(err, errors.ErrPortClosed) {
			s.closed[out] = true
			continue
		}
		for _, c := range copies[i+1:] {
			_ = c.Discard()
		}
		return err
	}

	if len(targets) > 0 && len(s.out.Connected()) == len(s.closed) {
		s.Terminate()
	}
	return nil
}

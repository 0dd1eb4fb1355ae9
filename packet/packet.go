// Package packet defines the value envelope that travels between components.
//
// A Packet is owned by exactly one holder at a time (a component or the
// input port it is queued on). Ownership moves with Transfer; a discarded
// packet can never be read or sent again.
package packet

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wildparky/pflow/errors"
)

// Packet wraps a value with provenance and ownership.
type Packet struct {
	mu        sync.Mutex
	id        string
	value     any
	creator   string
	owner     string
	discarded bool
	release   func()
}

// New creates a packet holding value, created and owned by owner.
func New(value any, owner string) *Packet {
	return &Packet{
		id:      uuid.NewString(),
		value:   value,
		creator: owner,
		owner:   owner,
	}
}

// ID returns the packet's unique identifier.
func (p *Packet) ID() string {
	return p.id
}

// Creator returns the holder that created the packet.
func (p *Packet) Creator() string {
	return p.creator
}

// Owner returns the current holder.
func (p *Packet) Owner() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner
}

// Value returns the wrapped value.
func (p *Packet) Value() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.discarded {
		return nil, errors.WrapInvalid(errors.ErrDiscardedPacket, "Packet", "Value", "read "+p.id)
	}
	return p.value, nil
}

// IsDiscarded reports whether Discard has been called.
func (p *Packet) IsDiscarded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discarded
}

// Discard marks the packet unusable and returns any queue credit it holds.
func (p *Packet) Discard() error {
	p.mu.Lock()
	if p.discarded {
		p.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDiscarded, "Packet", "Discard", "discard "+p.id)
	}
	p.discarded = true
	p.value = nil
	release := p.release
	p.release = nil
	p.mu.Unlock()

	if release != nil {
		release()
	}
	return nil
}

// Transfer hands ownership from one holder to another.
func (p *Packet) Transfer(from, to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.discarded {
		return errors.WrapInvalid(errors.ErrDiscardedPacket, "Packet", "Transfer", "transfer "+p.id)
	}
	if p.owner != from {
		return errors.WrapInvalid(
			fmt.Errorf("%w: held by %q, not %q", errors.ErrNotOwner, p.owner, from),
			"Packet", "Transfer", "ownership check")
	}
	p.owner = to
	return nil
}

// Clone returns an independently owned packet carrying the same value.
// Byte slices are copied; other values are shared and must be treated as
// immutable by receivers.
func (p *Packet) Clone(owner string) (*Packet, error) {
	v, err := p.Value()
	if err != nil {
		return nil, err
	}
	if b, ok := v.([]byte); ok {
		v = append([]byte(nil), b...)
	}
	return New(v, owner), nil
}

// Hold attaches a credit release callback. The queue a packet is taken from
// uses it to learn when the packet has been consumed. A previous callback
// that has not yet run is released first.
func (p *Packet) Hold(release func()) {
	p.mu.Lock()
	prev := p.release
	p.release = release
	p.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Release runs the pending credit callback, if any. It is idempotent.
func (p *Packet) Release() {
	p.mu.Lock()
	release := p.release
	p.release = nil
	p.mu.Unlock()

	if release != nil {
		release()
	}
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discarded {
		return fmt.Sprintf("Packet(%s, discarded)", p.id)
	}
	return fmt.Sprintf("Packet(%s, %v, owner=%s)", p.id, p.value, p.owner)
}

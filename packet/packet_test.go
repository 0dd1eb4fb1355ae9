package packet

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/errors"
)

// TestNew tests packet construction and provenance
func TestNew(t *testing.T) {
	p := New(42, "gen")

	assert.NotEmpty(t, p.ID())
	assert.Equal(t, "gen", p.Creator())
	assert.Equal(t, "gen", p.Owner())
	assert.False(t, p.IsDiscarded())

	v, err := p.Value()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	assert.NotEqual(t, p.ID(), New(42, "gen").ID())
}

// TestDiscard tests discard semantics
func TestDiscard(t *testing.T) {
	t.Run("value after discard fails", func(t *testing.T) {
		p := New("x", "a")
		require.NoError(t, p.Discard())

		for i := 0; i < 3; i++ {
			_, err := p.Value()
			assert.ErrorIs(t, err, errors.ErrDiscardedPacket)
		}
		assert.True(t, p.IsDiscarded())
	})

	t.Run("second discard fails", func(t *testing.T) {
		p := New("x", "a")
		require.NoError(t, p.Discard())
		assert.ErrorIs(t, p.Discard(), errors.ErrAlreadyDiscarded)
	})

	t.Run("discard releases credit once", func(t *testing.T) {
		var released atomic.Int32
		p := New("x", "a")
		p.Hold(func() { released.Add(1) })

		require.NoError(t, p.Discard())
		_ = p.Discard()
		p.Release()
		assert.Equal(t, int32(1), released.Load())
	})
}

// TestTransfer tests ownership handover
func TestTransfer(t *testing.T) {
	p := New(1, "a")

	require.NoError(t, p.Transfer("a", "b.IN"))
	assert.Equal(t, "b.IN", p.Owner())
	assert.Equal(t, "a", p.Creator())

	err := p.Transfer("a", "c")
	assert.ErrorIs(t, err, errors.ErrNotOwner)
	assert.Equal(t, "b.IN", p.Owner())

	require.NoError(t, p.Discard())
	assert.ErrorIs(t, p.Transfer("b.IN", "c"), errors.ErrDiscardedPacket)
}

// TestTransfer_Concurrent tests that exactly one of many racing transfers wins
func TestTransfer_Concurrent(t *testing.T) {
	p := New(1, "a")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Transfer("a", "b") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

// TestClone tests independent copies
func TestClone(t *testing.T) {
	t.Run("independent ownership", func(t *testing.T) {
		p := New("X", "split")
		c, err := p.Clone("split")
		require.NoError(t, err)

		assert.NotEqual(t, p.ID(), c.ID())
		require.NoError(t, c.Discard())

		v, err := p.Value()
		require.NoError(t, err)
		assert.Equal(t, "X", v)
	})

	t.Run("bytes are copied", func(t *testing.T) {
		b := []byte("abc")
		p := New(b, "split")
		c, err := p.Clone("split")
		require.NoError(t, err)

		b[0] = 'z'
		v, _ := c.Value()
		assert.Equal(t, []byte("abc"), v)
	})

	t.Run("discarded cannot clone", func(t *testing.T) {
		p := New("X", "split")
		require.NoError(t, p.Discard())
		_, err := p.Clone("split")
		assert.ErrorIs(t, err, errors.ErrDiscardedPacket)
	})
}

// TestHold tests credit callback replacement
func TestHold(t *testing.T) {
	var first, second atomic.Int32
	p := New(1, "a")

	p.Hold(func() { first.Add(1) })
	p.Hold(func() { second.Add(1) })
	assert.Equal(t, int32(1), first.Load(), "replaced callback runs immediately")
	assert.Equal(t, int32(0), second.Load())

	p.Release()
	p.Release()
	assert.Equal(t, int32(1), second.Load())
}

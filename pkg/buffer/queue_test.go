package buffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/metric"
)

func newTestQueue(t *testing.T, capacity int, opts ...Option[int]) *Queue[int] {
	t.Helper()
	q, err := NewQueue[int](capacity, opts...)
	require.NoError(t, err)
	return q
}

// TestQueue_FIFO tests ordering on a single queue
func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 5)

	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Put(ctx, i))
	}
	assert.Equal(t, 5, q.Len())

	for i := 1; i <= 5; i++ {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
		q.Release()
	}
	assert.Equal(t, 0, q.InFlight())
}

// TestQueue_DefaultCapacity tests the fallback capacity
func TestQueue_DefaultCapacity(t *testing.T) {
	q := newTestQueue(t, 0)
	assert.Equal(t, DefaultCapacity, q.Capacity())
}

// TestQueue_Backpressure tests that credit is only returned by Release
func TestQueue_Backpressure(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)

	require.NoError(t, q.Put(ctx, 1))
	_, err := q.Take(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- q.Put(ctx, 2)
	}()

	select {
	case <-done:
		t.Fatal("put must block while the taken item is unreleased")
	case <-time.After(50 * time.Millisecond):
	}

	q.Release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("put did not unblock after release")
	}
	assert.Equal(t, int64(1), q.Stats().Blocks())
}

// TestQueue_CloseWrite tests drain then closed semantics
func TestQueue_CloseWrite(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 3)

	require.NoError(t, q.Put(ctx, 1))
	q.CloseWrite()
	q.CloseWrite()

	assert.False(t, q.Exhausted())
	v, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.True(t, q.Exhausted())
	_, err = q.Take(ctx)
	assert.ErrorIs(t, err, errors.ErrPortClosed)

	assert.ErrorIs(t, q.Put(ctx, 2), errors.ErrPortClosed)
}

// TestQueue_CloseWriteWakesTaker tests that a blocked Take observes closure
func TestQueue_CloseWriteWakesTaker(t *testing.T) {
	q := newTestQueue(t, 1)

	done := make(chan error, 1)
	go func() {
		_, err := q.Take(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.CloseWrite()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("take did not unblock")
	}
}

// TestQueue_Reject tests consumer-side closure
func TestQueue_Reject(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var dropped []int
	q := newTestQueue(t, 1, WithDropCallback(func(v int) {
		mu.Lock()
		dropped = append(dropped, v)
		mu.Unlock()
	}))

	require.NoError(t, q.Put(ctx, 7))

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Put(ctx, 8)
	}()
	time.Sleep(20 * time.Millisecond)

	q.Reject()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, errors.ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked put did not observe rejection")
	}

	mu.Lock()
	assert.Equal(t, []int{7}, dropped)
	mu.Unlock()
	assert.Equal(t, 0, q.InFlight())
	assert.Equal(t, int64(1), q.Stats().Drops())
}

// TestQueue_Abort tests that shutdown unblocks both sides
func TestQueue_Abort(t *testing.T) {
	ctx := context.Background()
	full := newTestQueue(t, 1)
	empty := newTestQueue(t, 1)
	require.NoError(t, full.Put(ctx, 1))

	errs := make(chan error, 2)
	go func() { errs <- full.Put(ctx, 2) }()
	go func() {
		_, err := empty.Take(ctx)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	full.Abort()
	empty.Abort()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, errors.ErrNetworkTerminated)
		case <-time.After(time.Second):
			t.Fatal("abort did not unblock")
		}
	}

	// Queued items are not delivered after abort
	_, err := full.Take(ctx)
	assert.ErrorIs(t, err, errors.ErrNetworkTerminated)
}

// TestQueue_ContextCause tests that cancellation reports its cause
func TestQueue_ContextCause(t *testing.T) {
	q := newTestQueue(t, 1)

	ctx, cancel := context.WithCancelCause(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Take(ctx)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel(errors.ErrComponentTerminated)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrComponentTerminated)
	case <-time.After(time.Second):
		t.Fatal("take did not observe cancellation")
	}
}

// TestQueue_StrayRelease tests that unmatched releases do not add capacity
func TestQueue_StrayRelease(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)

	q.Release()
	require.NoError(t, q.Put(ctx, 1))
	q.Release()
	assert.Equal(t, 1, q.InFlight())

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Put(tctx, 2), context.DeadlineExceeded)
}

// TestQueue_Metrics tests Prometheus export
func TestQueue_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	q, err := NewQueue[int](2, WithMetrics[int](registry, "queue.test.IN"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, q.Put(ctx, 1))
	require.NoError(t, q.Put(ctx, 2))
	_, err = q.Take(ctx)
	require.NoError(t, err)
	q.Release()

	assert.Equal(t, 2.0, testutil.ToFloat64(q.metrics.puts))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.takes))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.releases))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.inFlight))
	assert.Equal(t, 0.5, testutil.ToFloat64(q.metrics.utilization))

	_, err = NewQueue[int](2, WithMetrics[int](registry, "queue.test.IN"))
	assert.Error(t, err, "duplicate prefix must fail registration")
}

// TestQueue_Concurrent tests many producers against one consumer
func TestQueue_Concurrent(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 4)

	const producers, perProducer = 4, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Put(ctx, i))
			}
		}()
	}
	go func() {
		wg.Wait()
		q.CloseWrite()
	}()

	count := 0
	for {
		_, err := q.Take(ctx)
		if errors.Is(err, errors.ErrPortClosed) {
			break
		}
		require.NoError(t, err)
		q.Release()
		count++
	}
	assert.Equal(t, producers*perProducer, count)
	assert.Equal(t, int64(producers*perProducer), q.Stats().Summary().Releases)
}

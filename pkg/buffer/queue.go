package buffer

import (
	"context"
	"sync"

	"github.com/wildparky/pflow/errors"
)

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 10

// Queue is a bounded FIFO with credit-based backpressure.
//
// Capacity bounds the number of items in flight: items waiting in the queue
// plus items taken but not yet released. Put blocks while the in-flight count
// is at capacity; every Take must be balanced by exactly one Release.
//
// A queue has one producer side and one consumer side:
//   - CloseWrite marks the producer finished; Take drains the remaining items
//     then fails with ErrPortClosed.
//   - Reject marks the consumer gone; queued items are dropped and Put fails
//     with ErrPortClosed.
//   - Abort fails every current and future Put and Take with
//     ErrNetworkTerminated.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int // next write position
	tail     int // next read position
	size     int
	capacity int
	inFlight int

	writeClosed bool
	rejected    bool
	aborted     bool

	notEmpty *sync.Cond
	notFull  *sync.Cond

	stats   *Statistics
	metrics *queueMetrics
	opts    *queueOptions[T]
}

// NewQueue creates a queue with the given capacity. A capacity below one
// uses DefaultCapacity. Returns an error if metrics registration fails.
func NewQueue[T any](capacity int, options ...Option[T]) (*Queue[T], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	opts := applyOptions(options...)

	var metrics *queueMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Queue", "NewQueue", "metrics registration")
		}
	}

	q := &Queue[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q, nil
}

// wakeOnDone broadcasts cond when ctx is cancelled. The lock is taken so a
// waiter cannot miss the wakeup between its ctx check and Wait.
func (q *Queue[T]) wakeOnDone(ctx context.Context, cond *sync.Cond) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		q.mu.Lock()
		cond.Broadcast()
		q.mu.Unlock()
	})
}

// Put appends item, blocking while the in-flight count is at capacity.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	stop := q.wakeOnDone(ctx, q.notFull)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	blocked := false
	for {
		switch {
		case q.aborted:
			return errors.ErrNetworkTerminated
		case q.rejected:
			return errors.ErrPortClosed
		case q.writeClosed:
			return errors.WrapInvalid(errors.ErrPortClosed, "Queue", "Put", "write after close")
		case ctx.Err() != nil:
			return context.Cause(ctx)
		}
		if q.inFlight < q.capacity {
			break
		}
		if !blocked {
			blocked = true
			q.stats.Block()
			if q.metrics != nil {
				q.metrics.recordBlock()
			}
		}
		q.notFull.Wait()
	}

	q.items[q.head] = item
	q.head = (q.head + 1) % q.capacity
	q.size++
	q.inFlight++

	q.stats.Put()
	q.stats.UpdateSize(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordPut(q.size, q.inFlight, q.capacity)
	}

	q.notEmpty.Signal()
	return nil
}

// Take removes the oldest item, blocking while the queue is empty and the
// producer is still open. The caller owns one unit of credit until Release.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var zero T

	stop := q.wakeOnDone(ctx, q.notEmpty)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.aborted {
			return zero, errors.ErrNetworkTerminated
		}
		if q.size > 0 {
			break
		}
		if q.writeClosed || q.rejected {
			return zero, errors.ErrPortClosed
		}
		if ctx.Err() != nil {
			return zero, context.Cause(ctx)
		}
		q.notEmpty.Wait()
	}

	item := q.items[q.tail]
	q.items[q.tail] = zero
	q.tail = (q.tail + 1) % q.capacity
	q.size--

	q.stats.Take()
	q.stats.UpdateSize(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordTake(q.size)
	}
	return item, nil
}

// Release returns one unit of credit taken by Take.
func (q *Queue[T]) Release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight <= q.size {
		// Nothing outstanding; a stray release must not inflate capacity.
		return
	}
	q.inFlight--

	q.stats.Release()
	if q.metrics != nil {
		q.metrics.recordRelease(q.inFlight, q.capacity)
	}
	q.notFull.Signal()
}

// CloseWrite marks the producer finished. Idempotent.
func (q *Queue[T]) CloseWrite() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.writeClosed {
		return
	}
	q.writeClosed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Reject marks the consumer gone: queued items are dropped through the drop
// callback and further puts fail with ErrPortClosed. Idempotent.
func (q *Queue[T]) Reject() {
	q.mu.Lock()

	if q.rejected {
		q.mu.Unlock()
		return
	}
	q.rejected = true

	var zero T
	dropped := make([]T, 0, q.size)
	for q.size > 0 {
		dropped = append(dropped, q.items[q.tail])
		q.items[q.tail] = zero
		q.tail = (q.tail + 1) % q.capacity
		q.size--
		q.inFlight--
		q.stats.Drop()
		if q.metrics != nil {
			q.metrics.recordDrop()
		}
	}
	q.stats.UpdateSize(0)
	if q.metrics != nil {
		q.metrics.updateSize(0, q.inFlight, q.capacity)
	}

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.mu.Unlock()

	// Callbacks run outside the lock to avoid deadlock
	if q.opts.dropCallback != nil {
		for _, item := range dropped {
			q.opts.dropCallback(item)
		}
	}
}

// Abort fails every blocked and future operation with ErrNetworkTerminated.
func (q *Queue[T]) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.aborted = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Exhausted reports whether the producer closed and every item was taken.
func (q *Queue[T]) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.writeClosed || q.rejected || q.aborted) && q.size == 0
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// InFlight returns queued items plus taken items not yet released.
func (q *Queue[T]) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Capacity returns the maximum number of items in flight.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() *Statistics {
	return q.stats
}

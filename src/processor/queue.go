package processor

import (
	"context"
	"errors"
	"sync"

	"stream-processor/src/models"
)

var (
	ErrQueueFull   = errors.New("ingestion queue full")
	ErrQueueClosed = errors.New("ingestion queue closed")
)

// -----------------------------------------------------------------------------

// IngestionQueue is a bounded FIFO of ticks shared by the receive path and the
// batch processor. Every operation is atomic with respect to the others.
// Ticks live in a ring buffer so eviction and draining never shift memory.
type IngestionQueue struct {
	mu       sync.Mutex
	ring     []models.MTick
	head     int // index of the oldest tick
	size     int
	capacity int
	policy   models.OverflowPolicy
	closed   bool

	// notFull holds at most one token, signalled whenever space is freed
	notFull chan struct{}
}

// -----------------------------------------------------------------------------

// NewIngestionQueue allocates a queue with the given capacity and overflow policy.
func NewIngestionQueue(capacity int, policy models.OverflowPolicy) *IngestionQueue {
	if capacity <= 0 {
		capacity = 1
	}
	if !policy.IsValid() {
		policy = models.OverflowBlock
	}
	return &IngestionQueue{
		ring:     make([]models.MTick, capacity),
		capacity: capacity,
		policy:   policy,
		notFull:  make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// Push appends a tick at the tail. When the queue is full the configured policy applies:
// block waits for space (or ctx), drop_oldest evicts the head and reports dropped=true,
// reject returns ErrQueueFull.
func (q *IngestionQueue) Push(ctx context.Context, tick models.MTick) (dropped bool, err error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			// pass the wake-up on to any other blocked producer
			q.signalNotFull()
			return false, ErrQueueClosed
		}

		if q.size < q.capacity {
			q.ring[q.index(q.size)] = tick
			q.size++
			hasSpace := q.size < q.capacity
			q.mu.Unlock()
			if hasSpace {
				q.signalNotFull()
			}
			return false, nil
		}

		switch q.policy {
		case models.OverflowDropOldest:
			// the slot of the evicted head becomes the new tail
			q.ring[q.head] = tick
			q.head = q.index(1)
			q.mu.Unlock()
			return true, nil
		case models.OverflowReject:
			q.mu.Unlock()
			return false, ErrQueueFull
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-q.notFull:
		}
	}
}

// -----------------------------------------------------------------------------

// PopUpTo removes and returns at most n ticks from the head, in arrival order.
func (q *IngestionQueue) PopUpTo(n int) []models.MTick {
	q.mu.Lock()
	if n <= 0 || q.size == 0 {
		q.mu.Unlock()
		return nil
	}
	n = min(n, q.size)

	batch := make([]models.MTick, n)
	copied := copy(batch, q.ring[q.head:min(q.head+n, q.capacity)])
	copy(batch[copied:], q.ring[:n-copied])

	q.head = q.index(n)
	q.size -= n
	q.mu.Unlock()

	q.signalNotFull()
	return batch
}

// -----------------------------------------------------------------------------

// Len returns the number of buffered ticks.
func (q *IngestionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the maximum number of buffered ticks.
func (q *IngestionQueue) Capacity() int {
	return q.capacity
}

// Policy returns the overflow policy.
func (q *IngestionQueue) Policy() models.OverflowPolicy {
	return q.policy
}

// -----------------------------------------------------------------------------

// Close rejects further pushes and wakes blocked producers.
func (q *IngestionQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signalNotFull()
}

// -----------------------------------------------------------------------------

func (q *IngestionQueue) signalNotFull() {
	select {
	case q.notFull <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// index maps an offset from the head to a ring slot.
func (q *IngestionQueue) index(offset int) int {
	return (q.head + offset) % q.capacity
}

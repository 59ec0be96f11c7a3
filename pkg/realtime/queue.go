package realtime

import (
	"context"
	"iter"
	"sync"
)

// DefaultQueueCapacity is used when a queue is created with a non-positive capacity.
const DefaultQueueCapacity = 250

// Queue is a bounded FIFO of envelopes with drop-on-full backpressure.
type Queue interface {
	// Enqueue adds env without blocking. It reports false when the queue is
	// full or closed and the envelope was dropped.
	Enqueue(ctx context.Context, env Envelope) bool
	// Dequeue returns a lazy sequence that waits while the queue is empty
	// and ends when ctx is cancelled or the queue is closed.
	Dequeue(ctx context.Context) iter.Seq[Envelope]
	// Len reports the number of pending envelopes.
	Len(ctx context.Context) int
	// Cap reports the fixed capacity.
	Cap() int
}

// MemoryQueue is an in-process Queue backed by a buffered channel.
type MemoryQueue struct {
	items     chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue creates a queue holding at most capacity envelopes.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &MemoryQueue{
		items: make(chan Envelope, capacity),
		done:  make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, env Envelope) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	select {
	case q.items <- env:
		return true
	default:
		return false
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) iter.Seq[Envelope] {
	return func(yield func(Envelope) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case env := <-q.items:
				if !yield(env) {
					return
				}
			}
		}
	}
}

func (q *MemoryQueue) Len(context.Context) int { return len(q.items) }

func (q *MemoryQueue) Cap() int { return cap(q.items) }

// Close stops all sequences and rejects further envelopes. Pending
// envelopes are discarded. Close is idempotent.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

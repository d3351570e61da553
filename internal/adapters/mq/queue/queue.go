// Package queue buffers notices between the dispatcher and the delivery
// workers. Enqueue never blocks: a full or closed queue rejects the notice.
package queue

import (
	"context"
	"sync"

	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Event represents the payload type flowing through the queue.
type Event = model.Notice

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice. It returns ErrFull or ErrClosed when the notice
	// was not accepted.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns the channel workers receive from. It is closed once the
	// queue is closed and drained.
	Dequeue() <-chan Event

	// Len returns the current number of queued notices.
	Len() int

	// Close stops accepting notices. Pending notices remain readable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateNotifyQueueCapacity(q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	return q
}

// Enqueue adds a notice to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: channel semantics need a value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNotifyDropped("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordNotifyDropped("context_cancelled")
		return err
	}

	select {
	case q.events <- e:
		metrics.RecordNotifyEnqueued()
		metrics.UpdateNotifyQueueSize(len(q.events))
		return nil
	default:
		metrics.RecordNotifyDropped("queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Event {
	return q.events
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len() int {
	size := len(q.events)
	metrics.UpdateNotifyQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

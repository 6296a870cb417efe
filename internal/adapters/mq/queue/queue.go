// Package queue defines the contract for enqueuing and consuming events.
//
// The in-memory implementation is split into partitions. An event's
// aggregate key selects its partition, so all events for one aggregate are
// consumed in order by a single consumer.
package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity   = 100_000
	defaultPartitions = 4
)

// Event represents the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and per-partition consumption.
type Queue interface {
	// Enqueue routes e to its partition. It returns ErrFull when that
	// partition has no room and ErrClosed after Close.
	Enqueue(ctx context.Context, e Event) error

	// Partitions returns the number of partitions.
	Partitions() int

	// Partition returns the receive side of partition i. The channel is
	// closed by Close.
	Partition(i int) <-chan Event

	// Len returns the number of queued events across all partitions.
	Len(ctx context.Context) int

	// Capacity returns the total capacity across all partitions.
	Capacity() int

	// Close stops accepting events and closes every partition.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// PartitionedQueue implements Queue with one buffered channel per partition.
type PartitionedQueue struct {
	parts      []chan Event
	capacity   int
	partitions int
	mu         sync.RWMutex
	closed     bool
}

// NewPartitionedQueue creates a queue. The capacity is shared evenly
// between partitions; each partition holds at least one event.
func NewPartitionedQueue(opts ...Option) *PartitionedQueue {
	q := &PartitionedQueue{
		capacity:   defaultCapacity,
		partitions: defaultPartitions,
	}
	for _, opt := range opts {
		opt(q)
	}

	per := q.capacity / q.partitions
	if per < 1 {
		per = 1
	}
	q.parts = make([]chan Event, q.partitions)
	for i := range q.parts {
		q.parts[i] = make(chan Event, per)
	}
	q.capacity = per * q.partitions

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// PartitionFor returns the partition index of an aggregate key.
func PartitionFor(key string, partitions int) int {
	if partitions <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(partitions)) //nolint:gosec // partitions is positive and small
}

// Enqueue adds an event to its partition without blocking.
func (q *PartitionedQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events are passed by value through channels
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	part := q.parts[PartitionFor(e.AggregateKey(), q.partitions)]
	select {
	case part <- e:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Partitions returns the number of partitions.
func (q *PartitionedQueue) Partitions() int {
	return q.partitions
}

// Partition returns the receive side of partition i.
func (q *PartitionedQueue) Partition(i int) <-chan Event {
	return q.parts[i]
}

// Len returns the current number of queued events.
func (q *PartitionedQueue) Len(context.Context) int {
	return q.observe()
}

// Capacity returns the total capacity.
func (q *PartitionedQueue) Capacity() int {
	return q.capacity
}

// observe refreshes the size gauges and returns the current size.
func (q *PartitionedQueue) observe() int {
	size := 0
	for _, p := range q.parts {
		size += len(p)
	}
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue. Consumers drain what is buffered.
func (q *PartitionedQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	for _, p := range q.parts {
		close(p)
	}
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *PartitionedQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

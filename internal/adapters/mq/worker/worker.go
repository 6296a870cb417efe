// Package worker drains queue partitions and applies each event.
//
// A Pool runs exactly one worker per partition, so events that share an
// aggregate key are applied one at a time and in arrival order.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/truthschool/prepscore/internal/adapters/mq/queue"
	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/pkg/logger"
	"github.com/truthschool/prepscore/pkg/metrics"
)

// Event abstracts what workers read off the queue.
type Event = model.Event

// Applier applies one event to its aggregate.
type Applier interface {
	Apply(ctx context.Context, e Event) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, e Event) error

// Apply calls f.
func (f ApplierFunc) Apply(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events are values
	return f(ctx, e)
}

// Worker consumes a single partition.
type Worker struct {
	name    string
	events  <-chan Event
	applier Applier
	logger  logger.Logger
	done    chan struct{}
}

// New creates a worker reading from events.
func New(events <-chan Event, applier Applier, opts ...Option) *Worker {
	w := &Worker{
		name:    "worker",
		events:  events,
		applier: applier,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run applies events until the partition is closed and drained, or ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.events:
			if !ok {
				return
			}
			w.process(ctx, e)
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) process(ctx context.Context, e Event) { //nolint:gocritic // hugeParam: events are values
	metrics.RecordQueueDequeue()
	start := time.Now()
	err := w.applier.Apply(ctx, e)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordEventFailed(string(e.Kind))
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "apply failed",
			logger.String("event_id", e.EventID),
			logger.String("kind", string(e.Kind)),
			logger.String("key", e.AggregateKey()),
			logger.Error(err),
		)
	}
}

// Pool runs one Worker per queue partition.
type Pool struct {
	queue   queue.Queue
	workers []*Worker
	logger  logger.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool creates a worker for every partition of q.
func NewPool(q queue.Queue, applier Applier, opts ...Option) *Pool {
	p := &Pool{
		queue:  q,
		logger: logger.Get().Named("worker-pool"),
	}
	p.workers = make([]*Worker, q.Partitions())
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = New(q.Partition(i), applier, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		metrics.UpdateWorkerCount(len(p.workers))
		for _, w := range p.workers {
			p.wg.Add(1)
			go func(w *Worker) {
				defer p.wg.Done()
				w.Run(ctx)
			}(w)
		}
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

// Shutdown closes the queue and waits for the workers to drain it. It
// returns ctx's error if draining does not finish in time.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		metrics.UpdateWorkerCount(0)
		p.logger.Info(ctx, "worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out", logger.Int("pending", p.queue.Len(ctx)))
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

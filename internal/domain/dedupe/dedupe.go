// Package dedupe defines the idempotency contract for accepted events and
// a bounded in-memory implementation.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 50_000

// Deduper records seen event ids so each event is applied at most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. It reports true when id had already been recorded.
	SeenAndRecord(ctx context.Context, id string) (bool, error)

	// Unrecord forgets id so a client may retry it. Used when an accepted
	// event could not be enqueued.
	Unrecord(ctx context.Context, id string) error

	// Size returns the number of remembered ids.
	Size(ctx context.Context) int64
}

type entry struct {
	id   string
	seen time.Time
}

// memoryDeduper keeps ids in insertion order so the oldest can be evicted
// in O(1).
type memoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.index[id]; ok {
		return true, nil
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.index[id] = d.order.PushBack(entry{id: id, seen: now})
	return false, nil
}

func (d *memoryDeduper) Unrecord(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[id]; ok {
		d.remove(el)
	}
	return nil
}

func (d *memoryDeduper) Size(context.Context) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// expire drops entries older than the ttl. Must be called with mu held.
func (d *memoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(entry).seen) < d.ttl {
			return
		}
		d.remove(el)
	}
}

// remove must be called with mu held.
func (d *memoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(entry).id)
	d.order.Remove(el)
}

package dedupe

import "time"

// Option applies a configuration option to the in-memory deduper.
type Option func(*memoryDeduper)

// WithMaxSize bounds the number of remembered ids. When full, the oldest id
// is forgotten first. maxSize <= 0 keeps every id.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets ids older than ttl. ttl <= 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(d *memoryDeduper) {
		d.ttl = ttl
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *memoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}

// Package redis provides a Deduper shared by every service instance,
// backed by Redis keys written with SET NX and a TTL.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/truthschool/prepscore/internal/domain/dedupe"
)

const (
	defaultPrefix = "prepscore:event:"
	defaultTTL    = 24 * time.Hour
	scanBatch     = 500
)

// Option configures a Deduper.
type Option func(*Deduper)

// WithPrefix sets the key prefix under which ids are stored.
func WithPrefix(prefix string) Option {
	return func(d *Deduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithTTL sets how long an id is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *Deduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// Deduper implements dedupe.Deduper on Redis.
type Deduper struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ dedupe.Deduper = (*Deduper)(nil)

// New wraps an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Deduper {
	d := &Deduper{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Deduper, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, opts...), nil
}

func (d *Deduper) key(id string) string {
	return d.prefix + id
}

// SeenAndRecord reports true when id was already recorded by any instance.
func (d *Deduper) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, dedupe.ErrEmptyID
	}
	created, err := d.client.SetNX(ctx, d.key(id), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !created, nil
}

// Unrecord deletes id.
func (d *Deduper) Unrecord(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Size counts remembered ids with SCAN. It returns 0 when Redis is
// unreachable.
func (d *Deduper) Size(ctx context.Context) int64 {
	var n int64
	iter := d.client.Scan(ctx, 0, d.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if iter.Err() != nil {
		return 0
	}
	return n
}

// Close releases the client.
func (d *Deduper) Close() error {
	return d.client.Close()
}

// Package natskv implements the cache port on a NATS JetStream KV bucket,
// letting coordinator replicas share notice-throttle state.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache adapts a JetStream KeyValue bucket to the cache port. Entry
// expiry comes from the bucket TTL, per-call TTLs are ignored.
type Cache struct {
	bucket jetstream.KeyValue
}

// New wraps an existing KV bucket.
func New(bucket jetstream.KeyValue) *Cache {
	return &Cache{bucket: bucket}
}

// Get looks up key; a missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.bucket.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set writes key into the bucket.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.bucket.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting an absent key is a no-op.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.bucket.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

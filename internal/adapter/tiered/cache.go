// Package tiered layers an in-process cache over a remote one. The
// coordinator uses it to share notice-throttle state across replicas:
// ristretto local, NATS KV as the remote tier.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/port/cache"
)

// Cache reads through a local tier backed by a remote tier. The remote
// tier is best effort: throttle state is advisory, so a failing remote
// degrades to local-only behavior instead of surfacing errors to callers.
type Cache struct {
	local       cache.Cache
	remote      cache.Cache
	backfillTTL time.Duration
}

// New builds a tiered cache. backfillTTL bounds how long remote hits are
// retained locally.
func New(local, remote cache.Cache, backfillTTL time.Duration) *Cache {
	return &Cache{local: local, remote: remote, backfillTTL: backfillTTL}
}

// Get checks the local tier first, then the remote. A remote hit is
// copied into the local tier. Remote failures count as misses.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.remote.Get(ctx, key)
	if err != nil {
		slog.Warn("remote cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}

	_ = c.local.Set(ctx, key, val, c.backfillTTL)
	return val, true, nil
}

// Set writes both tiers. A remote write failure is logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("remote cache set failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes the key from both tiers. A remote delete failure is
// logged, not returned.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.remote.Delete(ctx, key); err != nil {
		slog.Warn("remote cache delete failed", "key", key, "error", err)
	}
	return nil
}

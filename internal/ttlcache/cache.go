// Package ttlcache wraps a kvstore partition with time-to-live
// semantics. Entries older than the TTL are evicted on read. The cache
// is an optimization, never a correctness dependency: every failure of
// the underlying store is logged and treated as a miss or a no-op.
package ttlcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/kvstore"
)

// Entry wraps a cached value with its write timestamp and a revision
// counter managed by the cache itself. The revision is informational;
// writes are last-write-wins.
type Entry[T any] struct {
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Revision  int64     `json:"revision"`
}

// Cache serves values of type T from one kvstore partition, honoring
// a fixed TTL.
type Cache[T any] struct {
	store     kvstore.Store
	partition string
	ttl       time.Duration
	logger    *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a cache over the given partition with the given TTL.
func New[T any](store kvstore.Store, partition string, ttl time.Duration, logger *slog.Logger) *Cache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[T]{
		store:     store,
		partition: partition,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the cached value for key if present and fresh. A stale
// entry is evicted before reporting a miss, so an expired read has a
// write side effect; the eviction races safely with a concurrent Set
// because removal of an absent key is a no-op.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	entry, ok := c.load(ctx, key)
	if !ok {
		var zero T
		return zero, false
	}
	return entry.Data, true
}

// GetWithMetadata is Get with the full entry exposed, for callers that
// want the timestamp or revision.
func (c *Cache[T]) GetWithMetadata(ctx context.Context, key string) (*Entry[T], bool) {
	return c.load(ctx, key)
}

// Set unconditionally overwrites the entry for key with a fresh
// timestamp, bumping the stored revision. Store failures are logged
// and absorbed.
func (c *Cache[T]) Set(ctx context.Context, key string, data T) {
	var rev int64
	if raw, err := c.store.Get(ctx, c.partition, key); err == nil {
		var prev Entry[T]
		if json.Unmarshal(raw, &prev) == nil {
			rev = prev.Revision
		}
	}

	entry := Entry[T]{Data: data, Timestamp: c.now(), Revision: rev + 1}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache: marshal failed",
			slog.String("partition", c.partition), slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, c.partition, key, raw); err != nil {
		c.logger.Warn("cache: set failed",
			slog.String("partition", c.partition), slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// Invalidate removes the entry for key. The operation is advisory:
// failure is logged, never surfaced, so it cannot block the caller's
// primary success path.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, c.partition, key); err != nil {
		c.logger.Warn("cache: invalidate failed",
			slog.String("partition", c.partition), slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// Clear removes the whole partition.
func (c *Cache[T]) Clear(ctx context.Context) {
	if err := c.store.Clear(ctx, c.partition); err != nil {
		c.logger.Warn("cache: clear failed",
			slog.String("partition", c.partition), slog.String("error", err.Error()))
	}
}

// RemainingTTL returns how long the entry for key stays fresh, or zero
// when absent or already stale (evicting in the latter case).
func (c *Cache[T]) RemainingTTL(ctx context.Context, key string) time.Duration {
	entry, ok := c.load(ctx, key)
	if !ok {
		return 0
	}
	return c.ttl - c.now().Sub(entry.Timestamp)
}

// Has reports whether a fresh entry exists for key.
func (c *Cache[T]) Has(ctx context.Context, key string) bool {
	_, ok := c.load(ctx, key)
	return ok
}

func (c *Cache[T]) load(ctx context.Context, key string) (*Entry[T], bool) {
	raw, err := c.store.Get(ctx, c.partition, key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			c.logger.Warn("cache: read failed",
				slog.String("partition", c.partition), slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return nil, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("cache: corrupt entry evicted",
			slog.String("partition", c.partition), slog.String("key", key),
			slog.String("error", err.Error()))
		c.Invalidate(ctx, key)
		return nil, false
	}

	if c.now().Sub(entry.Timestamp) > c.ttl {
		c.Invalidate(ctx, key)
		return nil, false
	}
	return &entry, true
}

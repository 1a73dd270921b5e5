package ttlcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/voss/atelier/internal/kvstore"
)

func tempStore(t *testing.T) *kvstore.DB {
	t.Helper()
	db, err := kvstore.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock returns a clock function reading from *at, so tests can
// advance time synthetically.
func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestGet_FreshValue(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "media", time.Minute, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = fixedClock(&now)
	ctx := context.Background()

	c.Set(ctx, "p1", "hello")

	// Read exactly at the TTL boundary: still fresh.
	now = now.Add(time.Minute)
	got, ok := c.Get(ctx, "p1")
	if !ok || got != "hello" {
		t.Errorf("Get = %q, %v", got, ok)
	}
}

func TestGet_StaleEvicts(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "timelines", 60*time.Second, nil)
	now := time.Unix(0, 0)
	c.now = fixedClock(&now)
	ctx := context.Background()

	c.Set(ctx, "s1", "tracks")

	now = now.Add(61 * time.Second)
	if _, ok := c.Get(ctx, "s1"); ok {
		t.Fatal("stale entry should miss")
	}

	// The eviction must leave the underlying partition empty.
	keys, err := store.Keys(ctx, "timelines")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("partition not empty after eviction: %v", keys)
	}
}

func TestGet_Missing(t *testing.T) {
	c := New[int](tempStore(t), "media", time.Minute, nil)
	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestSet_BumpsRevision(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "media", time.Minute, nil)
	now := time.Unix(1000, 0)
	c.now = fixedClock(&now)
	ctx := context.Background()

	c.Set(ctx, "p1", "v1")
	c.Set(ctx, "p1", "v2")

	entry, ok := c.GetWithMetadata(ctx, "p1")
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.Data != "v2" {
		t.Errorf("data = %q, want v2 (last write wins)", entry.Data)
	}
	if entry.Revision != 2 {
		t.Errorf("revision = %d, want 2", entry.Revision)
	}
	if !entry.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", entry.Timestamp, now)
	}
}

func TestRemainingTTL(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "media", 5*time.Minute, nil)
	now := time.Unix(0, 0)
	c.now = fixedClock(&now)
	ctx := context.Background()

	c.Set(ctx, "p1", "v")
	now = now.Add(2 * time.Minute)
	if got := c.RemainingTTL(ctx, "p1"); got != 3*time.Minute {
		t.Errorf("RemainingTTL = %v, want 3m", got)
	}

	now = now.Add(10 * time.Minute)
	if got := c.RemainingTTL(ctx, "p1"); got != 0 {
		t.Errorf("RemainingTTL stale = %v, want 0", got)
	}
}

func TestHasAndInvalidate(t *testing.T) {
	store := tempStore(t)
	c := New[[]string](store, "media", time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, "p1", []string{"m1"})
	if !c.Has(ctx, "p1") {
		t.Error("Has = false after Set")
	}

	c.Invalidate(ctx, "p1")
	if c.Has(ctx, "p1") {
		t.Error("Has = true after Invalidate")
	}

	// Invalidating an absent key must be silent.
	c.Invalidate(ctx, "p1")
}

func TestClear(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "media", time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")
	c.Clear(ctx)

	if c.Has(ctx, "a") || c.Has(ctx, "b") {
		t.Error("entries survived Clear")
	}
}

func TestGet_CorruptEntryEvicted(t *testing.T) {
	store := tempStore(t)
	c := New[string](store, "media", time.Minute, nil)
	ctx := context.Background()

	_ = store.Set(ctx, "media", "p1", []byte("{not json"))
	if _, ok := c.Get(ctx, "p1"); ok {
		t.Fatal("corrupt entry should miss")
	}
	keys, _ := store.Keys(ctx, "media")
	if len(keys) != 0 {
		t.Errorf("corrupt entry not evicted: %v", keys)
	}
}

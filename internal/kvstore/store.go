// Package kvstore provides the durable on-device key-value store that
// the cache layer builds on. Values are opaque JSON, scoped by named
// partitions.
package kvstore

import "context"

// Store is the interface for partitioned key-value operations.
// Consumers should depend on this interface rather than the concrete
// *DB type to facilitate testing with mocks.
type Store interface {
	// Get returns the value for key in partition, or apperr.ErrNotFound.
	Get(ctx context.Context, partition, key string) ([]byte, error)
	// Set stores value under key in partition, overwriting any previous value.
	Set(ctx context.Context, partition, key string, value []byte) error
	// Remove deletes key from partition. Removing an absent key is not an error.
	Remove(ctx context.Context, partition, key string) error
	// Clear removes every key in partition.
	Clear(ctx context.Context, partition string) error
	// Keys returns every key in partition.
	Keys(ctx context.Context, partition string) ([]string, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

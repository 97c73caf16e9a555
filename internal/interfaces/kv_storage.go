package interfaces

import (
	"context"
	"time"
)

// KeyValueStorage defines operations for generic key/value storage with
// per-entry TTL. Cache entries, in-flight markers, and enrichment locks all
// live behind this interface.
type KeyValueStorage interface {
	// Get retrieves a value by key. Returns models.ErrKeyNotFound when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetIfAbsent atomically writes the pair only when the key does not
	// already hold a live value. Returns true when this caller won the write.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// Delete removes a key/value pair. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns all live keys starting with the given prefix.
	ListByPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

// StorageManager is the composite owner of the storage layer.
type StorageManager interface {
	KVStorage() KeyValueStorage
	Close() error
}

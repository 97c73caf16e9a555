package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// kvPrefix namespaces raw keys away from badgerhold's encoded keys.
const kvPrefix = "kv:"

// KVStorage implements the KeyValueStorage interface on the raw Badger API.
// It uses Badger-native entry TTLs so expired values disappear without a
// sweeper, and single update transactions for the conditional write.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) raw() *badgerdb.DB {
	return s.db.Store().Badger()
}

// Get retrieves a value by key
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.raw().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(kvPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return "", models.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set inserts or updates a key/value pair. A zero ttl means no expiry.
func (s *KVStorage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := s.raw().Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(kvPrefix+key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to set key/value: %w", err)
	}
	return nil
}

// SetIfAbsent atomically writes the pair only when no live value exists.
// The existence check and write share one transaction, so concurrent
// callers racing on the same key produce exactly one winner.
func (s *KVStorage) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	won := false
	err := s.raw().Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(kvPrefix + key))
		if err == nil {
			return nil // key already held
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		entry := badgerdb.NewEntry([]byte(kvPrefix+key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed conditional set: %w", err)
	}
	return won, nil
}

// Delete removes a key/value pair. Deleting an absent key is not an error.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.raw().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(kvPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// ListByPrefix returns all live keys starting with the given prefix
func (s *KVStorage) ListByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	result := make(map[string]string)
	err := s.raw().View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(kvPrefix + prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())[len(kvPrefix):]
			err := item.Value(func(val []byte) error {
				result[key] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list by prefix: %w", err)
	}
	return result, nil
}

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestKVStorageSetGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.Set(ctx, "places:search:abc", `{"outcome":"results"}`, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := storage.Get(ctx, "places:search:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != `{"outcome":"results"}` {
		t.Errorf("Unexpected value: %s", value)
	}

	_, err = storage.Get(ctx, "places:search:missing")
	if err != models.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound for missing key, got %v", err)
	}
}

func TestKVStorageTTLExpiry(t *testing.T) {
	db := newTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.Set(ctx, "inflight:xyz", "1", 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := storage.Get(ctx, "inflight:xyz"); err != nil {
		t.Fatalf("Expected live value before expiry, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := storage.Get(ctx, "inflight:xyz"); err != models.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound after expiry, got %v", err)
	}
}

func TestKVStorageSetIfAbsent(t *testing.T) {
	db := newTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	won, err := storage.SetIfAbsent(ctx, "lock:details:place-1", "owner-a", time.Minute)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if !won {
		t.Error("First writer should win")
	}

	won, err = storage.SetIfAbsent(ctx, "lock:details:place-1", "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if won {
		t.Error("Second writer should lose")
	}

	// Original value survives the losing write
	value, err := storage.Get(ctx, "lock:details:place-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "owner-a" {
		t.Errorf("Expected owner-a, got %s", value)
	}

	// After the holder releases, the lock can be taken again
	if err := storage.Delete(ctx, "lock:details:place-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	won, err = storage.SetIfAbsent(ctx, "lock:details:place-1", "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if !won {
		t.Error("Writer should win after release")
	}
}

func TestKVStorageDeleteAbsentKey(t *testing.T) {
	db := newTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())

	if err := storage.Delete(context.Background(), "never-set"); err != nil {
		t.Errorf("Deleting an absent key should not error, got %v", err)
	}
}

func TestKVStorageListByPrefix(t *testing.T) {
	db := newTestDB(t)
	storage := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()

	pairs := map[string]string{
		"places:search:k1": "v1",
		"places:search:k2": "v2",
		"lock:details:p1":  "v3",
	}
	for k, v := range pairs {
		if err := storage.Set(ctx, k, v, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	result, err := storage.ListByPrefix(ctx, "places:search:")
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(result))
	}
	if result["places:search:k1"] != "v1" {
		t.Errorf("Unexpected value for k1: %s", result["places:search:k1"])
	}
}

func TestDetailsStorageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewDetailsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	details := &models.PlaceDetails{
		PlaceID:     "place-1",
		Name:        "Blue Bottle Coffee",
		PhoneNumber: "+1 510-653-3394",
		Website:     "https://bluebottlecoffee.com",
	}

	if err := storage.SaveDetails(ctx, details, time.Hour); err != nil {
		t.Fatalf("SaveDetails failed: %v", err)
	}

	got, err := storage.GetDetails(ctx, "place-1")
	if err != nil {
		t.Fatalf("GetDetails failed: %v", err)
	}
	if got.Name != "Blue Bottle Coffee" || got.Website != "https://bluebottlecoffee.com" {
		t.Errorf("Unexpected record: %+v", got)
	}

	if _, err := storage.GetDetails(ctx, "place-2"); err != models.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound for unknown place, got %v", err)
	}
}

func TestDetailsStorageExpiry(t *testing.T) {
	db := newTestDB(t)
	storage := NewDetailsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	details := &models.PlaceDetails{PlaceID: "place-1", Name: "Cafe"}
	if err := storage.SaveDetails(ctx, details, 10*time.Millisecond); err != nil {
		t.Fatalf("SaveDetails failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := storage.GetDetails(ctx, "place-1"); err != models.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound after expiry, got %v", err)
	}

	removed, err := storage.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed record, got %d", removed)
	}
}

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/models"
)

// memoryKV is an in-memory KeyValueStorage with TTL semantics, used to
// exercise the guard without a real store.
type memoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func newMemoryKV() *memoryKV {
	return &memoryKV{entries: make(map[string]memoryEntry)}
}

func (m *memoryKV) live(key string) (string, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return entry.value, true
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.live(key); ok {
		return value, nil
	}
	return "", models.ErrKeyNotFound
}

func (m *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *memoryKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return true, nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memoryKV) ListByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]string)
	for key := range m.entries {
		if value, ok := m.live(key); ok && len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			result[key] = value
		}
	}
	return result, nil
}

func newTestGuard(kv *memoryKV) *Service {
	return NewService(&common.CacheConfig{
		KeyedTTL:        "6h",
		FreeTextTTL:     "1h",
		InFlightTTL:     "2s",
		InFlightPolls:   20,
		InFlightBackoff: "10ms",
	}, kv, arbor.NewLogger())
}

func testRequest() *models.SearchRequest {
	return &models.SearchRequest{
		Query:    "pizza",
		Location: &models.Location{Latitude: 32.0853, Longitude: 34.7818},
	}
}

func testResult() *models.SearchResult {
	return &models.SearchResult{
		Outcome: models.OutcomeResults,
		Places: []models.RankedPlace{
			{Place: models.PlaceItem{PlaceID: "p1", Name: "Tony's"}, Rank: 1},
		},
		Weights: models.WeightVector{Rating: 0.3, Reviews: 0.2, Price: 0.1, OpenNow: 0.1, Distance: 0.3},
	}
}

func TestGetOrFetchMissThenHit(t *testing.T) {
	guard := newTestGuard(newMemoryKV())
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (*models.SearchResult, error) {
		calls++
		return testResult(), nil
	}

	result, cached, err := guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if cached {
		t.Error("First call should be a miss")
	}
	if len(result.Places) != 1 || result.Places[0].Place.PlaceID != "p1" {
		t.Errorf("Unexpected result: %+v", result)
	}

	result, cached, err = guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if !cached {
		t.Error("Second call should hit the cache")
	}
	if !result.CacheHit {
		t.Error("Cached result should carry the cache-hit flag")
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 provider call, got %d", calls)
	}
}

func TestGetOrFetchConcurrentDuplicatesSingleCall(t *testing.T) {
	guard := newTestGuard(newMemoryKV())
	ctx := context.Background()

	var calls int32
	fetch := func(ctx context.Context) (*models.SearchResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond) // hold the race open
		return testResult(), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*models.SearchResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _, errs[idx] = guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, fetch)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 provider call across %d concurrent duplicates, got %d", workers, got)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Worker %d failed: %v", i, errs[i])
		}
		if results[i] == nil || len(results[i].Places) != 1 {
			t.Errorf("Worker %d got unexpected result: %+v", i, results[i])
		}
	}
}

func TestGetOrFetchFetchErrorClearsMarker(t *testing.T) {
	kv := newMemoryKV()
	guard := newTestGuard(kv)
	ctx := context.Background()

	fetch := func(ctx context.Context) (*models.SearchResult, error) {
		return nil, models.NewClassifiedError(models.ErrorKindTimeout, context.DeadlineExceeded)
	}

	_, _, err := guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, fetch)
	if err == nil {
		t.Fatal("Expected fetch error to propagate")
	}

	// The marker must be gone so a retry does not wait out the TTL.
	key := SearchKey(testRequest(), models.ModeFreeText)
	if _, err := kv.Get(ctx, InFlightKey(key)); err != models.ErrKeyNotFound {
		t.Error("In-flight marker should be cleared after a failed fetch")
	}

	// A follow-up request succeeds normally.
	ok := func(ctx context.Context) (*models.SearchResult, error) { return testResult(), nil }
	result, cached, err := guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, ok)
	if err != nil || cached || result == nil {
		t.Errorf("Retry after failure should fetch fresh: result=%v cached=%v err=%v", result, cached, err)
	}
}

func TestGetOrFetchCorruptEntryTreatedAsMiss(t *testing.T) {
	kv := newMemoryKV()
	guard := newTestGuard(kv)
	ctx := context.Background()

	key := SearchKey(testRequest(), models.ModeFreeText)
	if err := kv.Set(ctx, key, "{not valid json", 0); err != nil {
		t.Fatal(err)
	}

	calls := 0
	fetch := func(ctx context.Context) (*models.SearchResult, error) {
		calls++
		return testResult(), nil
	}

	result, cached, err := guard.GetOrFetch(ctx, testRequest(), models.ModeFreeText, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if cached {
		t.Error("Corrupt entry must behave as a miss")
	}
	if calls != 1 || result == nil {
		t.Errorf("Expected one fresh fetch, got calls=%d result=%v", calls, result)
	}
}

func TestTTLForSpecificity(t *testing.T) {
	guard := newTestGuard(newMemoryKV())

	if guard.TTLFor(models.ModeKeyed) <= guard.TTLFor(models.ModeFreeText) {
		t.Error("Keyed (narrower) queries must cache longer than free text")
	}
}

func TestAcquireEnrichmentLockSingleOwner(t *testing.T) {
	guard := newTestGuard(newMemoryKV())
	ctx := context.Background()

	if !guard.AcquireEnrichmentLock(ctx, "place-1", time.Minute) {
		t.Error("First acquirer should win the lock")
	}
	if guard.AcquireEnrichmentLock(ctx, "place-1", time.Minute) {
		t.Error("Second acquirer should be refused while the lock is held")
	}
	if !guard.AcquireEnrichmentLock(ctx, "place-2", time.Minute) {
		t.Error("Locks are per entity")
	}
}

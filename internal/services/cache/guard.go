package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// Service implements the CacheService interface over the TTL key/value
// store. One instance is shared by all pipeline executions.
type Service struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger

	keyedTTL        time.Duration
	freeTextTTL     time.Duration
	inFlightTTL     time.Duration
	inFlightPolls   int
	inFlightBackoff time.Duration
}

// NewService creates a cache guard from configuration
func NewService(config *common.CacheConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kvStorage:       kvStorage,
		logger:          logger,
		keyedTTL:        common.ParseDurationOr(config.KeyedTTL, 6*time.Hour),
		freeTextTTL:     common.ParseDurationOr(config.FreeTextTTL, time.Hour),
		inFlightTTL:     common.ParseDurationOr(config.InFlightTTL, 15*time.Second),
		inFlightPolls:   config.InFlightPolls,
		inFlightBackoff: common.ParseDurationOr(config.InFlightBackoff, 250*time.Millisecond),
	}
}

// TTLFor selects the cache TTL by query specificity: keyed-mode queries are
// narrower and cache longer than free text.
func (s *Service) TTLFor(mode models.CanonicalMode) time.Duration {
	if mode == models.ModeKeyed {
		return s.keyedTTL
	}
	return s.freeTextTTL
}

// GetOrFetch returns the cached result for an equivalent request, or runs
// fetch exactly once across concurrent duplicates. Losers of the in-flight
// race poll briefly for the winner's value and fall through to their own
// fetch only if it never appears.
func (s *Service) GetOrFetch(ctx context.Context, req *models.SearchRequest, mode models.CanonicalMode, fetch interfaces.SearchFetchFunc) (*models.SearchResult, bool, error) {
	key := SearchKey(req, mode)

	if result, ok := s.lookup(ctx, key); ok {
		s.logger.Debug().Str("cache_key", key).Msg("Cache hit")
		return result, true, nil
	}

	won, err := s.kvStorage.SetIfAbsent(ctx, InFlightKey(key), "1", s.inFlightTTL)
	if err != nil {
		// A broken marker store must not block the search; degrade to a
		// direct call.
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("In-flight marker unavailable, fetching directly")
		won = true
	}

	if !won {
		s.logger.Debug().Str("cache_key", key).Msg("Duplicate request in flight, waiting for winner")
		if result, ok := s.waitForWinner(ctx, key); ok {
			return result, true, nil
		}
		// The winner never delivered inside our wait budget. Fall through
		// to a direct call so the caller still gets an answer.
		s.logger.Debug().Str("cache_key", key).Msg("Winner did not deliver, fetching directly")
	}

	result, fetchErr := fetch(ctx)

	if won {
		// Release the marker regardless of outcome so followers are not
		// stuck waiting out the full marker TTL.
		if delErr := s.kvStorage.Delete(ctx, InFlightKey(key)); delErr != nil {
			s.logger.Warn().Err(delErr).Str("cache_key", key).Msg("Failed to clear in-flight marker")
		}
	}

	if fetchErr != nil {
		return nil, false, fetchErr
	}

	s.store(ctx, key, mode, result)
	return result, false, nil
}

// AcquireEnrichmentLock attempts the atomic per-entity lock that keeps
// background enrichment work single-owner across the fleet. Returns true
// when this caller owns the work.
func (s *Service) AcquireEnrichmentLock(ctx context.Context, placeID string, ttl time.Duration) bool {
	won, err := s.kvStorage.SetIfAbsent(ctx, EnrichLockKey(placeID), "1", ttl)
	if err != nil {
		s.logger.Warn().Err(err).Str("place_id", placeID).Msg("Enrichment lock acquisition failed, skipping")
		return false
	}
	return won
}

// lookup reads and decodes a cached result. A corrupt or unreadable entry is
// logged and treated as a miss, never propagated.
func (s *Service) lookup(ctx context.Context, key string) (*models.SearchResult, bool) {
	value, err := s.kvStorage.Get(ctx, key)
	if err != nil {
		if err != models.ErrKeyNotFound {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache read failed, treating as miss")
		}
		return nil, false
	}

	var result models.SearchResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Corrupt cache entry, treating as miss")
		return nil, false
	}

	result.CacheHit = true
	return &result, true
}

// waitForWinner polls for the winner's stored value with bounded attempts.
func (s *Service) waitForWinner(ctx context.Context, key string) (*models.SearchResult, bool) {
	polls := s.inFlightPolls
	if polls <= 0 {
		polls = 10
	}

	for i := 0; i < polls; i++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(s.inFlightBackoff):
		}

		if result, ok := s.lookup(ctx, key); ok {
			return result, true
		}
	}

	return nil, false
}

// store serializes and writes a fresh result with the mode's TTL. Failures
// are logged only; the caller already holds the value.
func (s *Service) store(ctx context.Context, key string, mode models.CanonicalMode, result *models.SearchResult) {
	if result == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to serialize result for cache")
		return
	}

	ttl := s.TTLFor(mode)
	if err := s.kvStorage.Set(ctx, key, string(payload), ttl); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to write cache entry")
		return
	}

	s.logger.Debug().Str("cache_key", key).Dur("ttl", ttl).Msg("Cached provider result")
}

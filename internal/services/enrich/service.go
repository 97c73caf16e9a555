// Package enrich fetches place details in the background for entities that
// appeared near the top of a result list. Work is fanned out on a bounded
// worker pool; a per-entity atomic lock keeps each place's fetch single-owner
// across the fleet.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// lockAcquirer is the slice of the cache guard this service needs.
type lockAcquirer interface {
	AcquireEnrichmentLock(ctx context.Context, placeID string, ttl time.Duration) bool
}

// Service implements the EnrichService interface
type Service struct {
	logger  arbor.ILogger
	pool    *ants.Pool
	places  interfaces.PlacesService
	details interfaces.DetailsStorage
	locks   lockAcquirer

	topN        int
	lockTTL     time.Duration
	detailsTTL  time.Duration
	callTimeout time.Duration
}

// NewService creates the enrichment worker pool.
func NewService(config *common.Config, placesService interfaces.PlacesService, detailsStorage interfaces.DetailsStorage, locks lockAcquirer, logger arbor.ILogger) (*Service, error) {
	poolSize := config.Enrichment.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	// Nonblocking: when the pool is saturated, new enrichment work is
	// dropped rather than stalling the pipeline. The lock TTL lets a later
	// search pick the entity up again.
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment pool: %w", err)
	}

	topN := config.Enrichment.TopN
	if topN <= 0 {
		topN = 5
	}

	return &Service{
		logger:      logger,
		pool:        pool,
		places:      placesService,
		details:     detailsStorage,
		locks:       locks,
		topN:        topN,
		lockTTL:     common.ParseDurationOr(config.Enrichment.LockTTL, 45*time.Second),
		detailsTTL:  common.ParseDurationOr(config.Enrichment.DetailsTTL, 24*time.Hour),
		callTimeout: common.ParseDurationOr(config.Enrichment.CallTimeout, 10*time.Second),
	}, nil
}

// EnqueueTopN schedules detail fetches for the leading ranked places. Places
// with cached details are skipped; places another worker already owns are
// skipped; a saturated pool drops the remainder.
func (s *Service) EnqueueTopN(places []models.RankedPlace) {
	limit := s.topN
	if limit > len(places) {
		limit = len(places)
	}

	ctx := context.Background()
	for _, ranked := range places[:limit] {
		placeID := ranked.Place.PlaceID
		if placeID == "" {
			continue
		}

		if _, err := s.details.GetDetails(ctx, placeID); err == nil {
			continue
		}

		if !s.locks.AcquireEnrichmentLock(ctx, placeID, s.lockTTL) {
			continue
		}

		if err := s.pool.Submit(func() { s.fetchDetails(placeID) }); err != nil {
			s.logger.Debug().Err(err).Str("place_id", placeID).Msg("Enrichment pool saturated, dropping work")
		}
	}
}

// Close stops the worker pool
func (s *Service) Close() error {
	s.pool.Release()
	return nil
}

// fetchDetails performs one provider call and caches the payload. The lock
// expires on its own; holding it for the full TTL is the safety net against
// duplicate fetches racing a slow provider.
func (s *Service) fetchDetails(placeID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	details, err := s.places.GetDetails(ctx, placeID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("place_id", placeID).
			Str("error_kind", string(models.Classify(err))).
			Msg("Place detail fetch failed")
		return
	}

	if err := s.details.SaveDetails(ctx, details, s.detailsTTL); err != nil {
		s.logger.Warn().Err(err).Str("place_id", placeID).Msg("Failed to cache place details")
		return
	}

	s.logger.Debug().Str("place_id", placeID).Msg("Place details enriched")
}

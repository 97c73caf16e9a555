package interfaces

import "github.com/tanglebrook/vicinity/internal/models"

// EnrichService schedules background place-detail enrichment for top-ranked
// results. Enqueueing is fire-and-forget; duplicate work across the fleet is
// suppressed by per-entity locks.
type EnrichService interface {
	// EnqueueTopN schedules detail fetches for the leading places that have
	// no cached details yet.
	EnqueueTopN(places []models.RankedPlace)

	// Close stops the worker pool.
	Close() error
}

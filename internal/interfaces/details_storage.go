package interfaces

import (
	"context"
	"time"

	"github.com/tanglebrook/vicinity/internal/models"
)

// DetailsStorage persists enriched place detail records with an expiry.
type DetailsStorage interface {
	// SaveDetails stores a detail record that expires after ttl.
	SaveDetails(ctx context.Context, details *models.PlaceDetails, ttl time.Duration) error

	// GetDetails returns the stored record for a place, or
	// models.ErrKeyNotFound when absent or expired.
	GetDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)

	// DeleteExpired removes records past their expiry. Returns the number
	// removed.
	DeleteExpired(ctx context.Context) (int, error)

	// Count returns the number of live detail records.
	Count(ctx context.Context) (int, error)
}

package interfaces

import (
	"context"

	"github.com/tanglebrook/vicinity/internal/models"
)

// PlacesService defines the interface for the upstream places provider.
type PlacesService interface {
	// Search executes the mapped provider query (text or nearby variant)
	// and returns raw place items. Transport failures are returned as
	// classified errors so the caller can decide on retry.
	Search(ctx context.Context, query *models.MappedQuery) ([]models.PlaceItem, error)

	// GetDetails fetches extended detail for a single place.
	GetDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

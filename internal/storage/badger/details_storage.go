package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// detailsRecord wraps a place detail payload with expiry metadata.
// Expiry is enforced at read time; DeleteExpired reclaims storage.
type detailsRecord struct {
	PlaceID   string `badgerhold:"key"`
	Details   models.PlaceDetails
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// DetailsStorage implements the DetailsStorage interface for Badger
type DetailsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDetailsStorage creates a new DetailsStorage instance
func NewDetailsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DetailsStorage {
	return &DetailsStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDetails stores a detail record that expires after ttl
func (s *DetailsStorage) SaveDetails(ctx context.Context, details *models.PlaceDetails, ttl time.Duration) error {
	if details == nil || details.PlaceID == "" {
		return fmt.Errorf("details record requires a place_id")
	}

	now := time.Now()
	record := detailsRecord{
		PlaceID:   details.PlaceID,
		Details:   *details,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.db.Store().Upsert(details.PlaceID, &record); err != nil {
		return fmt.Errorf("failed to save place details: %w", err)
	}

	return nil
}

// GetDetails returns the stored record for a place
func (s *DetailsStorage) GetDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	var record detailsRecord
	err := s.db.Store().Get(placeID, &record)
	if err == badgerhold.ErrNotFound {
		return nil, models.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place details: %w", err)
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, models.ErrKeyNotFound
	}

	return &record.Details, nil
}

// DeleteExpired removes records past their expiry
func (s *DetailsStorage) DeleteExpired(ctx context.Context) (int, error) {
	var expired []detailsRecord
	err := s.db.Store().Find(&expired, badgerhold.Where("ExpiresAt").Lt(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to find expired detail records: %w", err)
	}

	removed := 0
	for _, record := range expired {
		if err := s.db.Store().Delete(record.PlaceID, &detailsRecord{}); err != nil {
			s.logger.Warn().Str("place_id", record.PlaceID).Err(err).Msg("Failed to delete expired detail record")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug().Int("count", removed).Msg("Removed expired place detail records")
	}

	return removed, nil
}

// Count returns the number of live detail records
func (s *DetailsStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&detailsRecord{}, badgerhold.Where("ExpiresAt").Ge(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to count detail records: %w", err)
	}
	return int(count), nil
}

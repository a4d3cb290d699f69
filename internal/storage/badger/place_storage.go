package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// PlaceStorage implements the PlaceStorage interface for Badger
type PlaceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPlaceStorage creates a new PlaceStorage instance
func NewPlaceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PlaceStorage {
	return &PlaceStorage{
		db:     db,
		logger: logger,
	}
}

// SavePlace inserts or updates a place keyed by its normalized place key
func (s *PlaceStorage) SavePlace(ctx context.Context, place *models.TripPlace) error {
	key := place.Key()
	if key == "" {
		return interfaces.ErrPlaceNotFound
	}

	if err := s.db.Store().Upsert(string(key), place); err != nil {
		return fmt.Errorf("failed to save place: %w", err)
	}

	return nil
}

// GetPlace retrieves a place by key
func (s *PlaceStorage) GetPlace(ctx context.Context, key models.PlaceKey) (*models.TripPlace, error) {
	var place models.TripPlace
	err := s.db.Store().Get(string(key), &place)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrPlaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	return &place, nil
}

// DeletePlace removes a place by key
func (s *PlaceStorage) DeletePlace(ctx context.Context, key models.PlaceKey) error {
	err := s.db.Store().Delete(string(key), &models.TripPlace{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrPlaceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	return nil
}

// ListPlaces returns the saved collection ordered by name
func (s *PlaceStorage) ListPlaces(ctx context.Context) ([]*models.TripPlace, error) {
	var places []models.TripPlace
	err := s.db.Store().Find(&places, badgerhold.Where("Name").Ne("").SortBy("Name"))
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	result := make([]*models.TripPlace, len(places))
	for i := range places {
		result[i] = &places[i]
	}
	return result, nil
}

// CountPlaces returns the number of saved places
func (s *PlaceStorage) CountPlaces(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.TripPlace{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return int(count), nil
}

package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// TripStorage implements the TripStorage interface for Badger
type TripStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTripStorage creates a new TripStorage instance
func NewTripStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TripStorage {
	return &TripStorage{
		db:     db,
		logger: logger,
	}
}

// SaveTrip inserts or updates a trip record keyed by its id
func (s *TripStorage) SaveTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		return fmt.Errorf("failed to save trip: empty id")
	}

	// Preserve CreatedAt on update
	var existing models.Trip
	if err := s.db.Store().Get(trip.ID, &existing); err == nil {
		trip.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(trip.ID, trip); err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by id
func (s *TripStorage) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.Store().Get(id, &trip)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

// DeleteTrip removes a trip by id
func (s *TripStorage) DeleteTrip(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.Trip{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrTripNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

// ListTrips returns all saved trips, newest first
func (s *TripStorage) ListTrips(ctx context.Context) ([]*models.Trip, error) {
	var trips []models.Trip
	err := s.db.Store().Find(&trips, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	result := make([]*models.Trip, len(trips))
	for i := range trips {
		result[i] = &trips[i]
	}
	return result, nil
}

// CountTrips returns the number of saved trips
func (s *TripStorage) CountTrips(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Trip{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return int(count), nil
}

package interfaces

import (
	"context"
	"errors"

	"github.com/routewise/routewise/internal/models"
)

var (
	// ErrDraftNotFound is returned when no draft exists under a key
	ErrDraftNotFound = errors.New("draft not found")

	// ErrTripNotFound is returned when a saved trip id is unknown
	ErrTripNotFound = errors.New("trip not found")

	// ErrPlaceNotFound is returned when a place key is not in the collection
	ErrPlaceNotFound = errors.New("place not found")
)

// ItineraryStorage persists the itinerary state envelope under its fixed
// document key. Load never fails on corrupt content: it falls back to the
// default single-day state and reports fallback=true.
type ItineraryStorage interface {
	// Save serializes the state and writes it under the itinerary key
	Save(ctx context.Context, state *models.ItineraryState) error

	// Load reads and parses the stored state. A missing or corrupt entry
	// yields the default state and fallback=true rather than an error.
	Load(ctx context.Context) (state *models.ItineraryState, fallback bool, err error)

	// Clear removes the stored state
	Clear(ctx context.Context) error
}

// PlaceStorage persists the bookmarked trip-place collection keyed by the
// normalized place key.
type PlaceStorage interface {
	SavePlace(ctx context.Context, place *models.TripPlace) error
	GetPlace(ctx context.Context, key models.PlaceKey) (*models.TripPlace, error)
	DeletePlace(ctx context.Context, key models.PlaceKey) error
	ListPlaces(ctx context.Context) ([]*models.TripPlace, error)
	CountPlaces(ctx context.Context) (int, error)
}

// DraftStorage persists wizard drafts by storage key. Expiry policy lives in
// the draft service; storage only reads and writes.
type DraftStorage interface {
	SaveDraft(ctx context.Context, key string, draft *models.Draft) error
	GetDraft(ctx context.Context, key string) (*models.Draft, error)
	DeleteDraft(ctx context.Context, key string) error
	ListDraftKeys(ctx context.Context) ([]string, error)
}

// TripStorage persists saved trip records
type TripStorage interface {
	SaveTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id string) error
	ListTrips(ctx context.Context) ([]*models.Trip, error)
	CountTrips(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	ItineraryStorage() ItineraryStorage
	PlaceStorage() PlaceStorage
	DraftStorage() DraftStorage
	TripStorage() TripStorage
	KVStorage() KeyValueStorage

	// LoadSettingsFromFiles seeds the key/value store from TOML files in a
	// directory. Missing directory is not an error.
	LoadSettingsFromFiles(ctx context.Context, dirPath string) error

	// LoadEnvFile seeds the key/value store from a .env file, overriding
	// file-based settings. Missing file is not an error.
	LoadEnvFile(ctx context.Context, filePath string) error

	// RunGC triggers a value-log garbage collection pass on the backend
	RunGC(ctx context.Context) error

	Close() error
}

package interfaces

import (
	"context"
	"time"

	"github.com/routewise/routewise/internal/models"
)

// DraftService is the reusable expiring-draft utility. Drafts live under a
// storage key, expire after a configured TTL, and are deleted on the read
// that discovers them expired.
type DraftService interface {
	// SaveDraft stamps lastUpdated/expiresAt and persists the draft
	SaveDraft(ctx context.Context, key string, draft *models.Draft) (*models.Draft, error)

	// LoadDraft returns the stored draft. An expired draft is deleted as a
	// side effect and reported as ErrDraftNotFound.
	LoadDraft(ctx context.Context, key string) (*models.Draft, error)

	// ClearDraft removes the draft unconditionally; clearing a missing
	// draft is not an error
	ClearDraft(ctx context.Context, key string) error

	// Status describes the stored draft without consuming it
	Status(ctx context.Context, key string) (*models.DraftStatus, error)

	// Age renders a humanized age ("just now", "N minutes ago", ...)
	Age(draft *models.Draft, now time.Time) string

	// IsRecent reports whether the draft was updated within the recent window
	IsRecent(draft *models.Draft, now time.Time) bool

	// SweepExpired deletes every expired draft and returns the count
	SweepExpired(ctx context.Context) (int, error)
}

// PlaceService owns the bookmarked trip-place collection
type PlaceService interface {
	AddPlace(ctx context.Context, place *models.TripPlace) error
	RemovePlace(ctx context.Context, key models.PlaceKey) error
	GetPlace(ctx context.Context, key models.PlaceKey) (*models.TripPlace, error)
	ListPlaces(ctx context.Context) ([]*models.TripPlace, error)

	// SeedFromFiles loads place collections from YAML/TOML/JSON files,
	// skipping invalid entries. Returns the number of places added.
	SeedFromFiles(ctx context.Context, paths []string) (int, error)

	// MapsAPIKey resolves the optional maps key: environment, then the
	// dedicated KV key, then cached route/explore page data, then config.
	// Empty means not available.
	MapsAPIKey(ctx context.Context) string
}

// TripService assembles and persists saved trips
type TripService interface {
	// SaveTrip derives cities from place addresses when the request has
	// none, persists the trip, and caches its id
	SaveTrip(ctx context.Context, req *models.SaveTripRequest) (*models.Trip, error)

	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	ListTrips(ctx context.Context) ([]*models.Trip, error)
	DeleteTrip(ctx context.Context, id string) error

	// LastSavedTripID returns the cached id of the most recent save, empty
	// when none exists
	LastSavedTripID(ctx context.Context) string
}

// ExportService renders the itinerary for sharing and printing
type ExportService interface {
	// HTML renders a standalone HTML document; place notes are treated as
	// Markdown
	HTML(ctx context.Context, state *models.ItineraryState) ([]byte, error)

	// PDF renders a printable itinerary
	PDF(ctx context.Context, state *models.ItineraryState) ([]byte, error)
}

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
}

// SchedulerService manages cron-based background maintenance
type SchedulerService interface {
	// RegisterJob registers a named job with a cron schedule
	RegisterJob(name string, schedule string, handler func() error) error

	// Start begins executing registered jobs
	Start() error

	// Stop halts the scheduler
	Stop() error

	// IsRunning returns true if the scheduler is active
	IsRunning() bool

	// GetAllJobStatuses returns all job statuses
	GetAllJobStatuses() map[string]*JobStatus
}

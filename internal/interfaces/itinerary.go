package interfaces

import (
	"context"
	"errors"

	"github.com/routewise/routewise/internal/models"
)

var (
	// ErrDuplicateAssignment is returned when a place is assigned while its
	// key is already present on some day. The state is left unchanged.
	ErrDuplicateAssignment = errors.New("place already assigned")

	// ErrDayOutOfRange is returned for day indices outside the current days
	ErrDayOutOfRange = errors.New("day index out of range")

	// ErrInvalidOrder is returned when a reorder does not supply a
	// permutation of the day's current places
	ErrInvalidOrder = errors.New("order is not a permutation of the day")

	// ErrEmptyPlaceKey is returned when a place resolves to no identifier
	ErrEmptyPlaceKey = errors.New("place has no identifier")
)

// ItineraryStore is the injected state container for the day-partitioned
// itinerary. Every mutation is a single atomic transition that keeps the
// assigned-key set equal to the union of keys across all days, persists the
// new state, and publishes change events.
type ItineraryStore interface {
	// Snapshot returns a deep copy of the current state
	Snapshot() *models.ItineraryState

	// SortedSnapshot returns a deep copy with each day's places in display
	// order (dayOrder primary, scheduledTime fallback)
	SortedSnapshot() *models.ItineraryState

	// AddDay appends a day dated first day + 24h * count and activates it
	AddDay(ctx context.Context) (dayIndex int, err error)

	// AssignPlace appends a place to a day, rejecting duplicate keys
	AssignPlace(ctx context.Context, place *models.ItineraryPlace, dayIndex int) error

	// MovePlace relocates an assigned place between days in one transition.
	// targetIndex is clamped to the target day's length.
	MovePlace(ctx context.Context, key models.PlaceKey, fromDay, toDay, targetIndex int) error

	// RemovePlace removes a place from whichever day holds it. Removing an
	// unassigned key is a no-op.
	RemovePlace(ctx context.Context, key models.PlaceKey) error

	// UpdatePlace merges patch fields into the place in place; unknown keys
	// are a silent no-op
	UpdatePlace(ctx context.Context, key models.PlaceKey, patch models.PlacePatch) error

	// ReorderDay replaces a day's order with the supplied key permutation
	// and renumbers dayOrder contiguously from zero
	ReorderDay(ctx context.Context, dayIndex int, orderedKeys []models.PlaceKey) error

	// SetTripTitle updates the display title
	SetTripTitle(ctx context.Context, title string) error

	// SetActiveDay updates the displayed day, bounds-checked
	SetActiveDay(ctx context.Context, index int) error

	// Clear resets to the default single empty day
	Clear(ctx context.Context) error

	// Unassigned filters the given collection down to places whose key is
	// not assigned to any day (the pool view)
	Unassigned(places []*models.TripPlace) []*models.TripPlace

	// HandleDrop applies the drag-and-drop transfer protocol: raw payload
	// plus target zone. Malformed payloads are tolerated silently; applied
	// reports whether any state changed.
	HandleDrop(ctx context.Context, payload []byte, zone string) (applied bool, err error)
}

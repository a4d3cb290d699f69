// -----------------------------------------------------------------------
// Itinerary Store - single source of truth for the day-partitioned trip
// -----------------------------------------------------------------------

package itinerary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// Store holds the itinerary state: the ordered days, the active day, the
// trip title, and the derived assigned-key set. Every mutation runs as one
// critical section that re-establishes the invariants (key set == union of
// keys across days, dayOrder contiguous after reorders), persists the new
// state, and publishes change events. Persistence failures are logged and
// swallowed; the in-memory state stays authoritative.
type Store struct {
	mu       sync.RWMutex
	state    *models.ItineraryState
	assigned map[models.PlaceKey]struct{}

	storage     interfaces.ItineraryStorage
	events      interfaces.EventService
	logger      arbor.ILogger
	defaultTime string
}

// NewStore creates a store with the default single-day state. Call Load to
// hydrate persisted state.
func NewStore(storage interfaces.ItineraryStorage, eventService interfaces.EventService, defaultScheduledTime string, logger arbor.ILogger) *Store {
	if defaultScheduledTime == "" {
		defaultScheduledTime = "09:00"
	}
	return &Store{
		state:       models.NewDefaultItineraryState(time.Now()),
		assigned:    make(map[models.PlaceKey]struct{}),
		storage:     storage,
		events:      eventService,
		logger:      logger,
		defaultTime: defaultScheduledTime,
	}
}

// Load hydrates the store from persisted state. Corrupt or missing entries
// fall back to the default state inside the storage layer; the assigned-key
// set is rebuilt from the restored days.
func (s *Store) Load(ctx context.Context) error {
	state, fallback, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load itinerary state: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.assigned = state.AssignedKeys()
	s.mu.Unlock()

	s.logger.Info().
		Int("days", len(state.Days)).
		Int("places", state.PlaceCount()).
		Bool("fallback", fallback).
		Msg("Itinerary state loaded")

	return nil
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() *models.ItineraryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// SortedSnapshot returns a deep copy with each day's places in display order
func (s *Store) SortedSnapshot() *models.ItineraryState {
	snapshot := s.Snapshot()
	for i := range snapshot.Days {
		SortDayPlaces(snapshot.Days[i].Places)
	}
	return snapshot
}

// AddDay appends a new day dated first day + 24h per existing day and makes
// it the active day.
func (s *Store) AddDay(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	firstDate := s.state.Days[0].Date
	newDay := models.DayData{
		Date:   firstDate.AddDate(0, 0, len(s.state.Days)),
		Places: []models.ItineraryPlace{},
	}
	s.state.Days = append(s.state.Days, newDay)
	index := len(s.state.Days) - 1
	s.state.ActiveDay = index

	s.commit(ctx)
	return index, nil
}

// AssignPlace appends a place to the given day. A key that is already
// assigned anywhere is rejected without touching state; this guards against
// stale drag payloads re-assigning a scheduled place.
func (s *Store) AssignPlace(ctx context.Context, place *models.ItineraryPlace, dayIndex int) error {
	if place == nil {
		return interfaces.ErrEmptyPlaceKey
	}
	key := place.Key()
	if key == "" {
		return interfaces.ErrEmptyPlaceKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dayIndex < 0 || dayIndex >= len(s.state.Days) {
		return interfaces.ErrDayOutOfRange
	}
	if _, exists := s.assigned[key]; exists {
		s.notify(ctx, interfaces.NoticeWarning, fmt.Sprintf("%s is already in your itinerary", place.Name))
		return interfaces.ErrDuplicateAssignment
	}

	assigned := place.Clone()
	assigned.DayIndex = models.IntPtr(dayIndex)
	if assigned.ScheduledTime == "" {
		assigned.ScheduledTime = s.defaultTime
	}
	assigned.DayOrder = models.IntPtr(len(s.state.Days[dayIndex].Places))

	s.state.Days[dayIndex].Places = append(s.state.Days[dayIndex].Places, *assigned)
	s.assigned[key] = struct{}{}

	s.commit(ctx)
	s.notify(ctx, interfaces.NoticeSuccess, fmt.Sprintf("Added %s to Day %d", place.Name, dayIndex+1))
	return nil
}

// MovePlace relocates an assigned place from one day to another as a single
// transition; the key set never passes through an unassigned intermediate
// state. A negative targetIndex appends at the end of the target day; both
// days are renumbered contiguously afterwards.
func (s *Store) MovePlace(ctx context.Context, key models.PlaceKey, fromDay, toDay, targetIndex int) error {
	if key == "" {
		return interfaces.ErrEmptyPlaceKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fromDay < 0 || fromDay >= len(s.state.Days) || toDay < 0 || toDay >= len(s.state.Days) {
		return interfaces.ErrDayOutOfRange
	}

	source := &s.state.Days[fromDay]
	pos := -1
	for i := range source.Places {
		if source.Places[i].Key() == key {
			pos = i
			break
		}
	}
	if pos == -1 {
		return interfaces.ErrPlaceNotFound
	}

	place := source.Places[pos]
	source.Places = append(source.Places[:pos], source.Places[pos+1:]...)
	renumber(source.Places)

	target := &s.state.Days[toDay]
	if targetIndex < 0 || targetIndex > len(target.Places) {
		targetIndex = len(target.Places)
	}
	place.DayIndex = models.IntPtr(toDay)
	target.Places = append(target.Places, models.ItineraryPlace{})
	copy(target.Places[targetIndex+1:], target.Places[targetIndex:])
	target.Places[targetIndex] = place
	renumber(target.Places)

	s.commit(ctx)
	s.notify(ctx, interfaces.NoticeSuccess, fmt.Sprintf("Moved %s to Day %d", place.Name, toDay+1))
	return nil
}

// RemovePlace removes a place from whichever day holds it and drops its key
// from the assigned set unconditionally. Removing an unknown key is a no-op
// apart from the removal notice.
func (s *Store) RemovePlace(ctx context.Context, key models.PlaceKey) error {
	if key == "" {
		return interfaces.ErrEmptyPlaceKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removedName := ""
	for i := range s.state.Days {
		places := s.state.Days[i].Places
		for j := range places {
			if places[j].Key() == key {
				removedName = places[j].Name
				s.state.Days[i].Places = append(places[:j], places[j+1:]...)
				break
			}
		}
		if removedName != "" {
			break
		}
	}

	_, wasAssigned := s.assigned[key]
	delete(s.assigned, key)

	if removedName != "" || wasAssigned {
		s.commit(ctx)
	}
	if removedName == "" {
		removedName = "place"
	}
	s.notify(ctx, interfaces.NoticeInfo, fmt.Sprintf("Removed %s from your itinerary", removedName))
	return nil
}

// UpdatePlace merges patch fields into the matching place. An unknown key is
// a silent no-op.
func (s *Store) UpdatePlace(ctx context.Context, key models.PlaceKey, patch models.PlacePatch) error {
	if key == "" {
		return interfaces.ErrEmptyPlaceKey
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("invalid place update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Days {
		for j := range s.state.Days[i].Places {
			place := &s.state.Days[i].Places[j]
			if place.Key() != key {
				continue
			}
			if patch.ScheduledTime != nil {
				place.ScheduledTime = *patch.ScheduledTime
			}
			if patch.Notes != nil {
				place.Notes = *patch.Notes
			}
			s.commit(ctx)
			return nil
		}
	}

	return nil
}

// ReorderDay replaces a day's order with the supplied permutation of its
// current keys and renumbers dayOrder contiguously from zero.
func (s *Store) ReorderDay(ctx context.Context, dayIndex int, orderedKeys []models.PlaceKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dayIndex < 0 || dayIndex >= len(s.state.Days) {
		return interfaces.ErrDayOutOfRange
	}

	day := &s.state.Days[dayIndex]
	if len(orderedKeys) != len(day.Places) {
		return interfaces.ErrInvalidOrder
	}

	current := make(map[models.PlaceKey]models.ItineraryPlace, len(day.Places))
	for i := range day.Places {
		current[day.Places[i].Key()] = day.Places[i]
	}

	reordered := make([]models.ItineraryPlace, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		place, ok := current[key]
		if !ok {
			return interfaces.ErrInvalidOrder
		}
		delete(current, key)
		reordered = append(reordered, place)
	}

	day.Places = reordered
	renumber(day.Places)

	s.commit(ctx)
	s.notify(ctx, interfaces.NoticeInfo, fmt.Sprintf("Day %d order updated", dayIndex+1))
	return nil
}

// SetTripTitle updates the display title
func (s *Store) SetTripTitle(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TripTitle = title
	s.commit(ctx)
	return nil
}

// SetActiveDay updates the displayed day
func (s *Store) SetActiveDay(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.state.Days) {
		return interfaces.ErrDayOutOfRange
	}
	s.state.ActiveDay = index
	s.commit(ctx)
	return nil
}

// Clear resets to the default single empty day and empties the key set
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = models.NewDefaultItineraryState(time.Now())
	s.assigned = make(map[models.PlaceKey]struct{})

	s.commit(ctx)
	s.notify(ctx, interfaces.NoticeInfo, "Itinerary cleared")
	return nil
}

// Unassigned filters the collection down to places not assigned to any day
func (s *Store) Unassigned(places []*models.TripPlace) []*models.TripPlace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := make([]*models.TripPlace, 0, len(places))
	for _, place := range places {
		if _, assigned := s.assigned[place.Key()]; !assigned {
			pool = append(pool, place)
		}
	}
	return pool
}

// renumber rewrites dayOrder to the positional index, 0-based contiguous
func renumber(places []models.ItineraryPlace) {
	for i := range places {
		places[i].DayOrder = models.IntPtr(i)
	}
}

// commit persists the current state and publishes the change event. Callers
// hold the write lock. Persistence failures are logged, never propagated;
// the next successful mutation writes the full state again.
func (s *Store) commit(ctx context.Context) {
	if err := s.storage.Save(ctx, s.state); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist itinerary state")
	}

	if s.events != nil {
		event := interfaces.Event{
			Type: interfaces.EventItineraryChanged,
			Payload: map[string]interface{}{
				"days":       len(s.state.Days),
				"places":     s.state.PlaceCount(),
				"active_day": s.state.ActiveDay,
			},
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish itinerary change event")
		}
	}
}

// notify publishes a user-visible notice event
func (s *Store) notify(ctx context.Context, level string, message string) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{
		Type:    interfaces.EventNotice,
		Payload: interfaces.NoticePayload{Level: level, Message: message},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("message", message).Msg("Failed to publish notice")
	}
}

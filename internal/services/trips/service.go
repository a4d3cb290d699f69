package trips

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// Service assembles and persists saved trips.
type Service struct {
	storage      interfaces.TripStorage
	kv           interfaces.KeyValueStorage
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a trip service.
func NewService(storage interfaces.TripStorage, kv interfaces.KeyValueStorage, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		storage:      storage,
		kv:           kv,
		eventService: eventService,
		logger:       logger,
	}
}

// BuildPayload assembles a save request from the current itinerary state.
// The request carries deep-copied days so later itinerary mutations cannot
// reach the payload, plus the city list derived from place addresses.
func BuildPayload(state *models.ItineraryState, title string) *models.SaveTripRequest {
	if state == nil {
		return &models.SaveTripRequest{Title: title}
	}
	if title == "" {
		title = state.TripTitle
	}
	clone := state.Clone()
	return &models.SaveTripRequest{
		Title:  title,
		Days:   clone.Days,
		Cities: DeriveCities(clone.Days),
	}
}

// DeriveCities extracts the city list from place addresses in day and place
// order. The city is the second comma-separated segment of the address, or
// the first when the second is missing or blank. Duplicates keep their
// first-seen position.
func DeriveCities(days []models.DayData) []string {
	cities := []string{}
	seen := make(map[string]struct{})
	for i := range days {
		for j := range days[i].Places {
			city := cityFromAddress(days[i].Places[j].Address)
			if city == "" {
				continue
			}
			if _, ok := seen[city]; ok {
				continue
			}
			seen[city] = struct{}{}
			cities = append(cities, city)
		}
	}
	return cities
}

func cityFromAddress(address string) string {
	if address == "" {
		return ""
	}
	parts := strings.Split(address, ",")
	if len(parts) >= 2 {
		if city := strings.TrimSpace(parts[1]); city != "" {
			return city
		}
	}
	return strings.TrimSpace(parts[0])
}

// SaveTrip validates the request, derives cities when the caller supplied
// none, assigns a fresh trip id, persists the record and caches the id.
func (s *Service) SaveTrip(ctx context.Context, req *models.SaveTripRequest) (*models.Trip, error) {
	if req == nil {
		return nil, fmt.Errorf("save request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid save request: %w", err)
	}

	cities := req.Cities
	if len(cities) == 0 {
		cities = DeriveCities(req.Days)
	}

	now := time.Now()
	trip := &models.Trip{
		ID:         common.NewTripID(),
		Title:      req.Title,
		Days:       req.Days,
		Cities:     cities,
		PlaceCount: countPlaces(req.Days),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.storage.SaveTrip(ctx, trip); err != nil {
		s.logger.Error().Err(err).Str("title", trip.Title).Msg("Failed to save trip")
		s.publishEvent(ctx, interfaces.EventTripSaveFailed, map[string]interface{}{
			"error": err.Error(),
		})
		s.notify(ctx, interfaces.NoticeError, "Failed to save trip")
		return nil, fmt.Errorf("failed to save trip: %w", err)
	}

	if s.kv != nil {
		if err := s.kv.Set(ctx, models.StorageKeyLastTripID, trip.ID, "Most recently saved trip"); err != nil {
			s.logger.Warn().Err(err).Str("trip_id", trip.ID).Msg("Failed to cache trip id")
		}
	}

	s.logger.Info().
		Str("trip_id", trip.ID).
		Str("title", trip.Title).
		Int("days", len(trip.Days)).
		Int("places", trip.PlaceCount).
		Msg("Trip saved")

	s.publishEvent(ctx, interfaces.EventTripSaved, map[string]interface{}{
		"trip_id": trip.ID,
		"title":   trip.Title,
		"days":    len(trip.Days),
		"places":  trip.PlaceCount,
	})
	s.notify(ctx, interfaces.NoticeSuccess, "Trip saved")

	return trip, nil
}

// GetTrip retrieves a saved trip by id.
func (s *Service) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	if id == "" {
		return nil, interfaces.ErrTripNotFound
	}
	return s.storage.GetTrip(ctx, id)
}

// ListTrips returns all saved trips, newest first.
func (s *Service) ListTrips(ctx context.Context) ([]*models.Trip, error) {
	return s.storage.ListTrips(ctx)
}

// DeleteTrip removes a saved trip.
func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	if id == "" {
		return interfaces.ErrTripNotFound
	}
	if err := s.storage.DeleteTrip(ctx, id); err != nil {
		return err
	}
	s.logger.Debug().Str("trip_id", id).Msg("Trip deleted")
	return nil
}

// LastSavedTripID returns the cached id of the most recent save, empty when
// nothing has been saved yet.
func (s *Service) LastSavedTripID(ctx context.Context) string {
	if s.kv == nil {
		return ""
	}
	id, err := s.kv.Get(ctx, models.StorageKeyLastTripID)
	if err != nil {
		return ""
	}
	return id
}

func countPlaces(days []models.DayData) int {
	count := 0
	for i := range days {
		count += len(days[i].Places)
	}
	return count
}

func (s *Service) notify(ctx context.Context, level, message string) {
	s.publishEvent(ctx, interfaces.EventNotice, interfaces.NoticePayload{Level: level, Message: message})
}

// publishEvent publishes an event if the event service is available
func (s *Service) publishEvent(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.eventService == nil {
		return
	}
	if err := s.eventService.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish event")
	}
}

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// ItineraryStorage persists the itinerary state envelope as a JSON string
// in the key/value keyspace, under the fixed document key. Keeping the
// envelope as a raw string means externally-written garbage (for example
// through the KV API) surfaces as the documented fallback instead of a
// decode crash.
type ItineraryStorage struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewItineraryStorage creates a new ItineraryStorage instance
func NewItineraryStorage(kv interfaces.KeyValueStorage, logger arbor.ILogger) interfaces.ItineraryStorage {
	return &ItineraryStorage{
		kv:     kv,
		logger: logger,
	}
}

// Save serializes the state and writes it under the itinerary document key
func (s *ItineraryStorage) Save(ctx context.Context, state *models.ItineraryState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize itinerary state: %w", err)
	}

	if err := s.kv.Set(ctx, models.StorageKeyItinerary, string(data), "Itinerary state envelope"); err != nil {
		return fmt.Errorf("failed to persist itinerary state: %w", err)
	}

	return nil
}

// Load reads and parses the stored state. Missing, corrupt, or dayless
// envelopes fall back to the default single-day state with fallback=true;
// only backend failures surface as errors.
func (s *ItineraryStorage) Load(ctx context.Context) (*models.ItineraryState, bool, error) {
	raw, err := s.kv.Get(ctx, models.StorageKeyItinerary)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return models.NewDefaultItineraryState(time.Now()), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read itinerary state: %w", err)
	}

	var state models.ItineraryState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn().Err(err).Msg("Stored itinerary state is corrupt, falling back to default")
		return models.NewDefaultItineraryState(time.Now()), true, nil
	}
	if len(state.Days) == 0 {
		s.logger.Warn().Msg("Stored itinerary state has no days, falling back to default")
		return models.NewDefaultItineraryState(time.Now()), true, nil
	}

	normalizeState(&state)
	return &state, false, nil
}

// Clear removes the stored state. Clearing an absent state is a no-op.
func (s *ItineraryStorage) Clear(ctx context.Context) error {
	err := s.kv.Delete(ctx, models.StorageKeyItinerary)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear itinerary state: %w", err)
	}
	return nil
}

// normalizeState repairs fields that external writers may have skewed:
// the active day is clamped into range, place slices are made non-nil, and
// each place's dayIndex is rewritten to its containing day.
func normalizeState(state *models.ItineraryState) {
	if state.ActiveDay < 0 || state.ActiveDay >= len(state.Days) {
		state.ActiveDay = 0
	}
	for i := range state.Days {
		if state.Days[i].Places == nil {
			state.Days[i].Places = []models.ItineraryPlace{}
		}
		for j := range state.Days[i].Places {
			state.Days[i].Places[j].DayIndex = models.IntPtr(i)
		}
	}
}

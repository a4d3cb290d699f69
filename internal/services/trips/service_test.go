package trips

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

type mockTripStorage struct {
	mu      sync.Mutex
	trips   map[string]*models.Trip
	saveErr error
}

func newMockTripStorage() *mockTripStorage {
	return &mockTripStorage{trips: make(map[string]*models.Trip)}
}

func (m *mockTripStorage) SaveTrip(ctx context.Context, trip *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *trip
	m.trips[trip.ID] = &copied
	return nil
}

func (m *mockTripStorage) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, interfaces.ErrTripNotFound
	}
	copied := *trip
	return &copied, nil
}

func (m *mockTripStorage) DeleteTrip(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return interfaces.ErrTripNotFound
	}
	delete(m.trips, id)
	return nil
}

func (m *mockTripStorage) ListTrips(ctx context.Context) ([]*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trips := make([]*models.Trip, 0, len(m.trips))
	for _, trip := range m.trips {
		copied := *trip
		trips = append(trips, &copied)
	}
	return trips, nil
}

func (m *mockTripStorage) CountTrips(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trips), nil
}

type mockKVStorage struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMockKVStorage() *mockKVStorage {
	return &mockKVStorage{values: make(map[string]string)}
}

func (m *mockKVStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *mockKVStorage) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	value, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &interfaces.KeyValuePair{Key: key, Value: value}, nil
}

func (m *mockKVStorage) Set(ctx context.Context, key string, value string, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockKVStorage) Upsert(ctx context.Context, key string, value string, description string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.values[key]
	m.values[key] = value
	return !existed, nil
}

func (m *mockKVStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *mockKVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}

type mockEventService struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func newMockEventService() *mockEventService {
	return &mockEventService{}
}

func (m *mockEventService) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (m *mockEventService) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (m *mockEventService) Publish(ctx context.Context, event interfaces.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventService) PublishSync(ctx context.Context, event interfaces.Event) error {
	return m.Publish(ctx, event)
}

func (m *mockEventService) Close() error { return nil }

func (m *mockEventService) countByType(eventType interfaces.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, event := range m.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func (m *mockEventService) notices() []interfaces.NoticePayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	payloads := []interfaces.NoticePayload{}
	for _, event := range m.events {
		if event.Type == interfaces.EventNotice {
			if payload, ok := event.Payload.(interfaces.NoticePayload); ok {
				payloads = append(payloads, payload)
			}
		}
	}
	return payloads
}

func newTestService(t *testing.T) (*Service, *mockTripStorage, *mockKVStorage, *mockEventService) {
	t.Helper()
	storage := newMockTripStorage()
	kv := newMockKVStorage()
	events := newMockEventService()
	service := NewService(storage, kv, events, arbor.NewLogger())
	return service, storage, kv, events
}

func placeAt(placeID, name, address string) models.ItineraryPlace {
	return models.ItineraryPlace{
		TripPlace: models.TripPlace{PlaceID: placeID, Name: name, Address: address},
	}
}

func twoDayState() *models.ItineraryState {
	day0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return &models.ItineraryState{
		Days: []models.DayData{
			{
				Date: day0,
				Places: []models.ItineraryPlace{
					placeAt("louvre", "Louvre Museum", "Rue de Rivoli, Paris, France"),
					placeAt("orsay", "Musée d'Orsay", "Esplanade Valéry Giscard d'Estaing, Paris, France"),
				},
			},
			{
				Date: day0.AddDate(0, 0, 1),
				Places: []models.ItineraryPlace{
					placeAt("atomium", "Atomium", "Pl. de l'Atomium 1, Brussels, Belgium"),
				},
			},
		},
		ActiveDay: 1,
		TripTitle: "Spring Tour",
	}
}

func TestDeriveCities(t *testing.T) {
	tests := []struct {
		name      string
		addresses []string
		expected  []string
	}{
		{
			name:      "second segment wins",
			addresses: []string{"Rue de Rivoli, Paris, France"},
			expected:  []string{"Paris"},
		},
		{
			name:      "single segment falls back to itself",
			addresses: []string{"Paris"},
			expected:  []string{"Paris"},
		},
		{
			name:      "blank second segment falls back to first",
			addresses: []string{"Lyon, "},
			expected:  []string{"Lyon"},
		},
		{
			name:      "duplicates keep first-seen order",
			addresses: []string{"A St, Paris, FR", "B St, Brussels, BE", "C St, Paris, FR"},
			expected:  []string{"Paris", "Brussels"},
		},
		{
			name:      "empty addresses are skipped",
			addresses: []string{"", "D St, Ghent, BE"},
			expected:  []string{"Ghent"},
		},
		{
			name:      "no addresses yields empty list",
			addresses: []string{""},
			expected:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := make([]models.ItineraryPlace, 0, len(tt.addresses))
			for i, address := range tt.addresses {
				places = append(places, placeAt("p", "Place", address))
				places[i].PlaceID = string(rune('a' + i))
			}
			days := []models.DayData{{Date: time.Now(), Places: places}}
			assert.Equal(t, tt.expected, DeriveCities(days))
		})
	}
}

func TestBuildPayload(t *testing.T) {
	state := twoDayState()

	payload := BuildPayload(state, "")
	require.NotNil(t, payload)
	assert.Equal(t, "Spring Tour", payload.Title)
	assert.Equal(t, []string{"Paris", "Brussels"}, payload.Cities)
	require.Len(t, payload.Days, 2)

	// The payload must not alias the live state.
	state.Days[0].Places[0].Name = "Mutated"
	assert.Equal(t, "Louvre Museum", payload.Days[0].Places[0].Name)
}

func TestBuildPayload_TitleOverride(t *testing.T) {
	payload := BuildPayload(twoDayState(), "Weekend Getaway")
	assert.Equal(t, "Weekend Getaway", payload.Title)
}

func TestBuildPayload_NilState(t *testing.T) {
	payload := BuildPayload(nil, "Empty")
	require.NotNil(t, payload)
	assert.Equal(t, "Empty", payload.Title)
	assert.Empty(t, payload.Days)
}

func TestTripService_SaveTrip(t *testing.T) {
	service, storage, kv, events := newTestService(t)
	ctx := context.Background()

	req := BuildPayload(twoDayState(), "")
	trip, err := service.SaveTrip(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, trip)

	assert.True(t, strings.HasPrefix(trip.ID, "trip_"), "trip id should carry the trip_ prefix, got %q", trip.ID)
	assert.Equal(t, "Spring Tour", trip.Title)
	assert.Equal(t, 3, trip.PlaceCount)
	assert.Equal(t, []string{"Paris", "Brussels"}, trip.Cities)
	assert.False(t, trip.CreatedAt.IsZero())

	stored, err := storage.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, stored.ID)

	cached, err := kv.Get(ctx, models.StorageKeyLastTripID)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, cached)

	assert.Equal(t, 1, events.countByType(interfaces.EventTripSaved))
	notices := events.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, interfaces.NoticeSuccess, notices[0].Level)
	assert.Equal(t, "Trip saved", notices[0].Message)
}

func TestTripService_SaveTripDerivesCitiesWhenMissing(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	req := &models.SaveTripRequest{
		Title: "No cities supplied",
		Days:  twoDayState().Days,
	}
	trip, err := service.SaveTrip(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris", "Brussels"}, trip.Cities)
}

func TestTripService_SaveTripKeepsCallerCities(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	req := &models.SaveTripRequest{
		Title:  "Caller cities",
		Days:   twoDayState().Days,
		Cities: []string{"Custom"},
	}
	trip, err := service.SaveTrip(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Custom"}, trip.Cities)
}

func TestTripService_SaveTripValidation(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.SaveTrip(ctx, nil)
	assert.Error(t, err)

	_, err = service.SaveTrip(ctx, &models.SaveTripRequest{Title: "No days"})
	assert.Error(t, err)
}

func TestTripService_SaveTripStorageFailure(t *testing.T) {
	service, storage, kv, events := newTestService(t)
	ctx := context.Background()
	storage.saveErr = assert.AnError

	_, err := service.SaveTrip(ctx, BuildPayload(twoDayState(), ""))
	require.Error(t, err)

	assert.Equal(t, 1, events.countByType(interfaces.EventTripSaveFailed))
	assert.Equal(t, 0, events.countByType(interfaces.EventTripSaved))
	notices := events.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, interfaces.NoticeError, notices[0].Level)

	_, err = kv.Get(ctx, models.StorageKeyLastTripID)
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestTripService_SaveTripToleratesCacheFailure(t *testing.T) {
	service, _, kv, events := newTestService(t)
	ctx := context.Background()
	kv.setErr = assert.AnError

	trip, err := service.SaveTrip(ctx, BuildPayload(twoDayState(), ""))
	require.NoError(t, err)
	require.NotNil(t, trip)
	assert.Equal(t, 1, events.countByType(interfaces.EventTripSaved))
	assert.Equal(t, "", service.LastSavedTripID(ctx))
}

func TestTripService_GetAndDelete(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	trip, err := service.SaveTrip(ctx, BuildPayload(twoDayState(), ""))
	require.NoError(t, err)

	loaded, err := service.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.Title, loaded.Title)

	require.NoError(t, service.DeleteTrip(ctx, trip.ID))
	_, err = service.GetTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, interfaces.ErrTripNotFound)

	_, err = service.GetTrip(ctx, "")
	assert.ErrorIs(t, err, interfaces.ErrTripNotFound)
	assert.ErrorIs(t, service.DeleteTrip(ctx, ""), interfaces.ErrTripNotFound)
}

func TestTripService_LastSavedTripID(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.Equal(t, "", service.LastSavedTripID(ctx))

	trip, err := service.SaveTrip(ctx, BuildPayload(twoDayState(), ""))
	require.NoError(t, err)
	assert.Equal(t, trip.ID, service.LastSavedTripID(ctx))
}

func TestTripService_ListTrips(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.SaveTrip(ctx, BuildPayload(twoDayState(), ""))
		require.NoError(t, err)
	}

	trips, err := service.ListTrips(ctx)
	require.NoError(t, err)
	assert.Len(t, trips, 3)
}

package places

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

type mockPlaceStorage struct {
	mu     sync.Mutex
	places map[models.PlaceKey]*models.TripPlace
	errOn  map[models.PlaceKey]error
}

func newMockPlaceStorage() *mockPlaceStorage {
	return &mockPlaceStorage{
		places: make(map[models.PlaceKey]*models.TripPlace),
		errOn:  make(map[models.PlaceKey]error),
	}
}

func (m *mockPlaceStorage) SavePlace(ctx context.Context, place *models.TripPlace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[place.Key()]; err != nil {
		return err
	}
	copied := *place
	m.places[place.Key()] = &copied
	return nil
}

func (m *mockPlaceStorage) GetPlace(ctx context.Context, key models.PlaceKey) (*models.TripPlace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[key]; err != nil {
		return nil, err
	}
	place, ok := m.places[key]
	if !ok {
		return nil, interfaces.ErrPlaceNotFound
	}
	copied := *place
	return &copied, nil
}

func (m *mockPlaceStorage) DeletePlace(ctx context.Context, key models.PlaceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.places[key]; !ok {
		return interfaces.ErrPlaceNotFound
	}
	delete(m.places, key)
	return nil
}

func (m *mockPlaceStorage) ListPlaces(ctx context.Context) ([]*models.TripPlace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	places := make([]*models.TripPlace, 0, len(m.places))
	for _, place := range m.places {
		copied := *place
		places = append(places, &copied)
	}
	return places, nil
}

func (m *mockPlaceStorage) CountPlaces(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.places), nil
}

type mockKVStorage struct {
	mu     sync.Mutex
	values map[string]string
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
	if _, ok := m.values[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.values, key)
	return nil
}

func (m *mockKVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := make([]interfaces.KeyValuePair, 0, len(m.values))
	for key, value := range m.values {
		pairs = append(pairs, interfaces.KeyValuePair{Key: key, Value: value})
	}
	return pairs, nil
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

func newTestService(t *testing.T) (*Service, *mockPlaceStorage, *mockKVStorage, *mockEventService) {
	t.Helper()
	storage := newMockPlaceStorage()
	kv := newMockKVStorage()
	events := newMockEventService()
	config := common.NewDefaultConfig().Places
	service := NewService(storage, kv, events, &config, arbor.NewLogger())
	return service, storage, kv, events
}

func writeSeedFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPlaceService_AddPlace(t *testing.T) {
	service, storage, _, events := newTestService(t)
	ctx := context.Background()

	err := service.AddPlace(ctx, &models.TripPlace{PlaceID: "louvre", Name: "Louvre Museum", Rating: 4.7})
	require.NoError(t, err)

	saved, err := storage.GetPlace(ctx, models.PlaceKey("louvre"))
	require.NoError(t, err)
	assert.Equal(t, "Louvre Museum", saved.Name)
	assert.Equal(t, 1, events.countByType(interfaces.EventNotice))
}

func TestPlaceService_AddPlaceValidation(t *testing.T) {
	service, storage, _, _ := newTestService(t)
	ctx := context.Background()

	err := service.AddPlace(ctx, &models.TripPlace{PlaceID: "no-name"})
	assert.Error(t, err)

	err = service.AddPlace(ctx, &models.TripPlace{PlaceID: "bad-rating", Name: "Bad", Rating: 9.5})
	assert.Error(t, err)

	err = service.AddPlace(ctx, &models.TripPlace{Name: "No identifier"})
	assert.ErrorIs(t, err, interfaces.ErrEmptyPlaceKey)

	err = service.AddPlace(ctx, nil)
	assert.Error(t, err)

	count, err := storage.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPlaceService_RemovePlace(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.AddPlace(ctx, &models.TripPlace{PlaceID: "eiffel", Name: "Eiffel Tower"}))
	require.NoError(t, service.RemovePlace(ctx, models.PlaceKey("eiffel")))

	_, err := service.GetPlace(ctx, models.PlaceKey("eiffel"))
	assert.ErrorIs(t, err, interfaces.ErrPlaceNotFound)

	assert.ErrorIs(t, service.RemovePlace(ctx, models.PlaceKey("")), interfaces.ErrEmptyPlaceKey)
}

func TestPlaceService_SeedFromYAML(t *testing.T) {
	service, storage, _, events := newTestService(t)
	ctx := context.Background()

	path := writeSeedFile(t, "places.yaml", `places:
  - placeId: louvre
    name: Louvre Museum
    category: museum
    rating: 4.7
    address: "Rue de Rivoli, Paris, France"
  - id: 42
    name: Jardin du Luxembourg
    category: park
`)

	added, err := service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	louvre, err := storage.GetPlace(ctx, models.PlaceKey("louvre"))
	require.NoError(t, err)
	assert.Equal(t, "museum", louvre.Category)
	assert.InDelta(t, 4.7, louvre.Rating, 0.001)

	park, err := storage.GetPlace(ctx, models.PlaceKey("42"))
	require.NoError(t, err)
	assert.Equal(t, "Jardin du Luxembourg", park.Name)

	assert.Equal(t, 1, events.countByType(interfaces.EventPlacesSeeded))
}

func TestPlaceService_SeedFromTOML(t *testing.T) {
	service, storage, _, _ := newTestService(t)
	ctx := context.Background()

	path := writeSeedFile(t, "places.toml", `[[places]]
placeId = "orsay"
name = "Musée d'Orsay"
rating = 4.6

[[places]]
placeId = "pompidou"
name = "Centre Pompidou"
`)

	added, err := service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	count, err := storage.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPlaceService_SeedFromJSON(t *testing.T) {
	service, storage, _, _ := newTestService(t)
	ctx := context.Background()

	path := writeSeedFile(t, "places.json", `{"places": [{"placeId": "notre-dame", "name": "Notre-Dame", "lat": 48.853, "lng": 2.3499}]}`)

	added, err := service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	place, err := storage.GetPlace(ctx, models.PlaceKey("notre-dame"))
	require.NoError(t, err)
	assert.InDelta(t, 48.853, place.Lat, 0.0001)
}

func TestPlaceService_SeedSkipsInvalidEntries(t *testing.T) {
	service, storage, _, _ := newTestService(t)
	ctx := context.Background()

	path := writeSeedFile(t, "places.yaml", `places:
  - placeId: good
    name: Good Place
  - placeId: no-name-entry
  - name: No identifier
  - placeId: bad-rating
    name: Bad Rating
    rating: 11
`)

	added, err := service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	count, err := storage.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlaceService_SeedSkipsBadFiles(t *testing.T) {
	service, _, _, events := newTestService(t)
	ctx := context.Background()

	broken := writeSeedFile(t, "broken.yaml", "places: [}{ not yaml")
	unsupported := writeSeedFile(t, "places.csv", "placeId,name\nlouvre,Louvre")

	added, err := service.SeedFromFiles(ctx, []string{
		broken,
		unsupported,
		filepath.Join(t.TempDir(), "missing.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, events.countByType(interfaces.EventPlacesSeeded))
}

func TestPlaceService_SeedIsIdempotent(t *testing.T) {
	service, storage, _, _ := newTestService(t)
	ctx := context.Background()

	path := writeSeedFile(t, "places.json", `{"places": [{"placeId": "louvre", "name": "Louvre Museum"}]}`)

	added, err := service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = service.SeedFromFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	count, err := storage.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlaceService_MapsAPIKeyFromEnv(t *testing.T) {
	service, _, kv, _ := newTestService(t)
	ctx := context.Background()

	t.Setenv("ROUTEWISE_MAPS_API_KEY", "env-key")
	require.NoError(t, kv.Set(ctx, models.StorageKeyMapsAPIKey, "kv-key", ""))

	assert.Equal(t, "env-key", service.MapsAPIKey(ctx))
}

func TestPlaceService_MapsAPIKeyFromKV(t *testing.T) {
	service, _, kv, _ := newTestService(t)
	ctx := context.Background()

	t.Setenv("ROUTEWISE_MAPS_API_KEY", "")
	require.NoError(t, kv.Set(ctx, models.StorageKeyMapsAPIKey, "kv-key", ""))
	require.NoError(t, kv.Set(ctx, models.StorageKeyRouteData, `{"apiKey": "route-key"}`, ""))

	assert.Equal(t, "kv-key", service.MapsAPIKey(ctx))
}

func TestPlaceService_MapsAPIKeyFromPageData(t *testing.T) {
	service, _, kv, _ := newTestService(t)
	ctx := context.Background()

	t.Setenv("ROUTEWISE_MAPS_API_KEY", "")
	require.NoError(t, kv.Set(ctx, models.StorageKeyRouteData, `{"apiKey": "route-key", "routes": []}`, ""))
	require.NoError(t, kv.Set(ctx, models.StorageKeyExploreData, `{"apiKey": "explore-key"}`, ""))

	assert.Equal(t, "route-key", service.MapsAPIKey(ctx))

	require.NoError(t, kv.Delete(ctx, models.StorageKeyRouteData))
	assert.Equal(t, "explore-key", service.MapsAPIKey(ctx))
}

func TestPlaceService_MapsAPIKeyFallsBackToConfig(t *testing.T) {
	storage := newMockPlaceStorage()
	kv := newMockKVStorage()
	config := common.PlacesConfig{MapsAPIKey: "config-key"}
	service := NewService(storage, kv, newMockEventService(), &config, arbor.NewLogger())
	ctx := context.Background()

	t.Setenv("ROUTEWISE_MAPS_API_KEY", "")
	require.NoError(t, kv.Set(ctx, models.StorageKeyRouteData, `{"noApiKeyHere": true}`, ""))

	assert.Equal(t, "config-key", service.MapsAPIKey(ctx))
}

func TestPlaceService_MapsAPIKeyEmpty(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	t.Setenv("ROUTEWISE_MAPS_API_KEY", "")
	assert.Equal(t, "", service.MapsAPIKey(ctx))
}

func TestPlaceService_ListPlaces(t *testing.T) {
	service, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := service.AddPlace(ctx, &models.TripPlace{
			PlaceID: fmt.Sprintf("place-%d", i),
			Name:    fmt.Sprintf("Place %d", i),
		})
		require.NoError(t, err)
	}

	places, err := service.ListPlaces(ctx)
	require.NoError(t, err)
	assert.Len(t, places, 3)
}

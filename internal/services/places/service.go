package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// Service manages the bookmarked-POI collection backing the itinerary pool.
type Service struct {
	storage      interfaces.PlaceStorage
	kv           interfaces.KeyValueStorage
	eventService interfaces.EventService
	logger       arbor.ILogger
	config       *common.PlacesConfig
}

// NewService creates a trip-place service.
func NewService(storage interfaces.PlaceStorage, kv interfaces.KeyValueStorage, eventService interfaces.EventService, config *common.PlacesConfig, logger arbor.ILogger) *Service {
	if config == nil {
		defaults := common.NewDefaultConfig().Places
		config = &defaults
	}
	return &Service{
		storage:      storage,
		kv:           kv,
		eventService: eventService,
		logger:       logger,
		config:       config,
	}
}

// AddPlace validates and stores a place, announcing the bookmark.
func (s *Service) AddPlace(ctx context.Context, place *models.TripPlace) error {
	if place == nil {
		return fmt.Errorf("place is required")
	}
	if err := place.Validate(); err != nil {
		return fmt.Errorf("invalid place: %w", err)
	}
	if place.Key() == "" {
		return interfaces.ErrEmptyPlaceKey
	}

	if err := s.storage.SavePlace(ctx, place); err != nil {
		return fmt.Errorf("failed to save place: %w", err)
	}

	s.logger.Debug().Str("key", string(place.Key())).Str("name", place.Name).Msg("Place added to collection")
	s.notify(ctx, interfaces.NoticeSuccess, fmt.Sprintf("Saved %s to your places", place.Name))
	return nil
}

// RemovePlace deletes a place from the collection.
func (s *Service) RemovePlace(ctx context.Context, key models.PlaceKey) error {
	if key == "" {
		return interfaces.ErrEmptyPlaceKey
	}
	if err := s.storage.DeletePlace(ctx, key); err != nil {
		return err
	}
	s.logger.Debug().Str("key", string(key)).Msg("Place removed from collection")
	return nil
}

// GetPlace retrieves a single place by key.
func (s *Service) GetPlace(ctx context.Context, key models.PlaceKey) (*models.TripPlace, error) {
	if key == "" {
		return nil, interfaces.ErrEmptyPlaceKey
	}
	return s.storage.GetPlace(ctx, key)
}

// ListPlaces returns the whole collection ordered by name.
func (s *Service) ListPlaces(ctx context.Context) ([]*models.TripPlace, error) {
	return s.storage.ListPlaces(ctx)
}

// seedFile is the on-disk shape shared by YAML, TOML and JSON seeds.
type seedFile struct {
	Places []seedEntry `json:"places" yaml:"places" toml:"places"`
}

// seedEntry mirrors TripPlace with explicit tags for every codec.
type seedEntry struct {
	ID          int64   `json:"id" yaml:"id" toml:"id"`
	PlaceID     string  `json:"placeId" yaml:"placeId" toml:"placeId"`
	Name        string  `json:"name" yaml:"name" toml:"name"`
	Category    string  `json:"category" yaml:"category" toml:"category"`
	Rating      float64 `json:"rating" yaml:"rating" toml:"rating"`
	Address     string  `json:"address" yaml:"address" toml:"address"`
	Lat         float64 `json:"lat" yaml:"lat" toml:"lat"`
	Lng         float64 `json:"lng" yaml:"lng" toml:"lng"`
	ImageURL    string  `json:"imageUrl" yaml:"imageUrl" toml:"imageUrl"`
	Description string  `json:"description" yaml:"description" toml:"description"`
}

func (e seedEntry) toPlace() *models.TripPlace {
	return &models.TripPlace{
		ID:          e.ID,
		PlaceID:     e.PlaceID,
		Name:        e.Name,
		Category:    e.Category,
		Rating:      e.Rating,
		Address:     e.Address,
		Lat:         e.Lat,
		Lng:         e.Lng,
		ImageURL:    e.ImageURL,
		Description: e.Description,
	}
}

// SeedFromFiles loads place collections from the given files. Unreadable
// files and invalid entries are logged and skipped; seeding never fails the
// startup sequence. Places already in the collection are left untouched.
// Returns the number of places added.
func (s *Service) SeedFromFiles(ctx context.Context, paths []string) (int, error) {
	added := 0
	for _, path := range paths {
		entries, err := s.readSeedFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Skipping unreadable seed file")
			continue
		}

		for _, entry := range entries {
			place := entry.toPlace()
			if err := place.Validate(); err != nil {
				s.logger.Warn().Err(err).Str("file", path).Str("name", place.Name).Msg("Skipping invalid seed entry")
				continue
			}
			key := place.Key()
			if key == "" {
				s.logger.Warn().Str("file", path).Str("name", place.Name).Msg("Skipping seed entry without an id")
				continue
			}

			if _, err := s.storage.GetPlace(ctx, key); err == nil {
				continue
			} else if !errors.Is(err, interfaces.ErrPlaceNotFound) {
				s.logger.Warn().Err(err).Str("key", string(key)).Msg("Skipping seed entry on lookup failure")
				continue
			}

			if err := s.storage.SavePlace(ctx, place); err != nil {
				s.logger.Warn().Err(err).Str("key", string(key)).Msg("Failed to store seed entry")
				continue
			}
			added++
		}
	}

	if added > 0 {
		s.logger.Info().Int("count", added).Msg("Seeded place collection")
		s.publishEvent(ctx, interfaces.EventPlacesSeeded, map[string]interface{}{
			"count": added,
		})
	}
	return added, nil
}

func (s *Service) readSeedFile(path string) ([]seedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse TOML seed file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file extension: %s", path)
	}
	return file.Places, nil
}

// MapsAPIKey resolves the optional maps key. The environment wins, then the
// dedicated KV key, then the apiKey field of the cached route and explore
// page envelopes, then config. An empty result is fine; callers render
// without a map.
func (s *Service) MapsAPIKey(ctx context.Context) string {
	if envValue := os.Getenv("ROUTEWISE_MAPS_API_KEY"); envValue != "" {
		return envValue
	}

	if s.kv != nil {
		if value, err := s.kv.Get(ctx, models.StorageKeyMapsAPIKey); err == nil && value != "" {
			return value
		}
		for _, pageKey := range []string{models.StorageKeyRouteData, models.StorageKeyExploreData} {
			if key := s.pageAPIKey(ctx, pageKey); key != "" {
				return key
			}
		}
	}

	return s.config.MapsAPIKey
}

// pageAPIKey extracts the apiKey field from a JSON page envelope in KV.
func (s *Service) pageAPIKey(ctx context.Context, kvKey string) string {
	raw, err := s.kv.Get(ctx, kvKey)
	if err != nil {
		return ""
	}
	var page struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		s.logger.Debug().Err(err).Str("key", kvKey).Msg("Page data is not valid JSON")
		return ""
	}
	return page.APIKey
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

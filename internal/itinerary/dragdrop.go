package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// Drop zone identifiers. A zone is either the unscheduled pool or a day
// addressed by index, e.g. "day:2".
const (
	zonePool      = "pool"
	zoneDayPrefix = "day:"
)

// DropZone is a parsed drop target
type DropZone struct {
	Pool     bool
	DayIndex int
}

// DayZone builds the zone string for a day index
func DayZone(index int) string {
	return fmt.Sprintf("%s%d", zoneDayPrefix, index)
}

// ParseDropZone parses a zone string into a DropZone
func ParseDropZone(zone string) (DropZone, error) {
	if zone == zonePool {
		return DropZone{Pool: true}, nil
	}
	if strings.HasPrefix(zone, zoneDayPrefix) {
		index, err := strconv.Atoi(strings.TrimPrefix(zone, zoneDayPrefix))
		if err != nil || index < 0 {
			return DropZone{}, fmt.Errorf("invalid day zone: %s", zone)
		}
		return DropZone{DayIndex: index}, nil
	}
	return DropZone{}, fmt.Errorf("unknown drop zone: %s", zone)
}

// HandleDrop applies a drag-drop transfer payload to the store. The payload
// is the dragged place serialized as JSON; the zone names the drop target.
//
// Drops are best-effort: unknown zones, unparseable payloads, payloads with
// no resolvable key, and stale transfers (place already assigned, source day
// gone, no-op same-day drops) all fizzle with applied=false and no error.
// Only real mutation failures surface as errors.
func (s *Store) HandleDrop(ctx context.Context, payload []byte, zone string) (bool, error) {
	target, err := ParseDropZone(zone)
	if err != nil {
		s.logger.Debug().Str("zone", zone).Msg("Ignoring drop on unknown zone")
		return false, nil
	}

	if len(payload) == 0 {
		s.logger.Debug().Str("zone", zone).Msg("Ignoring empty drop payload")
		return false, nil
	}

	var place models.ItineraryPlace
	if err := json.Unmarshal(payload, &place); err != nil {
		s.logger.Debug().Err(err).Str("zone", zone).Msg("Ignoring malformed drop payload")
		return false, nil
	}

	key := place.Key()
	if key == "" {
		s.logger.Debug().Str("zone", zone).Msg("Ignoring drop payload without place key")
		return false, nil
	}

	if target.Pool {
		return s.dropToPool(ctx, key, &place)
	}
	return s.dropToDay(ctx, key, &place, target.DayIndex)
}

// dropToPool unschedules a place. Dropping a place that was never assigned
// back onto the pool is a no-op.
func (s *Store) dropToPool(ctx context.Context, key models.PlaceKey, place *models.ItineraryPlace) (bool, error) {
	if place.DayIndex == nil {
		return false, nil
	}
	if err := s.RemovePlace(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// dropToDay assigns an unscheduled place or moves an assigned one.
func (s *Store) dropToDay(ctx context.Context, key models.PlaceKey, place *models.ItineraryPlace, dayIndex int) (bool, error) {
	if place.DayIndex == nil {
		err := s.AssignPlace(ctx, place, dayIndex)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, interfaces.ErrDuplicateAssignment):
			// Stale payload; the place landed somewhere already. The store
			// raised the warning notice.
			return false, nil
		case errors.Is(err, interfaces.ErrDayOutOfRange):
			s.logger.Debug().Int("day", dayIndex).Msg("Ignoring drop on missing day")
			return false, nil
		default:
			return false, err
		}
	}

	if *place.DayIndex == dayIndex {
		return false, nil
	}

	err := s.MovePlace(ctx, key, *place.DayIndex, dayIndex, -1)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, interfaces.ErrPlaceNotFound), errors.Is(err, interfaces.ErrDayOutOfRange):
		// Transfer data no longer matches the store; fizzle quietly.
		s.logger.Debug().Str("key", string(key)).Int("day", dayIndex).Msg("Ignoring stale drop transfer")
		return false, nil
	default:
		return false, err
	}
}

package itinerary

import (
	"sort"

	"github.com/routewise/routewise/internal/models"
)

// fallbackTime substitutes for an empty scheduledTime during comparison so
// unscheduled places sort to the front of the day.
const fallbackTime = "00:00"

// PlaceLess is the display-order comparator for places within a day:
// 1. dayOrder ascending, when both operands have it
// 2. scheduledTime lexical ascending otherwise ("00:00" for empty)
//
// The fallback is the legacy ordering for places that predate dayOrder
// numbering; the mixed rule must stay exactly as is so restored sessions
// display in the same order they were saved in.
func PlaceLess(a, b *models.ItineraryPlace) bool {
	if a.DayOrder != nil && b.DayOrder != nil {
		return *a.DayOrder < *b.DayOrder
	}
	return scheduledOrDefault(a) < scheduledOrDefault(b)
}

// SortDayPlaces stable-sorts a day's places into display order.
func SortDayPlaces(places []models.ItineraryPlace) {
	sort.SliceStable(places, func(i, j int) bool {
		return PlaceLess(&places[i], &places[j])
	})
}

func scheduledOrDefault(p *models.ItineraryPlace) string {
	if p.ScheduledTime == "" {
		return fallbackTime
	}
	return p.ScheduledTime
}

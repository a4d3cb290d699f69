package models

import (
	"time"
)

// StorageKeyItinerary is the fixed document key the itinerary state is
// persisted under. The envelope shape ({days, activeDay, tripTitle}) is the
// original client's stored layout and must round-trip unchanged.
const StorageKeyItinerary = "itineraryData"

// DayData represents one day of the itinerary with its ordered places
type DayData struct {
	Date   time.Time        `json:"date"`
	Title  string           `json:"title,omitempty"`
	Places []ItineraryPlace `json:"places"`
}

// Clone returns a deep copy of the day and its places
func (d *DayData) Clone() DayData {
	clone := DayData{
		Date:   d.Date,
		Title:  d.Title,
		Places: make([]ItineraryPlace, 0, len(d.Places)),
	}
	for i := range d.Places {
		clone.Places = append(clone.Places, *d.Places[i].Clone())
	}
	return clone
}

// ItineraryState is the persisted itinerary envelope. The assigned-key set
// is deliberately not part of it; it is rebuilt from the days on load.
type ItineraryState struct {
	Days      []DayData `json:"days"`
	ActiveDay int       `json:"activeDay"`
	TripTitle string    `json:"tripTitle"`
}

// NewDefaultItineraryState returns the fallback state: a single empty day
// dated now, active, with no title.
func NewDefaultItineraryState(now time.Time) *ItineraryState {
	return &ItineraryState{
		Days: []DayData{
			{
				Date:   now,
				Places: []ItineraryPlace{},
			},
		},
		ActiveDay: 0,
		TripTitle: "",
	}
}

// Clone returns a deep copy of the full state
func (s *ItineraryState) Clone() *ItineraryState {
	clone := &ItineraryState{
		Days:      make([]DayData, 0, len(s.Days)),
		ActiveDay: s.ActiveDay,
		TripTitle: s.TripTitle,
	}
	for i := range s.Days {
		clone.Days = append(clone.Days, s.Days[i].Clone())
	}
	return clone
}

// AssignedKeys scans all days and collects the identifiers present. This is
// how the assigned set is reconstructed after loading persisted state.
func (s *ItineraryState) AssignedKeys() map[PlaceKey]struct{} {
	keys := make(map[PlaceKey]struct{})
	for i := range s.Days {
		for j := range s.Days[i].Places {
			if key := s.Days[i].Places[j].Key(); key != "" {
				keys[key] = struct{}{}
			}
		}
	}
	return keys
}

// PlaceCount returns the number of places assigned across all days
func (s *ItineraryState) PlaceCount() int {
	count := 0
	for i := range s.Days {
		count += len(s.Days[i].Places)
	}
	return count
}

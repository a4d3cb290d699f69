package models

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// KV keys for page-data envelopes written by companion tools. The maps-key
// lookup reads the JSON apiKey field out of the route and explore envelopes.
const (
	StorageKeyRouteData   = "routeData"
	StorageKeyExploreData = "exploreData"
	StorageKeyMapsAPIKey  = "routewise.maps_api_key"
)

// PlaceKey is the normalized identifier for a place within the itinerary
// domain. Places arrive with either an externally-supplied string id or a
// numeric row id; the key is resolved once here and used everywhere else.
type PlaceKey string

// ResolvePlaceKey normalizes a place identifier. The external placeId wins
// when present, otherwise the numeric id is used. A place with neither
// resolves to the empty key, which no operation accepts.
func ResolvePlaceKey(placeID string, id int64) PlaceKey {
	if placeID != "" {
		return PlaceKey(placeID)
	}
	if id != 0 {
		return PlaceKey(strconv.FormatInt(id, 10))
	}
	return PlaceKey("")
}

// TripPlace represents a bookmarked POI
type TripPlace struct {
	ID          int64   `json:"id"`
	PlaceID     string  `json:"placeId,omitempty"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category,omitempty"`
	Rating      float64 `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Address     string  `json:"address,omitempty"`
	Lat         float64 `json:"lat,omitempty" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng,omitempty" validate:"gte=-180,lte=180"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Key returns the normalized identifier for this place
func (p *TripPlace) Key() PlaceKey {
	return ResolvePlaceKey(p.PlaceID, p.ID)
}

// Validate validates the place using go-playground/validator.
func (p *TripPlace) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// ItineraryPlace is a trip place annotated with scheduling fields.
// A nil DayIndex means the place sits in the unassigned pool; DayOrder is
// the primary ordering key within a day and falls back to ScheduledTime
// when absent.
type ItineraryPlace struct {
	TripPlace
	DayIndex      *int   `json:"dayIndex,omitempty"`
	ScheduledTime string `json:"scheduledTime,omitempty" validate:"omitempty,datetime=15:04"`
	DayOrder      *int   `json:"dayOrder,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Validate validates the scheduling fields along with the embedded place.
func (p *ItineraryPlace) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Clone returns a deep copy. Pointer fields get fresh storage so mutations
// of the copy never reach the original.
func (p *ItineraryPlace) Clone() *ItineraryPlace {
	clone := *p
	if p.DayIndex != nil {
		v := *p.DayIndex
		clone.DayIndex = &v
	}
	if p.DayOrder != nil {
		v := *p.DayOrder
		clone.DayOrder = &v
	}
	return &clone
}

// PlacePatch carries partial updates for an assigned place. Nil fields are
// left untouched.
type PlacePatch struct {
	ScheduledTime *string `json:"scheduledTime,omitempty" validate:"omitempty,datetime=15:04"`
	Notes         *string `json:"notes,omitempty"`
}

// Validate validates the patch using go-playground/validator.
func (p *PlacePatch) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// IntPtr is a small helper for building scheduling fields
func IntPtr(v int) *int {
	return &v
}

package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// StorageKeyLastTripID is the KV key caching the id returned by the most
// recent successful trip save.
const StorageKeyLastTripID = "routewise.last_trip_id"

// Trip is a saved trip record: the day-partitioned places at save time plus
// the city list derived from place addresses.
type Trip struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Days       []DayData `json:"days"`
	Cities     []string  `json:"cities"`
	PlaceCount int       `json:"placeCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SaveTripRequest is the body of a trip save. Cities may be supplied by the
// caller; when omitted they are derived from the place addresses.
type SaveTripRequest struct {
	Title  string    `json:"tripTitle"`
	Days   []DayData `json:"days" validate:"required,min=1"`
	Cities []string  `json:"cities,omitempty"`
}

// Validate validates the save request using go-playground/validator.
func (r *SaveTripRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

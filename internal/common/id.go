package common

import (
	"github.com/google/uuid"
)

// NewTripID generates a unique saved-trip ID with the "trip_" prefix
// Format: trip_<uuid>
func NewTripID() string {
	return "trip_" + uuid.New().String()
}

// NewDraftID generates a unique draft ID with the "draft_" prefix
// Format: draft_<uuid>
func NewDraftID() string {
	return "draft_" + uuid.New().String()
}

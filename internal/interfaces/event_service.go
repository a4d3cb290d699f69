package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventNotice carries a user-visible toast message
	EventNotice EventType = "notice"

	// EventItineraryChanged fires after every itinerary mutation. Clients
	// use it to refresh their view; the websocket throttles it.
	EventItineraryChanged EventType = "itinerary_changed"

	EventTripSaved      EventType = "trip_saved"
	EventTripSaveFailed EventType = "trip_save_failed"
	EventAuthRequired   EventType = "auth_required"
	EventDraftSaved     EventType = "draft_saved"
	EventDraftCleared   EventType = "draft_cleared"
	EventDraftsSwept    EventType = "drafts_swept"
	EventPlacesSeeded   EventType = "places_seeded"
)

// Notice levels mirror the toast variants of the web client
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
	NoticeWarning = "warning"
)

// NoticePayload is the payload of an EventNotice event
type NoticePayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe from an event type
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}

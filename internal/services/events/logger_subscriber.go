package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case interfaces.NoticePayload:
			logEvent = logEvent.
				Str("level", payload.Level).
				Str("message", payload.Message)
		case map[string]interface{}:
			if id, ok := payload["trip_id"].(string); ok {
				logEvent = logEvent.Str("trip_id", id)
			}
			if days, ok := payload["days"].(int); ok {
				logEvent = logEvent.Int("days", days)
			}
			if places, ok := payload["places"].(int); ok {
				logEvent = logEvent.Int("places", places)
			}
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	// Subscribe to all event types
	eventTypes := []interfaces.EventType{
		interfaces.EventNotice,
		interfaces.EventItineraryChanged,
		interfaces.EventTripSaved,
		interfaces.EventTripSaveFailed,
		interfaces.EventAuthRequired,
		interfaces.EventDraftSaved,
		interfaces.EventDraftCleared,
		interfaces.EventDraftsSwept,
		interfaces.EventPlacesSeeded,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}

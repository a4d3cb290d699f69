package events

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
)

// TestNewLoggerSubscriber verifies that the logger subscriber logs events
func TestNewLoggerSubscriber(t *testing.T) {
	logger := arbor.NewLogger()

	subscriber := NewLoggerSubscriber(logger)

	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventNotice,
		Payload: interfaces.NoticePayload{
			Level:   interfaces.NoticeSuccess,
			Message: "Added Louvre to Day 1",
		},
	}

	if err := subscriber(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Map payloads take the structured-field path
	event2 := interfaces.Event{
		Type: interfaces.EventItineraryChanged,
		Payload: map[string]interface{}{
			"days":   2,
			"places": 5,
		},
	}

	if err := subscriber(ctx, event2); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Events without payload still log
	event3 := interfaces.Event{
		Type:    interfaces.EventDraftCleared,
		Payload: nil,
	}

	if err := subscriber(ctx, event3); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

// TestSubscribeLoggerToAllEvents verifies logger is subscribed to all event types
func TestSubscribeLoggerToAllEvents(t *testing.T) {
	logger := arbor.NewLogger()

	eventService := NewService(logger)
	defer eventService.Close()

	if err := SubscribeLoggerToAllEvents(eventService, logger); err != nil {
		t.Fatalf("Failed to subscribe logger: %v", err)
	}

	ctx := context.Background()
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
		event := interfaces.Event{
			Type:    eventType,
			Payload: map[string]interface{}{"test": "data"},
		}

		if err := eventService.Publish(ctx, event); err != nil {
			t.Errorf("Expected no error publishing %s event, got: %v", eventType, err)
		}
	}
}

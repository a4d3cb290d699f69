package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
)

// EventSubscriber bridges the event bus onto the websocket. Broadcasts pass
// a config-driven whitelist, and high-frequency event types can be throttled
// per type. Notices, the auth prompt and trip save results bypass throttling:
// a drag burst may collapse itinerary_changed frames, but the user always
// sees the outcome of an action.
type EventSubscriber struct {
	handler       *WebSocketHandler
	eventService  interfaces.EventService
	logger        arbor.ILogger
	allowedEvents map[string]bool          // Whitelist of events to broadcast (empty = allow all)
	throttlers    map[string]*rate.Limiter // Rate limiters for high-frequency events
}

// NewEventSubscriber creates the subscriber and registers all subscriptions
func NewEventSubscriber(handler *WebSocketHandler, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *EventSubscriber {
	s := &EventSubscriber{
		handler:      handler,
		eventService: eventService,
		logger:       logger,
	}

	// Empty whitelist means allow all events
	s.allowedEvents = make(map[string]bool)
	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			s.allowedEvents[eventType] = true
		}
	}

	s.throttlers = make(map[string]*rate.Limiter)
	if config != nil && len(config.ThrottleIntervals) > 0 {
		for eventType, intervalStr := range config.ThrottleIntervals {
			if duration, err := time.ParseDuration(intervalStr); err == nil {
				s.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
				logger.Debug().
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Throttler initialized for event type")
			} else {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval - skipping throttler")
			}
		}
	}

	if eventService == nil {
		logger.Warn().Msg("EventSubscriber created with nil eventService - subscriptions will be skipped")
		return s
	}

	s.SubscribeAll()
	return s
}

// SubscribeAll registers subscriptions for every broadcast event type
func (s *EventSubscriber) SubscribeAll() {
	if s.eventService == nil {
		s.logger.Warn().Msg("Cannot subscribe to events - eventService is nil")
		return
	}

	s.eventService.Subscribe(interfaces.EventNotice, s.handleNotice)
	s.eventService.Subscribe(interfaces.EventItineraryChanged, s.handleItineraryChanged)

	// Terminal events: skip the throttle so action outcomes always land
	s.eventService.Subscribe(interfaces.EventTripSaved, s.relayTerminal(interfaces.EventTripSaved))
	s.eventService.Subscribe(interfaces.EventTripSaveFailed, s.relayTerminal(interfaces.EventTripSaveFailed))
	s.eventService.Subscribe(interfaces.EventAuthRequired, s.relayTerminal(interfaces.EventAuthRequired))

	s.eventService.Subscribe(interfaces.EventDraftSaved, s.relay(interfaces.EventDraftSaved))
	s.eventService.Subscribe(interfaces.EventDraftCleared, s.relay(interfaces.EventDraftCleared))
	s.eventService.Subscribe(interfaces.EventDraftsSwept, s.relay(interfaces.EventDraftsSwept))
	s.eventService.Subscribe(interfaces.EventPlacesSeeded, s.relay(interfaces.EventPlacesSeeded))

	s.logger.Info().Msg("EventSubscriber registered for notice, itinerary, trip and draft events")
}

// handleNotice forwards toast notices. Notices are never throttled.
func (s *EventSubscriber) handleNotice(ctx context.Context, event interfaces.Event) error {
	if !s.allowed(string(interfaces.EventNotice)) {
		return nil
	}

	notice, ok := event.Payload.(interfaces.NoticePayload)
	if !ok {
		s.logger.Warn().Msg("Invalid notice event payload type")
		return nil
	}

	s.handler.BroadcastNotice(notice)
	return nil
}

// handleItineraryChanged forwards change triggers, collapsed under throttle
// pressure so drag bursts do not flood clients
func (s *EventSubscriber) handleItineraryChanged(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcast(string(interfaces.EventItineraryChanged)) {
		return nil
	}

	s.handler.BroadcastEvent(string(interfaces.EventItineraryChanged), event.Payload)
	return nil
}

// relay builds a handler that forwards the event payload under its type,
// subject to whitelist and throttling
func (s *EventSubscriber) relay(eventType interfaces.EventType) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		if !s.shouldBroadcast(string(eventType)) {
			return nil
		}
		s.handler.BroadcastEvent(string(eventType), event.Payload)
		return nil
	}
}

// relayTerminal builds a handler that forwards subject to the whitelist
// only; configured throttles are ignored for these types
func (s *EventSubscriber) relayTerminal(eventType interfaces.EventType) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		if !s.allowed(string(eventType)) {
			return nil
		}
		s.handler.BroadcastEvent(string(eventType), event.Payload)
		return nil
	}
}

// allowed checks the whitelist (empty allowedEvents = allow all)
func (s *EventSubscriber) allowed(eventType string) bool {
	return len(s.allowedEvents) == 0 || s.allowedEvents[eventType]
}

// shouldBroadcast checks whitelist and throttling
func (s *EventSubscriber) shouldBroadcast(eventType string) bool {
	if !s.allowed(eventType) {
		return false
	}

	if limiter, ok := s.throttlers[eventType]; ok {
		if !limiter.Allow() {
			s.logger.Debug().
				Str("event_type", eventType).
				Msg("Event throttled - rate limit exceeded")
			return false
		}
	}

	return true
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// TripsHandler exposes the saved-trip endpoints. Saving requires the
// configured bearer token; a missing or wrong token gets the "auth required"
// answer the client treats as a sign-in prompt rather than a failure.
type TripsHandler struct {
	tripService  interfaces.TripService
	eventService interfaces.EventService
	apiToken     string
	logger       arbor.ILogger
}

// NewTripsHandler creates a new trips handler
func NewTripsHandler(tripService interfaces.TripService, eventService interfaces.EventService, apiToken string, logger arbor.ILogger) *TripsHandler {
	return &TripsHandler{
		tripService:  tripService,
		eventService: eventService,
		apiToken:     apiToken,
		logger:       logger,
	}
}

// SaveTripHandler handles POST /api/trips - persists a trip snapshot
func (h *TripsHandler) SaveTripHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if !CheckBearerToken(r, h.apiToken) {
		h.logger.Debug().Str("path", r.URL.Path).Msg("Trip save rejected, missing or invalid token")
		h.publishAuthRequired(r)
		WriteError(w, http.StatusUnauthorized, "auth required")
		return
	}

	var req models.SaveTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse trip save body")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trip, err := h.tripService.SaveTrip(r.Context(), &req)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to save trip")
		WriteError(w, http.StatusInternalServerError, "Failed to save trip")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"id":     trip.ID,
		"trip":   trip,
	})
}

// ListTripsHandler handles GET /api/trips - lists saved trips. The response
// carries the cached id of the most recent save so clients can highlight it.
func (h *TripsHandler) ListTripsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	trips, err := h.tripService.ListTrips(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list trips")
		WriteError(w, http.StatusInternalServerError, "Failed to list trips")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trips":       trips,
		"count":       len(trips),
		"lastSavedId": h.tripService.LastSavedTripID(r.Context()),
	})
}

// GetTripHandler handles GET /api/trips/{id} - retrieves a saved trip
func (h *TripsHandler) GetTripHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id, ok := h.idFromPath(w, r)
	if !ok {
		return
	}

	trip, err := h.tripService.GetTrip(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrTripNotFound) {
			WriteError(w, http.StatusNotFound, "Trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", id).Msg("Failed to get trip")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve trip")
		return
	}

	WriteJSON(w, http.StatusOK, trip)
}

// DeleteTripHandler handles DELETE /api/trips/{id} - deletes a saved trip
func (h *TripsHandler) DeleteTripHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	id, ok := h.idFromPath(w, r)
	if !ok {
		return
	}

	if err := h.tripService.DeleteTrip(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrTripNotFound) {
			WriteError(w, http.StatusNotFound, "Trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", id).Msg("Failed to delete trip")
		WriteError(w, http.StatusInternalServerError, "Failed to delete trip")
		return
	}

	WriteSuccess(w, "Trip deleted")
}

// publishAuthRequired raises the auth event and the sign-in notice
func (h *TripsHandler) publishAuthRequired(r *http.Request) {
	if h.eventService == nil {
		return
	}

	ctx := r.Context()
	event := interfaces.Event{
		Type:    interfaces.EventAuthRequired,
		Payload: map[string]interface{}{"path": r.URL.Path},
	}
	if err := h.eventService.Publish(ctx, event); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to publish auth required event")
	}

	notice := interfaces.Event{
		Type: interfaces.EventNotice,
		Payload: interfaces.NoticePayload{
			Level:   interfaces.NoticeWarning,
			Message: "Sign in to save your trip",
		},
	}
	if err := h.eventService.Publish(ctx, notice); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to publish auth notice")
	}
}

// idFromPath extracts the trip id from /api/trips/{id}
func (h *TripsHandler) idFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	encodedID := r.URL.Path[len("/api/trips/"):]

	id, err := url.QueryUnescape(encodedID)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_id", encodedID).Msg("Failed to decode trip id")
		WriteError(w, http.StatusBadRequest, "Invalid id encoding")
		return "", false
	}

	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing id parameter")
		return "", false
	}

	return id, true
}

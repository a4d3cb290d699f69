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

// PlacesHandler exposes the bookmarked trip-place collection
type PlacesHandler struct {
	placeService interfaces.PlaceService
	logger       arbor.ILogger
}

// NewPlacesHandler creates a new places handler
func NewPlacesHandler(placeService interfaces.PlaceService, logger arbor.ILogger) *PlacesHandler {
	return &PlacesHandler{
		placeService: placeService,
		logger:       logger,
	}
}

// ListPlacesHandler handles GET /api/places - lists the collection
func (h *PlacesHandler) ListPlacesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	places, err := h.placeService.ListPlaces(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list places")
		WriteError(w, http.StatusInternalServerError, "Failed to list places")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"places": places,
		"count":  len(places),
	})
}

// AddPlaceHandler handles POST /api/places - bookmarks a place
func (h *PlacesHandler) AddPlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var place models.TripPlace
	if err := json.NewDecoder(r.Body).Decode(&place); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse place body")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.placeService.AddPlace(r.Context(), &place); err != nil {
		if errors.Is(err, interfaces.ErrEmptyPlaceKey) {
			WriteError(w, http.StatusBadRequest, "Place requires an id or placeId")
			return
		}
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("name", place.Name).Msg("Failed to add place")
		WriteError(w, http.StatusInternalServerError, "Failed to add place")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"key":    place.Key(),
	})
}

// DeletePlaceHandler handles DELETE /api/places/{key} - removes a bookmark
func (h *PlacesHandler) DeletePlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	encodedKey := r.URL.Path[len("/api/places/"):]
	key, err := url.QueryUnescape(encodedKey)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_key", encodedKey).Msg("Failed to decode place key")
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return
	}
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	if err := h.placeService.RemovePlace(r.Context(), models.PlaceKey(key)); err != nil {
		if errors.Is(err, interfaces.ErrPlaceNotFound) {
			WriteError(w, http.StatusNotFound, "Place not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to remove place")
		WriteError(w, http.StatusInternalServerError, "Failed to remove place")
		return
	}

	WriteSuccess(w, "Place removed")
}

// MapsKeyHandler handles GET /api/places/maps-key - resolves the maps key
// through the lookup chain. An empty key means none is configured; the
// client renders without the map in that case.
func (h *PlacesHandler) MapsKeyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"apiKey": h.placeService.MapsAPIKey(r.Context()),
	})
}

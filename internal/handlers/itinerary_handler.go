package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/itinerary"
	"github.com/routewise/routewise/internal/models"
)

// ItineraryHandler exposes the itinerary store over HTTP. Snapshots go out
// in display order; mutations map store sentinels onto status codes, with
// the duplicate assignment answered as 409 and drag-drop fizzles as 204.
type ItineraryHandler struct {
	store         *itinerary.Store
	placeService  interfaces.PlaceService
	exportService interfaces.ExportService
	logger        arbor.ILogger
}

// NewItineraryHandler creates a new itinerary handler
func NewItineraryHandler(store *itinerary.Store, placeService interfaces.PlaceService, exportService interfaces.ExportService, logger arbor.ILogger) *ItineraryHandler {
	return &ItineraryHandler{
		store:         store,
		placeService:  placeService,
		exportService: exportService,
		logger:        logger,
	}
}

// GetItineraryHandler handles GET /api/itinerary - returns the current
// state with each day's places in display order
func (h *ItineraryHandler) GetItineraryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.store.SortedSnapshot())
}

// ClearItineraryHandler handles DELETE /api/itinerary - resets to the
// default single-day state
func (h *ItineraryHandler) ClearItineraryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear itinerary")
		WriteError(w, http.StatusInternalServerError, "Failed to clear itinerary")
		return
	}

	WriteSuccess(w, "Itinerary cleared")
}

// SetTitleHandler handles PUT /api/itinerary/title
func (h *ItineraryHandler) SetTitleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SetTripTitle(r.Context(), req.Title); err != nil {
		h.logger.Error().Err(err).Msg("Failed to set trip title")
		WriteError(w, http.StatusInternalServerError, "Failed to set trip title")
		return
	}

	WriteSuccess(w, "Trip title updated")
}

// SetActiveDayHandler handles PUT /api/itinerary/active-day
func (h *ItineraryHandler) SetActiveDayHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		ActiveDay int `json:"activeDay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SetActiveDay(r.Context(), req.ActiveDay); err != nil {
		if errors.Is(err, interfaces.ErrDayOutOfRange) {
			WriteError(w, http.StatusBadRequest, "Day index out of range")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to set active day")
		WriteError(w, http.StatusInternalServerError, "Failed to set active day")
		return
	}

	WriteSuccess(w, "Active day updated")
}

// AddDayHandler handles POST /api/itinerary/days - appends a day and makes
// it active
func (h *ItineraryHandler) AddDayHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	index, err := h.store.AddDay(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to add day")
		WriteError(w, http.StatusInternalServerError, "Failed to add day")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "success",
		"dayIndex": index,
	})
}

// AssignPlaceHandler handles POST /api/itinerary/assign - schedules a place
// onto a day. A place already assigned anywhere is rejected with 409.
func (h *ItineraryHandler) AssignPlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Place    *models.ItineraryPlace `json:"place"`
		DayIndex int                    `json:"dayIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.AssignPlace(r.Context(), req.Place, req.DayIndex); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrDuplicateAssignment):
			WriteError(w, http.StatusConflict, "Place is already assigned")
		case errors.Is(err, interfaces.ErrDayOutOfRange):
			WriteError(w, http.StatusBadRequest, "Day index out of range")
		case errors.Is(err, interfaces.ErrEmptyPlaceKey):
			WriteError(w, http.StatusBadRequest, "Place requires an id or placeId")
		default:
			h.logger.Error().Err(err).Int("day", req.DayIndex).Msg("Failed to assign place")
			WriteError(w, http.StatusInternalServerError, "Failed to assign place")
		}
		return
	}

	WriteSuccess(w, "Place assigned")
}

// MovePlaceHandler handles POST /api/itinerary/move - relocates an assigned
// place between days. A negative targetIndex appends at the end.
func (h *ItineraryHandler) MovePlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		PlaceKey    string `json:"placeKey"`
		FromDay     int    `json:"fromDay"`
		ToDay       int    `json:"toDay"`
		TargetIndex int    `json:"targetIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.store.MovePlace(r.Context(), models.PlaceKey(req.PlaceKey), req.FromDay, req.ToDay, req.TargetIndex)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrPlaceNotFound):
			WriteError(w, http.StatusNotFound, "Place not found on source day")
		case errors.Is(err, interfaces.ErrDayOutOfRange):
			WriteError(w, http.StatusBadRequest, "Day index out of range")
		case errors.Is(err, interfaces.ErrEmptyPlaceKey):
			WriteError(w, http.StatusBadRequest, "Missing place key")
		default:
			h.logger.Error().Err(err).Str("key", req.PlaceKey).Msg("Failed to move place")
			WriteError(w, http.StatusInternalServerError, "Failed to move place")
		}
		return
	}

	WriteSuccess(w, "Place moved")
}

// ReorderDayHandler handles PUT /api/itinerary/days/{i}/order - replaces a
// day's order with a permutation of its current place keys
func (h *ItineraryHandler) ReorderDayHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	dayIndex, ok := h.dayIndexFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	keys := make([]models.PlaceKey, 0, len(req.Order))
	for _, key := range req.Order {
		keys = append(keys, models.PlaceKey(key))
	}

	if err := h.store.ReorderDay(r.Context(), dayIndex, keys); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrDayOutOfRange):
			WriteError(w, http.StatusBadRequest, "Day index out of range")
		case errors.Is(err, interfaces.ErrInvalidOrder):
			WriteError(w, http.StatusBadRequest, "Order must be a permutation of the day's places")
		default:
			h.logger.Error().Err(err).Int("day", dayIndex).Msg("Failed to reorder day")
			WriteError(w, http.StatusInternalServerError, "Failed to reorder day")
		}
		return
	}

	WriteSuccess(w, "Day order updated")
}

// DropHandler handles POST /api/itinerary/drop - applies a drag-drop
// transfer. Drops are best-effort: malformed envelopes, unknown zones and
// stale payloads fizzle with 204 and no notice; only applied drops answer
// 200 and only real mutation failures answer 500.
func (h *ItineraryHandler) DropHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Zone    string          `json:"zone"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("Ignoring malformed drop envelope")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	applied, err := h.store.HandleDrop(r.Context(), req.Payload, req.Zone)
	if err != nil {
		h.logger.Error().Err(err).Str("zone", req.Zone).Msg("Failed to apply drop")
		WriteError(w, http.StatusInternalServerError, "Failed to apply drop")
		return
	}

	if !applied {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	WriteSuccess(w, "Drop applied")
}

// UpdatePlaceHandler handles PATCH /api/itinerary/places/{key} - merges
// scheduledTime/notes updates into the assigned place. An unknown key is a
// silent no-op, matching the store.
func (h *ItineraryHandler) UpdatePlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPatch) {
		return
	}

	key, ok := h.placeKeyFromPath(w, r)
	if !ok {
		return
	}

	var patch models.PlacePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.UpdatePlace(r.Context(), key, patch); err != nil {
		var validationErrs validator.ValidationErrors
		switch {
		case errors.Is(err, interfaces.ErrEmptyPlaceKey):
			WriteError(w, http.StatusBadRequest, "Missing place key")
		case errors.As(err, &validationErrs):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("key", string(key)).Msg("Failed to update place")
			WriteError(w, http.StatusInternalServerError, "Failed to update place")
		}
		return
	}

	WriteSuccess(w, "Place updated")
}

// RemovePlaceHandler handles DELETE /api/itinerary/places/{key} - removes a
// place from whichever day holds it
func (h *ItineraryHandler) RemovePlaceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	key, ok := h.placeKeyFromPath(w, r)
	if !ok {
		return
	}

	if err := h.store.RemovePlace(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrEmptyPlaceKey) {
			WriteError(w, http.StatusBadRequest, "Missing place key")
			return
		}
		h.logger.Error().Err(err).Str("key", string(key)).Msg("Failed to remove place")
		WriteError(w, http.StatusInternalServerError, "Failed to remove place")
		return
	}

	WriteSuccess(w, "Place removed")
}

// PoolHandler handles GET /api/itinerary/pool - lists bookmarked places not
// assigned to any day
func (h *ItineraryHandler) PoolHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	places, err := h.placeService.ListPlaces(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list places for pool")
		WriteError(w, http.StatusInternalServerError, "Failed to list unassigned places")
		return
	}

	pool := h.store.Unassigned(places)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"places": pool,
		"count":  len(pool),
	})
}

// ExportHTMLHandler handles GET /api/itinerary/export/html - renders the
// itinerary as a standalone HTML document
func (h *ItineraryHandler) ExportHTMLHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	data, err := h.exportService.HTML(r.Context(), h.store.Snapshot())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to render HTML export")
		WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportPDFHandler handles GET /api/itinerary/export/pdf - renders the
// itinerary as a downloadable PDF
func (h *ItineraryHandler) ExportPDFHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	data, err := h.exportService.PDF(r.Context(), h.store.Snapshot())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to render PDF export")
		WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// dayIndexFromPath extracts the day index from /api/itinerary/days/{i}/order
func (h *ItineraryHandler) dayIndexFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	rest := r.URL.Path[len("/api/itinerary/days/"):]
	indexStr := strings.TrimSuffix(rest, "/order")

	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		WriteError(w, http.StatusBadRequest, "Invalid day index")
		return 0, false
	}

	return index, true
}

// placeKeyFromPath extracts the place key from /api/itinerary/places/{key}
func (h *ItineraryHandler) placeKeyFromPath(w http.ResponseWriter, r *http.Request) (models.PlaceKey, bool) {
	encodedKey := r.URL.Path[len("/api/itinerary/places/"):]

	key, err := url.QueryUnescape(encodedKey)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_key", encodedKey).Msg("Failed to decode place key")
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return "", false
	}

	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing place key")
		return "", false
	}

	return models.PlaceKey(key), true
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// DraftsHandler exposes the expiring-draft utility. The trip wizard is the
// main client; any feature can keep a draft under its own key.
type DraftsHandler struct {
	draftService interfaces.DraftService
	logger       arbor.ILogger
}

// NewDraftsHandler creates a new drafts handler
func NewDraftsHandler(draftService interfaces.DraftService, logger arbor.ILogger) *DraftsHandler {
	return &DraftsHandler{
		draftService: draftService,
		logger:       logger,
	}
}

// GetDraftHandler handles GET /api/drafts/{key} - loads a draft. A draft
// past its expiry is deleted by the load and reported as absent.
func (h *DraftsHandler) GetDraftHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	draft, err := h.draftService.LoadDraft(r.Context(), key)
	if err != nil {
		if errors.Is(err, interfaces.ErrDraftNotFound) {
			WriteError(w, http.StatusNotFound, "Draft not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to load draft")
		WriteError(w, http.StatusInternalServerError, "Failed to load draft")
		return
	}

	WriteJSON(w, http.StatusOK, draft)
}

// SaveDraftHandler handles PUT /api/drafts/{key} - saves a draft. The
// response carries the stamped draft so clients learn the assigned id and
// expiry.
func (h *DraftsHandler) SaveDraftHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	var draft models.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse draft body")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.draftService.SaveDraft(r.Context(), key, &draft)
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to save draft")
		WriteError(w, http.StatusInternalServerError, "Failed to save draft")
		return
	}

	WriteJSON(w, http.StatusOK, saved)
}

// ClearDraftHandler handles DELETE /api/drafts/{key} - removes a draft.
// Clearing a missing draft succeeds; the endpoint is idempotent.
func (h *DraftsHandler) ClearDraftHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	if err := h.draftService.ClearDraft(r.Context(), key); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to clear draft")
		WriteError(w, http.StatusInternalServerError, "Failed to clear draft")
		return
	}

	WriteSuccess(w, "Draft cleared")
}

// DraftStatusHandler handles GET /api/drafts/{key}/status - describes the
// stored draft (age, recency) without consuming it.
func (h *DraftsHandler) DraftStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	status, err := h.draftService.Status(r.Context(), key)
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to read draft status")
		WriteError(w, http.StatusInternalServerError, "Failed to read draft status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// keyFromPath extracts the draft key from /api/drafts/{key}[/status]
func (h *DraftsHandler) keyFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	encodedKey := strings.TrimSuffix(r.URL.Path[len("/api/drafts/"):], "/status")

	key, err := url.QueryUnescape(encodedKey)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_key", encodedKey).Msg("Failed to decode draft key")
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return "", false
	}

	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return "", false
	}

	return key, true
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
)

// KVServiceInterface defines the methods needed from the KV service
type KVServiceInterface interface {
	GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error)
	Upsert(ctx context.Context, key string, value string, description string) (bool, error)
}

// KVHandler exposes the general key/value area. Companion tools write the
// route/explore page envelopes here; the maps-key lookup reads them back.
type KVHandler struct {
	kvService KVServiceInterface
	logger    arbor.ILogger
}

// NewKVHandler creates a new KV handler
func NewKVHandler(kvService KVServiceInterface, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		kvService: kvService,
		logger:    logger,
	}
}

// GetKVHandler handles GET /api/kv/{key} - retrieves a key/value pair
func (h *KVHandler) GetKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	pair, err := h.kvService.GetPair(r.Context(), key)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to get key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Retrieved key/value pair")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"key":         pair.Key,
		"value":       pair.Value,
		"description": pair.Description,
		"created_at":  pair.CreatedAt,
		"updated_at":  pair.UpdatedAt,
	})
}

// UpdateKVHandler handles PUT /api/kv/{key} - upserts a key/value pair.
// Creates a new key or updates an existing one.
func (h *KVHandler) UpdateKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Value == "" {
		WriteError(w, http.StatusBadRequest, "Value is required")
		return
	}

	isNewKey, err := h.kvService.Upsert(r.Context(), key, req.Value, req.Description)
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to upsert key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to upsert key/value pair")
		return
	}

	statusCode := http.StatusOK
	message := "Key/value pair updated successfully"
	if isNewKey {
		statusCode = http.StatusCreated
		message = "Key/value pair created successfully"
	}
	h.logger.Debug().Str("key", key).Bool("created", isNewKey).Msg("Upserted key/value pair via PUT")

	WriteJSON(w, statusCode, map[string]interface{}{
		"status":  "success",
		"message": message,
		"key":     key,
		"created": isNewKey,
	})
}

// keyFromPath extracts and decodes the key from /api/kv/{key}. Writes the
// error response and returns ok=false when the key is missing or malformed.
func (h *KVHandler) keyFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	encodedKey := r.URL.Path[len("/api/kv/"):]

	key, err := url.QueryUnescape(encodedKey)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_key", encodedKey).Msg("Failed to decode key")
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return "", false
	}

	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return "", false
	}

	return key, true
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
)

// mockKVService implements KVServiceInterface for testing
type mockKVService struct {
	getPairFunc func(ctx context.Context, key string) (*interfaces.KeyValuePair, error)
	upsertFunc  func(ctx context.Context, key, value, description string) (bool, error)
}

func (m *mockKVService) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	if m.getPairFunc != nil {
		return m.getPairFunc(ctx, key)
	}
	return nil, interfaces.ErrKeyNotFound
}

func (m *mockKVService) Upsert(ctx context.Context, key string, value string, description string) (bool, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, key, value, description)
	}
	return true, nil
}

func TestGetKVHandler(t *testing.T) {
	service := &mockKVService{
		getPairFunc: func(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
			return &interfaces.KeyValuePair{
				Key:         key,
				Value:       `{"apiKey":"AIza-test"}`,
				Description: "route page data",
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}, nil
		},
	}
	handler := NewKVHandler(service, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetKVHandler(rec, httptest.NewRequest("GET", "/api/kv/routeData", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "routeData", body["key"])
	assert.Equal(t, `{"apiKey":"AIza-test"}`, body["value"])
	assert.Equal(t, "route page data", body["description"])
}

func TestGetKVHandler_NotFound(t *testing.T) {
	handler := NewKVHandler(&mockKVService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetKVHandler(rec, httptest.NewRequest("GET", "/api/kv/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Key not found", decodeBody(t, rec)["error"])
}

func TestGetKVHandler_MissingKey(t *testing.T) {
	handler := NewKVHandler(&mockKVService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetKVHandler(rec, httptest.NewRequest("GET", "/api/kv/", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing key parameter", decodeBody(t, rec)["error"])
}

func TestGetKVHandler_DecodesKey(t *testing.T) {
	var captured string
	service := &mockKVService{
		getPairFunc: func(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
			captured = key
			return nil, interfaces.ErrKeyNotFound
		},
	}
	handler := NewKVHandler(service, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetKVHandler(rec, httptest.NewRequest("GET", "/api/kv/routewise.maps%5Fapi%5Fkey", nil))

	assert.Equal(t, "routewise.maps_api_key", captured)
}

func TestUpdateKVHandler_CreatesKey(t *testing.T) {
	var capturedValue, capturedDescription string
	service := &mockKVService{
		upsertFunc: func(ctx context.Context, key, value, description string) (bool, error) {
			capturedValue = value
			capturedDescription = description
			return true, nil
		},
	}
	handler := NewKVHandler(service, arbor.NewLogger())

	rec := httptest.NewRecorder()
	req := jsonRequest("PUT", "/api/kv/exploreData", `{"value":"{\"places\":[]}","description":"explore page data"}`)
	handler.UpdateKVHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["created"])
	assert.Equal(t, "Key/value pair created successfully", body["message"])
	assert.Equal(t, `{"places":[]}`, capturedValue)
	assert.Equal(t, "explore page data", capturedDescription)
}

func TestUpdateKVHandler_UpdatesKey(t *testing.T) {
	service := &mockKVService{
		upsertFunc: func(ctx context.Context, key, value, description string) (bool, error) {
			return false, nil
		},
	}
	handler := NewKVHandler(service, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.UpdateKVHandler(rec, jsonRequest("PUT", "/api/kv/exploreData", `{"value":"updated"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, "Key/value pair updated successfully", body["message"])
}

func TestUpdateKVHandler_EmptyValue(t *testing.T) {
	handler := NewKVHandler(&mockKVService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.UpdateKVHandler(rec, jsonRequest("PUT", "/api/kv/someKey", `{"value":""}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Value is required", decodeBody(t, rec)["error"])
}

func TestUpdateKVHandler_InvalidBody(t *testing.T) {
	handler := NewKVHandler(&mockKVService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.UpdateKVHandler(rec, jsonRequest("PUT", "/api/kv/someKey", `not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

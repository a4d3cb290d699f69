package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

func TestDraftStorage_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewDraftStorage(db, logger)
	ctx := context.Background()

	now := time.Now()
	draft := &models.Draft{
		ID:             "draft-123",
		CurrentStep:    2,
		CompletedSteps: []int{0, 1},
		LastUpdated:    now.UnixMilli(),
		ExpiresAt:      now.Add(24 * time.Hour).UnixMilli(),
		Data:           json.RawMessage(`{"destination":"Paris"}`),
	}

	require.NoError(t, storage.SaveDraft(ctx, models.StorageKeyWizardDraft, draft))

	loaded, err := storage.GetDraft(ctx, models.StorageKeyWizardDraft)
	require.NoError(t, err)
	assert.Equal(t, "draft-123", loaded.ID)
	assert.Equal(t, 2, loaded.CurrentStep)
	assert.Equal(t, []int{0, 1}, loaded.CompletedSteps)
	assert.Equal(t, draft.LastUpdated, loaded.LastUpdated)
	assert.Equal(t, draft.ExpiresAt, loaded.ExpiresAt)
	assert.JSONEq(t, `{"destination":"Paris"}`, string(loaded.Data))
}

func TestDraftStorage_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewDraftStorage(db, logger)
	ctx := context.Background()

	_, err := storage.GetDraft(ctx, "missing-draft")
	assert.ErrorIs(t, err, interfaces.ErrDraftNotFound)
}

func TestDraftStorage_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewDraftStorage(db, logger)
	ctx := context.Background()

	draft := &models.Draft{ID: "draft-del", LastUpdated: time.Now().UnixMilli()}
	require.NoError(t, storage.SaveDraft(ctx, "some-draft", draft))

	require.NoError(t, storage.DeleteDraft(ctx, "some-draft"))

	_, err := storage.GetDraft(ctx, "some-draft")
	assert.ErrorIs(t, err, interfaces.ErrDraftNotFound)

	// Deleting again is a no-op
	require.NoError(t, storage.DeleteDraft(ctx, "some-draft"))
}

func TestDraftStorage_ListKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewDraftStorage(db, logger)
	ctx := context.Background()

	keys, err := storage.ListDraftKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, storage.SaveDraft(ctx, "draft-a", &models.Draft{ID: "a"}))
	require.NoError(t, storage.SaveDraft(ctx, "draft-b", &models.Draft{ID: "b"}))

	keys, err = storage.ListDraftKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"draft-a", "draft-b"}, keys)
}

func TestDraftStorage_Overwrite(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewDraftStorage(db, logger)
	ctx := context.Background()

	require.NoError(t, storage.SaveDraft(ctx, "key", &models.Draft{ID: "v1", CurrentStep: 1}))
	require.NoError(t, storage.SaveDraft(ctx, "key", &models.Draft{ID: "v2", CurrentStep: 3}))

	loaded, err := storage.GetDraft(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.ID)
	assert.Equal(t, 3, loaded.CurrentStep)

	keys, err := storage.ListDraftKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

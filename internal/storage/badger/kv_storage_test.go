package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
)

// setupTestDB creates a test database and returns cleanup function
func setupTestDB(t *testing.T) (*BadgerDB, func()) {
	t.Helper()
	tempDir := t.TempDir()

	config := &common.BadgerConfig{
		Path: tempDir,
	}

	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, config)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func TestKVStorage_SetAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	err := storage.Set(ctx, "test-key", "test-value", "A test key")
	require.NoError(t, err)

	value, err := storage.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)

	pair, err := storage.GetPair(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-key", pair.Key)
	assert.Equal(t, "test-value", pair.Value)
	assert.Equal(t, "A test key", pair.Description)
	assert.False(t, pair.CreatedAt.IsZero())
	assert.False(t, pair.UpdatedAt.IsZero())
}

func TestKVStorage_CaseInsensitiveKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	err := storage.Set(ctx, "routeData", "cached-json", "")
	require.NoError(t, err)

	// Any casing reaches the same entry
	value, err := storage.Get(ctx, "ROUTEDATA")
	require.NoError(t, err)
	assert.Equal(t, "cached-json", value)

	value, err = storage.Get(ctx, "routedata")
	require.NoError(t, err)
	assert.Equal(t, "cached-json", value)
}

func TestKVStorage_SetPreservesCreatedAt(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "update-key", "initial", ""))

	first, err := storage.GetPair(ctx, "update-key")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, storage.Set(ctx, "update-key", "updated", ""))

	second, err := storage.GetPair(ctx, "update-key")
	require.NoError(t, err)
	assert.Equal(t, "updated", second.Value)
	assert.Equal(t, first.CreatedAt.UnixNano(), second.CreatedAt.UnixNano(), "created_at should not change")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at should be newer")
}

func TestKVStorage_Upsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	isNew, err := storage.Upsert(ctx, "upsert-key", "v1", "")
	require.NoError(t, err)
	assert.True(t, isNew, "first write should report a new key")

	isNew, err = storage.Upsert(ctx, "upsert-key", "v2", "")
	require.NoError(t, err)
	assert.False(t, isNew, "second write should report an update")

	value, err := storage.Get(ctx, "upsert-key")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestKVStorage_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	_, err := storage.Get(ctx, "non-existent-key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "delete-key", "delete-value", ""))

	err := storage.Delete(ctx, "delete-key")
	require.NoError(t, err)

	_, err = storage.Get(ctx, "delete-key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	err = storage.Delete(ctx, "delete-key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage_List(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := arbor.NewLogger()
	storage := NewKVStorage(db, logger)
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "key1", "value1", "First key"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, storage.Set(ctx, "key2", "value2", "Second key"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, storage.Set(ctx, "key3", "value3", "Third key"))

	pairs, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	// Ordered by updated_at DESC, most recent first
	assert.Equal(t, "key3", pairs[0].Key)
	assert.Equal(t, "key2", pairs[1].Key)
	assert.Equal(t, "key1", pairs[2].Key)
}

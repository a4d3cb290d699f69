package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// draftRecord wraps a draft with its storage key so sweeps can enumerate keys
type draftRecord struct {
	Key       string
	Draft     models.Draft
	UpdatedAt time.Time
}

// DraftStorage implements the DraftStorage interface for Badger
type DraftStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDraftStorage creates a new DraftStorage instance
func NewDraftStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DraftStorage {
	return &DraftStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDraft inserts or updates a draft under its storage key
func (s *DraftStorage) SaveDraft(ctx context.Context, key string, draft *models.Draft) error {
	record := draftRecord{
		Key:       key,
		Draft:     *draft,
		UpdatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(key, &record); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// GetDraft retrieves a draft by storage key
func (s *DraftStorage) GetDraft(ctx context.Context, key string) (*models.Draft, error) {
	var record draftRecord
	err := s.db.Store().Get(key, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return &record.Draft, nil
}

// DeleteDraft removes a draft. Deleting an absent draft is a no-op.
func (s *DraftStorage) DeleteDraft(ctx context.Context, key string) error {
	err := s.db.Store().Delete(key, &draftRecord{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// ListDraftKeys returns the storage keys of all saved drafts
func (s *DraftStorage) ListDraftKeys(ctx context.Context) ([]string, error) {
	var records []draftRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Key").Ne(""))
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	return keys, nil
}

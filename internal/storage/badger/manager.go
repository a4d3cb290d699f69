package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	itinerary interfaces.ItineraryStorage
	place     interfaces.PlaceStorage
	draft     interfaces.DraftStorage
	trip      interfaces.TripStorage
	kv        interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	kv := NewKVStorage(db, logger)

	manager := &Manager{
		db:        db,
		itinerary: NewItineraryStorage(kv, logger),
		place:     NewPlaceStorage(db, logger),
		draft:     NewDraftStorage(db, logger),
		trip:      NewTripStorage(db, logger),
		kv:        kv,
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ItineraryStorage returns the itinerary storage interface
func (m *Manager) ItineraryStorage() interfaces.ItineraryStorage {
	return m.itinerary
}

// PlaceStorage returns the place storage interface
func (m *Manager) PlaceStorage() interfaces.PlaceStorage {
	return m.place
}

// DraftStorage returns the draft storage interface
func (m *Manager) DraftStorage() interfaces.DraftStorage {
	return m.draft
}

// TripStorage returns the trip storage interface
func (m *Manager) TripStorage() interfaces.TripStorage {
	return m.trip
}

// KVStorage returns the key/value storage interface
func (m *Manager) KVStorage() interfaces.KeyValueStorage {
	return m.kv
}

// RunGC runs value-log garbage collection until Badger reports nothing
// left to rewrite
func (m *Manager) RunGC(ctx context.Context) error {
	if m.db == nil || m.db.Store() == nil {
		return nil
	}

	db := m.db.Store().Badger()
	rewritten := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := db.RunValueLogGC(0.5)
		if err == badgerdb.ErrNoRewrite {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to run badger gc: %w", err)
		}
		rewritten++
	}

	m.logger.Debug().Int("rewritten", rewritten).Msg("Badger value log GC completed")
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

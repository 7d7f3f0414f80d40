package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/checkpoint"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/journal"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/replay"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/storage/sqlite"
)

// MemoryDBPath selects the in-memory stores instead of sqlite.
const MemoryDBPath = ":memory:"

// EventQuery lists journal events matching an AIP-160 filter.
type EventQuery interface {
	ListEventsFiltered(ctx context.Context, encounterID, filter string, limit int) ([]event.Event, error)
}

// Stores groups the persistence collaborators of the command path.
type Stores struct {
	Journal     engine.EventJournal
	Events      replay.EventStore
	Checkpoints replay.CheckpointStore
	Snapshots   engine.StateSnapshotStore
	// Query is nil for the in-memory stores.
	Query EventQuery
	close func() error
}

// Close releases the underlying database, if any.
func (s Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// MemoryStores returns process-local stores.
func MemoryStores(events *event.Registry) Stores {
	j := journal.NewMemory(events)
	c := checkpoint.NewMemory()
	return Stores{Journal: j, Events: j, Checkpoints: c, Snapshots: c}
}

// OpenStores opens the sqlite stores at path, creating its directory. The
// MemoryDBPath value returns MemoryStores.
func OpenStores(path string, events *event.Registry) (Stores, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Stores{}, errors.New("storage path is required")
	}
	if path == MemoryDBPath {
		return MemoryStores(events), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Stores{}, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path, events, sqlite.WithStateDecoder(encounter.DecodeSnapshot))
	if err != nil {
		return Stores{}, fmt.Errorf("open sqlite store: %w", err)
	}
	return Stores{
		Journal:     store,
		Events:      store,
		Checkpoints: store,
		Snapshots:   store,
		Query:       store,
		close:       store.Close,
	}, nil
}

// Package replay folds journal events into encounter state.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrCheckpointStoreRequired indicates a missing checkpoint store.
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required")
	// ErrFolderRequired indicates a missing folder.
	ErrFolderRequired = errors.New("folder is required")
	// ErrEncounterIDRequired indicates a missing encounter id.
	ErrEncounterIDRequired = errors.New("encounter id is required")
	// ErrCheckpointNotFound indicates no checkpoint exists yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// EventStore lists events for replay.
type EventStore interface {
	ListEvents(ctx context.Context, encounterID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// CheckpointStore manages replay checkpoints.
type CheckpointStore interface {
	Get(ctx context.Context, encounterID string) (Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}

// Folder applies a journal event to state.
type Folder interface {
	Apply(state any, evt event.Event) (any, error)
}

// Checkpoint captures the last applied sequence for an encounter.
type Checkpoint struct {
	EncounterID string
	LastSeq     uint64
	UpdatedAt   time.Time
}

// Options configures replay behavior.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	State   any
	LastSeq uint64
	Applied int
}

// Replay folds events after options.AfterSeq in order and records a
// checkpoint once the journal is exhausted.
//
// Sequence gaps are errors; a replay never skips a fact.
func Replay(ctx context.Context, store EventStore, checkpoints CheckpointStore, folder Folder, encounterID string, state any, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	if checkpoints == nil {
		return Result{}, ErrCheckpointStoreRequired
	}
	if folder == nil {
		return Result{}, ErrFolderRequired
	}
	encounterID = strings.TrimSpace(encounterID)
	if encounterID == "" {
		return Result{}, ErrEncounterIDRequired
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: options.AfterSeq}
	for {
		events, err := store.ListEvents(ctx, encounterID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			break
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, saveCheckpoint(ctx, checkpoints, encounterID, result)
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			nextState, err := folder.Apply(result.State, evt)
			if err != nil {
				return result, fmt.Errorf("apply event %d (%s): %w", evt.Seq, evt.Type, err)
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
		}
		if len(events) < pageSize {
			break
		}
	}
	return result, saveCheckpoint(ctx, checkpoints, encounterID, result)
}

func saveCheckpoint(ctx context.Context, checkpoints CheckpointStore, encounterID string, result Result) error {
	if result.Applied == 0 {
		return nil
	}
	return checkpoints.Save(ctx, Checkpoint{
		EncounterID: encounterID,
		LastSeq:     result.LastSeq,
		UpdatedAt:   time.Now().UTC(),
	})
}

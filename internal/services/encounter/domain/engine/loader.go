package engine

import (
	"context"
	"errors"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/replay"
)

// StateSnapshotStore loads and saves replay state snapshots keyed by encounter.
type StateSnapshotStore interface {
	GetState(ctx context.Context, encounterID string) (state any, lastSeq uint64, err error)
	SaveState(ctx context.Context, encounterID string, lastSeq uint64, state any) error
}

// ReplayStateLoader builds state from the latest snapshot plus the journal
// events recorded after it.
type ReplayStateLoader struct {
	Events       replay.EventStore
	Checkpoints  replay.CheckpointStore
	Snapshots    StateSnapshotStore
	Folder       replay.Folder
	StateFactory func() any
	Options      replay.Options
}

// Load replays events to reconstruct state for the command's encounter.
func (l ReplayStateLoader) Load(ctx context.Context, cmd command.Command) (any, error) {
	return l.LoadEncounter(ctx, cmd.EncounterID)
}

// LoadEncounter replays events to reconstruct state for encounterID.
func (l ReplayStateLoader) LoadEncounter(ctx context.Context, encounterID string) (any, error) {
	if l.Events == nil {
		return nil, replay.ErrEventStoreRequired
	}
	if l.Checkpoints == nil {
		return nil, replay.ErrCheckpointStoreRequired
	}
	if l.Folder == nil {
		return nil, replay.ErrFolderRequired
	}
	var state any
	options := l.Options
	if l.Snapshots != nil {
		snapshotState, snapshotSeq, err := l.Snapshots.GetState(ctx, encounterID)
		if err != nil {
			if !errors.Is(err, replay.ErrCheckpointNotFound) {
				return nil, err
			}
		} else {
			state = snapshotState
			if snapshotSeq > options.AfterSeq {
				options.AfterSeq = snapshotSeq
			}
		}
	}
	if state == nil && l.StateFactory != nil {
		state = l.StateFactory()
	}
	result, err := replay.Replay(ctx, l.Events, l.Checkpoints, l.Folder, encounterID, state, options)
	if err != nil {
		return nil, err
	}
	return result.State, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/replay"
)

// Get returns the replay checkpoint of an encounter.
func (s *Store) Get(ctx context.Context, encounterID string) (replay.Checkpoint, error) {
	if err := s.ready(ctx); err != nil {
		return replay.Checkpoint{}, err
	}
	if strings.TrimSpace(encounterID) == "" {
		return replay.Checkpoint{}, replay.ErrEncounterIDRequired
	}
	var (
		lastSeq   int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_seq, updated_at FROM checkpoints WHERE encounter_id = ?",
		encounterID,
	).Scan(&lastSeq, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return replay.Checkpoint{}, replay.ErrCheckpointNotFound
		}
		return replay.Checkpoint{}, fmt.Errorf("get checkpoint: %w", err)
	}
	return replay.Checkpoint{
		EncounterID: encounterID,
		LastSeq:     uint64(lastSeq),
		UpdatedAt:   fromMillis(updatedAt),
	}, nil
}

// Save upserts a replay checkpoint. A checkpoint never moves backwards.
func (s *Store) Save(ctx context.Context, checkpoint replay.Checkpoint) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(checkpoint.EncounterID) == "" {
		return replay.ErrEncounterIDRequired
	}
	updatedAt := checkpoint.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO checkpoints (encounter_id, last_seq, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(encounter_id) DO UPDATE SET
    last_seq = MAX(checkpoints.last_seq, excluded.last_seq),
    updated_at = excluded.updated_at`,
		checkpoint.EncounterID, int64(checkpoint.LastSeq), toMillis(updatedAt),
	); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// GetState returns the latest snapshot state of an encounter and the
// sequence it reflects.
func (s *Store) GetState(ctx context.Context, encounterID string) (any, uint64, error) {
	if err := s.ready(ctx); err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(encounterID) == "" {
		return nil, 0, replay.ErrEncounterIDRequired
	}
	if s.decodeState == nil {
		return nil, 0, replay.ErrCheckpointNotFound
	}
	var (
		lastSeq int64
		data    []byte
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_seq, state_json FROM snapshots WHERE encounter_id = ?",
		encounterID,
	).Scan(&lastSeq, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, replay.ErrCheckpointNotFound
		}
		return nil, 0, fmt.Errorf("get snapshot: %w", err)
	}
	state, err := s.decodeState(data)
	if err != nil {
		return nil, 0, err
	}
	return state, uint64(lastSeq), nil
}

// SaveState stores state as JSON. Older snapshots never replace newer ones.
func (s *Store) SaveState(ctx context.Context, encounterID string, lastSeq uint64, state any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(encounterID) == "" {
		return replay.ErrEncounterIDRequired
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO snapshots (encounter_id, last_seq, state_json, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(encounter_id) DO UPDATE SET
    last_seq = excluded.last_seq,
    state_json = excluded.state_json,
    updated_at = excluded.updated_at
WHERE excluded.last_seq >= snapshots.last_seq`,
		encounterID, int64(lastSeq), data, toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/pagination"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/journal"
)

const eventColumns = "encounter_id, seq, event_hash, prev_hash, chain_hash, timestamp, event_type, actor_type, actor_id, request_id, entity_type, entity_id, payload_json"

// filteredPage sizes ListEventsFiltered.
var filteredPage = pagination.PageSizeConfig{Default: 200, Max: 200}

// Append validates evt, assigns the next sequence for its encounter and
// links it into the hash chain.
func (s *Store) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return event.Event{}, err
	}
	validated, err := s.eventRegistry.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = validated
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	prevHash := ""
	row := tx.QueryRowContext(ctx,
		"SELECT seq, chain_hash FROM events WHERE encounter_id = ? ORDER BY seq DESC LIMIT 1",
		evt.EncounterID,
	)
	if err := row.Scan(&lastSeq, &prevHash); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("load previous event: %w", err)
	}
	evt.Seq = uint64(lastSeq) + 1

	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	evt.PrevHash = prevHash
	chainHash, err := event.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.ChainHash = chainHash

	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		evt.EncounterID,
		int64(evt.Seq),
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		toMillis(evt.Timestamp),
		string(evt.Type),
		string(evt.ActorType),
		evt.ActorID,
		evt.RequestID,
		evt.EntityType,
		evt.EntityID,
		payload,
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("append event seq %d: sequence already taken: %w", evt.Seq, err)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return evt, nil
}

// ListEvents returns events after afterSeq in sequence order. A limit of zero
// or less returns every remaining event.
func (s *Store) ListEvents(ctx context.Context, encounterID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(encounterID) == "" {
		return nil, fmt.Errorf("encounter id is required")
	}
	query := "SELECT " + eventColumns + " FROM events WHERE encounter_id = ? AND seq > ? ORDER BY seq ASC"
	params := []any{encounterID, int64(afterSeq)}
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}
	return s.queryEvents(ctx, query, params...)
}

// ListEventsFiltered returns up to limit events of an encounter matching an
// AIP-160 filter such as `type = "turn.started" AND seq > 10`.
func (s *Store) ListEventsFiltered(ctx context.Context, encounterID, filter string, limit int) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(encounterID) == "" {
		return nil, fmt.Errorf("encounter id is required")
	}
	limit = pagination.ClampPageSize(limit, filteredPage)
	cond, err := ParseEventFilter(filter)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + eventColumns + " FROM events WHERE encounter_id = ?"
	params := []any{encounterID}
	if cond.Clause != "" {
		query += " AND " + cond.Clause
		params = append(params, cond.Params...)
	}
	query += " ORDER BY seq ASC LIMIT ?"
	params = append(params, limit)
	return s.queryEvents(ctx, query, params...)
}

// Verify recomputes the hash chain of an encounter.
func (s *Store) Verify(ctx context.Context, encounterID string) error {
	events, err := s.ListEvents(ctx, encounterID, 0, 0)
	if err != nil {
		return err
	}
	if err := journal.VerifyChain(events); err != nil {
		return fmt.Errorf("verify encounter_id=%s: %w", encounterID, err)
	}
	return nil
}

func (s *Store) queryEvents(ctx context.Context, query string, params ...any) ([]event.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			evt        event.Event
			seq        int64
			timestamp  int64
			eventType  string
			actorType  string
			payloadRaw []byte
		)
		if err := rows.Scan(
			&evt.EncounterID,
			&seq,
			&evt.Hash,
			&evt.PrevHash,
			&evt.ChainHash,
			&timestamp,
			&eventType,
			&actorType,
			&evt.ActorID,
			&evt.RequestID,
			&evt.EntityType,
			&evt.EntityID,
			&payloadRaw,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Timestamp = fromMillis(timestamp)
		evt.Type = event.Type(eventType)
		evt.ActorType = event.ActorType(actorType)
		evt.PayloadJSON = payloadRaw
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

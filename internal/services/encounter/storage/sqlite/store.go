package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/storage/sqlitemigrate"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/storage/sqlite/migrations"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// StateDecoder rebuilds a snapshot state from its stored JSON.
type StateDecoder func([]byte) (any, error)

// Store is the SQLite journal, checkpoint and snapshot store for encounters.
type Store struct {
	sqlDB         *sql.DB
	eventRegistry *event.Registry
	decodeState   StateDecoder
}

// Option configures a Store.
type Option func(*Store)

// WithStateDecoder sets how snapshot states are rebuilt on load. Without a
// decoder, GetState reports that no snapshot exists and callers replay the
// full journal.
func WithStateDecoder(decode StateDecoder) Option {
	return func(s *Store) {
		s.decodeState = decode
	}
}

// Open opens the encounter database at path and applies embedded migrations.
// Appended events are validated against registry.
func Open(path string, registry *event.Registry, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("event registry is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// A single connection keeps append sequencing serial.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{sqlDB: sqlDB, eventRegistry: registry}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Close closes the underlying database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

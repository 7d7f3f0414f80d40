package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestApplyRecordsApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"events/001_create.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;"),
		},
		"events/README.md": &fstest.MapFile{Data: []byte("ignored")},
	}

	applied, err := Apply(context.Background(), db, migrations, "events")
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if len(applied) != 1 || applied[0] != "events/001_create.sql" {
		t.Fatalf("applied = %v, want [events/001_create.sql]", applied)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("migration rows = %d, want 1", rows)
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected applied table to exist")
	}
}

func TestApplySkipsAlreadyApplied(t *testing.T) {
	db := openInMemoryDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);"),
		},
	}
	if _, err := Apply(context.Background(), db, migrations, ""); err != nil {
		t.Fatalf("apply initial migrations: %v", err)
	}
	applied, err := Apply(context.Background(), db, migrations, "")
	if err != nil {
		t.Fatalf("re-apply migrations should be idempotent: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("applied = %v, want none", applied)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	db := openInMemoryDB(t)
	migrations := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE (;")},
	}
	if _, err := Apply(context.Background(), db, migrations, ""); err == nil {
		t.Fatal("expected error")
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 0 {
		t.Fatalf("migration rows = %d, want 0", rows)
	}
}

func TestExtractUp(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a(id TEXT);", want: "CREATE TABLE a(id TEXT);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a(id TEXT);", want: "\nCREATE TABLE a(id TEXT);"},
		{name: "up and down", content: "-- +migrate Up\nA;\n-- +migrate Down\nB;", want: "\nA;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUp(tt.content); got != tt.want {
				t.Fatalf("ExtractUp = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	if IsAlreadyExistsError(nil) {
		t.Fatal("nil error should not match")
	}
	if !IsAlreadyExistsError(errors.New("table items already exists")) {
		t.Fatal("expected already exists match")
	}
	if IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("syntax error should not match")
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("lookup table %s: %v", name, err)
	}
	return true
}

// Package sqlite persists the encounter journal, replay checkpoints and
// encounter snapshots in a single SQLite database.
package sqlite

// Package journal provides an in-memory, hash-chained event journal.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

// Memory is an append-only journal kept in process memory. It backs
// scenario runs and tests; the sqlite store is the durable counterpart.
type Memory struct {
	mu       sync.Mutex
	registry *event.Registry
	events   map[string][]event.Event
}

// NewMemory creates an empty journal validating against registry.
func NewMemory(registry *event.Registry) *Memory {
	return &Memory{registry: registry, events: make(map[string][]event.Event)}
}

// Append assigns sequence, hash and chain hash, then stores evt.
func (m *Memory) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if m == nil {
		return event.Event{}, errors.New("journal is required")
	}
	if m.registry != nil {
		validated, err := m.registry.ValidateForAppend(evt)
		if err != nil {
			return event.Event{}, err
		}
		evt = validated
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.events[evt.EncounterID]
	evt.Seq = uint64(len(stored)) + 1
	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	if len(stored) > 0 {
		evt.PrevHash = stored[len(stored)-1].ChainHash
	}
	chainHash, err := event.ChainHash(evt, evt.PrevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.ChainHash = chainHash
	m.events[evt.EncounterID] = append(stored, evt)
	return evt, nil
}

// ListEvents returns up to limit events after afterSeq.
func (m *Memory) ListEvents(ctx context.Context, encounterID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("journal is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.events[strings.TrimSpace(encounterID)]
	if afterSeq >= uint64(len(stored)) {
		return nil, nil
	}
	page := stored[afterSeq:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return append([]event.Event(nil), page...), nil
}

// Verify recomputes the chain for an encounter and reports the first break.
func (m *Memory) Verify(ctx context.Context, encounterID string) error {
	events, err := m.ListEvents(ctx, encounterID, 0, 0)
	if err != nil {
		return err
	}
	return VerifyChain(events)
}

// VerifyChain checks that events form an unbroken hash chain from seq 1.
func VerifyChain(events []event.Event) error {
	prev := ""
	for i, evt := range events {
		if evt.Seq != uint64(i)+1 {
			return fmt.Errorf("event %d: sequence %d out of order", i, evt.Seq)
		}
		hash, err := event.EventHash(evt)
		if err != nil {
			return err
		}
		if hash != evt.Hash {
			return fmt.Errorf("event %d: hash mismatch", evt.Seq)
		}
		if evt.PrevHash != prev {
			return fmt.Errorf("event %d: previous hash mismatch", evt.Seq)
		}
		chain, err := event.ChainHash(evt, prev)
		if err != nil {
			return err
		}
		if chain != evt.ChainHash {
			return fmt.Errorf("event %d: chain hash mismatch", evt.Seq)
		}
		prev = evt.ChainHash
	}
	return nil
}

package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives published notifications. Handlers run on the publisher's
// goroutine and must not block.
type Handler func(ctx context.Context, n Notification)

// Bus is an in-process publish/subscribe hub.
type Bus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]Handler
	order       []int
	log         zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[int]Handler), log: log}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers each notification to every subscriber, in subscription
// order. A panicking handler is logged and skipped.
func (b *Bus) Publish(ctx context.Context, notifications ...Notification) {
	if b == nil || len(notifications) == 0 {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subscribers[id])
	}
	b.mu.RUnlock()

	for _, n := range notifications {
		b.log.Debug().
			Str("kind", string(n.Kind)).
			Str("encounter_id", n.EncounterID).
			Uint64("seq", n.Seq).
			Int("subscribers", len(handlers)).
			Msg("publish notification")
		for _, h := range handlers {
			b.deliver(ctx, h, n)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("kind", string(n.Kind)).
				Msg("notification handler panicked")
		}
	}()
	h(ctx, n)
}

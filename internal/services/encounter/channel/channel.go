// Package channel carries encounter intents and notifications between
// processes. Delivery is at most once, unordered and unacknowledged.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Topic names a stream of frames.
type Topic string

const (
	// TopicIntents carries gateway intents from relays to the authority.
	TopicIntents Topic = "encounter.intent"
	// TopicNotifications carries notifications from the authority to observers.
	TopicNotifications Topic = "encounter.notification"
)

// Handler receives one frame payload.
type Handler func(ctx context.Context, payload json.RawMessage)

// Channel sends payloads on a topic and delivers received payloads to
// subscribers of that topic.
type Channel interface {
	Send(ctx context.Context, topic Topic, payload any) error
	OnReceive(topic Topic, h Handler) (unsubscribe func())
}

// Frame is the wire envelope shared by every transport.
type Frame struct {
	Topic   Topic           `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func encodeFrame(topic Topic, payload any) (Frame, error) {
	if topic == "" {
		return Frame{}, fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return Frame{Topic: topic, Payload: data}, nil
}

// subscriptions is the per-topic handler table shared by the transports.
type subscriptions struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Topic]map[int]Handler
}

func (s *subscriptions) add(topic Topic, h Handler) func() {
	if h == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.handlers == nil {
		s.handlers = make(map[Topic]map[int]Handler)
	}
	if s.handlers[topic] == nil {
		s.handlers[topic] = make(map[int]Handler)
	}
	s.nextID++
	id := s.nextID
	s.handlers[topic][id] = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers[topic], id)
		s.mu.Unlock()
	}
}

func (s *subscriptions) deliver(ctx context.Context, frame Frame) int {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.handlers[frame.Topic]))
	for _, h := range s.handlers[frame.Topic] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, frame.Payload)
	}
	return len(handlers)
}

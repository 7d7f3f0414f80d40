package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encoding"
)

var (
	// ErrEncounterIDRequired indicates a missing encounter id.
	ErrEncounterIDRequired = errors.New("encounter id is required")
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
	// ErrTypeUnknown indicates an unregistered event type.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrActorTypeInvalid indicates an unknown actor type.
	ErrActorTypeInvalid = errors.New("actor type is invalid")
	// ErrActorIDRequired indicates a missing actor id for participant/gm.
	ErrActorIDRequired = errors.New("actor id is required for participant or gm")
	// ErrEntityTypeRequired indicates an addressed event without entity type.
	ErrEntityTypeRequired = errors.New("entity type is required")
	// ErrEntityIDRequired indicates an addressed event without entity id.
	ErrEntityIDRequired = errors.New("entity id is required")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// AddressingPolicy declares whether an event must name the entity it changes.
type AddressingPolicy string

const (
	// AddressingPolicyNone accepts events without entity addressing.
	AddressingPolicyNone AddressingPolicy = ""
	// AddressingPolicyEntityTarget requires entity type and id.
	AddressingPolicyEntityTarget AddressingPolicy = "entity_target"
)

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	Addressing      AddressingPolicy
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new event type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("event type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForAppend validates and normalizes an event before it reaches the journal.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	if r == nil {
		return Event{}, errors.New("registry is required")
	}
	evt.EncounterID = strings.TrimSpace(evt.EncounterID)
	if evt.EncounterID == "" {
		return Event{}, ErrEncounterIDRequired
	}
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if evt.Type == "" {
		return Event{}, ErrTypeRequired
	}
	def, ok := r.definitions[evt.Type]
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrTypeUnknown, evt.Type)
	}

	evt.ActorType = ActorType(strings.TrimSpace(string(evt.ActorType)))
	if evt.ActorType == "" {
		evt.ActorType = ActorTypeSystem
	}
	switch evt.ActorType {
	case ActorTypeSystem, ActorTypeParticipant, ActorTypeGM:
	default:
		return Event{}, ErrActorTypeInvalid
	}
	evt.ActorID = strings.TrimSpace(evt.ActorID)
	if evt.ActorType != ActorTypeSystem && evt.ActorID == "" {
		return Event{}, ErrActorIDRequired
	}

	evt.EntityType = strings.TrimSpace(evt.EntityType)
	evt.EntityID = strings.TrimSpace(evt.EntityID)
	if def.Addressing == AddressingPolicyEntityTarget {
		if evt.EntityType == "" {
			return Event{}, ErrEntityTypeRequired
		}
		if evt.EntityID == "" {
			return Event{}, ErrEntityIDRequired
		}
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, ErrPayloadInvalid
	}
	canonical, err := encoding.CanonicalJSON(json.RawMessage(evt.PayloadJSON))
	if err != nil {
		return Event{}, fmt.Errorf("canonical payload json: %w", err)
	}
	evt.PayloadJSON = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(evt.PayloadJSON)); err != nil {
			return Event{}, fmt.Errorf("payload invalid for %s: %w", evt.Type, err)
		}
	}
	return evt, nil
}

// Definition returns the event definition for a given type.
func (r *Registry) Definition(eventType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[Type(strings.TrimSpace(string(eventType)))]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Type < definitions[j].Type
	})
	return definitions
}

package command

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
	// ErrTypeRequired indicates a missing command type.
	ErrTypeRequired = errors.New("command type is required")
	// ErrTypeUnknown indicates an unregistered command type.
	ErrTypeUnknown = errors.New("command type is not registered")
	// ErrActorTypeInvalid indicates an unknown actor type.
	ErrActorTypeInvalid = errors.New("actor type is invalid")
	// ErrActorIDRequired indicates a missing actor id for participant/gm.
	ErrActorIDRequired = errors.New("actor id is required for participant or gm")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Type identifies the command type string.
type Type string

// GateScope declares which callers may issue a command.
type GateScope string

const (
	// GateScopeNone leaves authorization to the decider.
	GateScopeNone GateScope = "none"
	// GateScopeGM restricts the command to the GM and the system.
	GateScopeGM GateScope = "gm"
)

// GatePolicy declares how a command is authorized before it is decided.
type GatePolicy struct {
	Scope GateScope
}

// ActorType identifies the actor who initiated the command.
type ActorType string

const (
	// ActorTypeSystem indicates a system-originated command.
	ActorTypeSystem ActorType = "system"
	// ActorTypeParticipant indicates a participant-originated command.
	ActorTypeParticipant ActorType = "participant"
	// ActorTypeGM indicates a GM-originated command.
	ActorTypeGM ActorType = "gm"
)

// Command captures the canonical command envelope.
type Command struct {
	EncounterID string
	Type        Type
	ActorType   ActorType
	ActorID     string
	RequestID   string
	EntityType  string
	EntityID    string
	PayloadJSON []byte
}

// Privileged reports whether the command was issued by the GM or the system.
func (c Command) Privileged() bool {
	return c.ActorType == ActorTypeGM || c.ActorType == ActorTypeSystem
}

// Definition registers metadata for a command type.
type Definition struct {
	Type            Type
	ValidatePayload PayloadValidator
	Gate            GatePolicy
}

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Registry stores command definitions and validates commands.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new command type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	switch def.Gate.Scope {
	case "":
		def.Gate.Scope = GateScopeNone
	case GateScopeNone, GateScopeGM:
	default:
		return fmt.Errorf("gate scope must be none or gm")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("command type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForDecision validates and normalizes a command before decision handling.
func (r *Registry) ValidateForDecision(cmd Command) (Command, error) {
	if r == nil {
		return Command{}, errors.New("registry is required")
	}
	cmd.EncounterID = strings.TrimSpace(cmd.EncounterID)
	if cmd.EncounterID == "" {
		return Command{}, ErrEncounterIDRequired
	}
	cmd.Type = Type(strings.TrimSpace(string(cmd.Type)))
	if cmd.Type == "" {
		return Command{}, ErrTypeRequired
	}
	def, ok := r.definitions[cmd.Type]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrTypeUnknown, cmd.Type)
	}

	cmd.ActorType = ActorType(strings.TrimSpace(string(cmd.ActorType)))
	if cmd.ActorType == "" {
		cmd.ActorType = ActorTypeSystem
	}
	switch cmd.ActorType {
	case ActorTypeSystem, ActorTypeParticipant, ActorTypeGM:
		// allowed
	default:
		return Command{}, ErrActorTypeInvalid
	}
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if (cmd.ActorType == ActorTypeParticipant || cmd.ActorType == ActorTypeGM) && cmd.ActorID == "" {
		return Command{}, ErrActorIDRequired
	}

	if len(cmd.PayloadJSON) == 0 {
		cmd.PayloadJSON = []byte("{}")
	}
	if !json.Valid(cmd.PayloadJSON) {
		return Command{}, ErrPayloadInvalid
	}

	canonical, err := encoding.CanonicalJSON(json.RawMessage(cmd.PayloadJSON))
	if err != nil {
		return Command{}, fmt.Errorf("canonical payload json: %w", err)
	}
	cmd.PayloadJSON = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(cmd.PayloadJSON)); err != nil {
			return Command{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return cmd, nil
}

// Definition returns the command definition for a given type.
func (r *Registry) Definition(cmdType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	cmdType = Type(strings.TrimSpace(string(cmdType)))
	if cmdType == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[cmdType]
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
		return string(definitions[i].Type) < string(definitions[j].Type)
	})
	return definitions
}

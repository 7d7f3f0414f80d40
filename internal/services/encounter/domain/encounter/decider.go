package encounter

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/effects"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

// Decider turns encounter commands into events. It implements
// engine.Decider.
type Decider struct {
	Effects *effects.Registry
	Folder  Folder
	NewID   id.Generator
}

// NewDecider returns a Decider over the built-in conditions.
func NewDecider() Decider {
	registry := effects.Default()
	return Decider{
		Effects: registry,
		Folder:  Folder{Effects: registry},
		NewID:   id.NewID,
	}
}

type decideFunc func(b *builder)

// deciders is the single dispatch table from command type to decision.
var deciders = map[command.Type]decideFunc{
	CommandTypeCreate:          decideCreate,
	CommandTypeConfigure:       decideConfigure,
	CommandTypeActorRegister:   decideActorRegister,
	CommandTypeCombatantAdd:    decideCombatantAdd,
	CommandTypeCombatantRemove: decideCombatantRemove,
	CommandTypeSetDefeated:     decideSetDefeated,
	CommandTypeSetHidden:       decideSetHidden,
	CommandTypeCombatStart:     decideCombatStart,
	CommandTypeCombatEnd:       decideCombatEnd,
	CommandTypeTurnStart:       decideTurnStart,
	CommandTypeTurnEnd:         decideTurnEnd,
	CommandTypeTurnAdvance:     decideTurnAdvance,
	CommandTypeRoundAdvance:    decideRoundAdvance,
	CommandTypeEffectApply:     decideEffectApply,
	CommandTypeConfirmStage:    decideConfirmStage,
	CommandTypeCancelPrompt:    decideCancelPrompt,
	CommandTypeEffectRemove:    decideEffectRemove,
	CommandTypeResolveExpiry:   decideResolveExpiry,
	CommandTypeDamage:          decideDamage,
	CommandTypeUndoDamage:      decideUndoDamage,
	CommandTypeSpendStamina:    decideSpendStamina,
	CommandTypeApplyBloodloss:  decideApplyBloodloss,
	CommandTypeRest:            decideRest,
}

// Decide returns the decision for cmd against state.
//
// Every emitted event is folded into a scratch copy before the next one is
// built, so hooks and completion checks always read the state the journal
// will hold once the decision commits.
func (d Decider) Decide(state any, cmd command.Command, now func() time.Time) command.Decision {
	current, err := stateFrom(state, cmd.EncounterID)
	if err != nil {
		return command.Reject(command.Rejection{
			Code:    string(apperrors.CodeUnknown),
			Message: err.Error(),
		})
	}
	decide, ok := deciders[cmd.Type]
	if !ok {
		return command.Reject(command.Rejection{
			Code:     string(apperrors.CodeInvalidArgument),
			Message:  fmt.Sprintf("unsupported command %s", cmd.Type),
			Metadata: map[string]string{"reason": "unsupported command " + string(cmd.Type)},
		})
	}
	if now == nil {
		now = time.Now
	}
	b := &builder{decider: d, cmd: cmd, now: now().UTC(), state: current}
	if cmd.Type != CommandTypeCreate && !current.Created {
		b.reject(apperrors.CodeEncounterNotFound, "encounter does not exist", map[string]string{
			"encounter": cmd.EncounterID,
		})
		return b.decision()
	}
	decide(b)
	return b.decision()
}

func stateFrom(state any, encounterID string) (State, error) {
	switch typed := state.(type) {
	case nil:
		return NewState(encounterID), nil
	case State:
		return typed.Clone(), nil
	case *State:
		if typed == nil {
			return NewState(encounterID), nil
		}
		return typed.Clone(), nil
	}
	return State{}, fmt.Errorf("unsupported encounter state type %T", state)
}

// builder accumulates one decision. After the first rejection every further
// emit is ignored and the decision carries no events.
type builder struct {
	decider    Decider
	cmd        command.Command
	now        time.Time
	state      State
	events     []event.Event
	rejection  *command.Rejection
	suppressed []command.Rejection
}

func (b *builder) rejected() bool { return b.rejection != nil }

func (b *builder) reject(code apperrors.Code, message string, metadata map[string]string) {
	if b.rejected() {
		return
	}
	b.rejection = &command.Rejection{Code: string(code), Message: message, Metadata: metadata}
}

func (b *builder) suppress(code apperrors.Code, message string, metadata map[string]string) {
	b.suppressed = append(b.suppressed, command.Rejection{Code: string(code), Message: message, Metadata: metadata})
}

// emit builds an event, folds it into the scratch state and records it.
func (b *builder) emit(eventType event.Type, entityType, entityID string, payload any) {
	if b.rejected() {
		return
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		b.reject(apperrors.CodeUnknown, fmt.Sprintf("encode %s: %v", eventType, err), nil)
		return
	}
	evt := command.NewEvent(b.cmd, eventType, entityType, entityID, payloadJSON, b.now)
	next, err := b.decider.Folder.Fold(b.state, evt)
	if err != nil {
		b.reject(apperrors.CodeUnknown, err.Error(), nil)
		return
	}
	b.state = next
	b.events = append(b.events, evt)
}

func (b *builder) newID() (string, bool) {
	generate := b.decider.NewID
	if generate == nil {
		generate = id.NewID
	}
	value, err := generate()
	if err != nil {
		b.reject(apperrors.CodeUnknown, err.Error(), nil)
		return "", false
	}
	return value, true
}

// decode unmarshals the command payload; the registry has already validated
// it, so failure here is an internal error.
func decode[T any](b *builder) (T, bool) {
	var payload T
	if err := json.Unmarshal(b.cmd.PayloadJSON, &payload); err != nil {
		b.reject(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"reason": err.Error()})
		return payload, false
	}
	return payload, true
}

func (b *builder) decision() command.Decision {
	if b.rejection != nil {
		return command.Reject(*b.rejection)
	}
	return command.Decision{Events: b.events, Suppressed: b.suppressed}
}

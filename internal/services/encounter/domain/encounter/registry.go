package encounter

import (
	"errors"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

var gmOnly = command.GatePolicy{Scope: command.GateScopeGM}

var commandDefinitions = []command.Definition{
	{Type: CommandTypeCreate, ValidatePayload: validateCreatePayload, Gate: gmOnly},
	{Type: CommandTypeConfigure, ValidatePayload: validateConfigurePayload, Gate: gmOnly},
	{Type: CommandTypeActorRegister, ValidatePayload: validateActorRegisterPayload, Gate: gmOnly},
	{Type: CommandTypeCombatantAdd, ValidatePayload: validateCombatantAddPayload, Gate: gmOnly},
	{Type: CommandTypeCombatantRemove, ValidatePayload: validateCombatantRefPayload, Gate: gmOnly},
	{Type: CommandTypeSetDefeated, ValidatePayload: validateSetDefeatedPayload, Gate: gmOnly},
	{Type: CommandTypeSetHidden, ValidatePayload: validateSetHiddenPayload, Gate: gmOnly},
	{Type: CommandTypeCombatStart, ValidatePayload: validateCombatStartPayload, Gate: gmOnly},
	{Type: CommandTypeCombatEnd, Gate: gmOnly},
	// Ownership of the combatant is checked by the decider, after the
	// combat-started check.
	{Type: CommandTypeTurnStart, ValidatePayload: validateCombatantRefPayload},
	{Type: CommandTypeTurnEnd, ValidatePayload: validateCombatantRefPayload},
	{Type: CommandTypeTurnAdvance, Gate: gmOnly},
	{Type: CommandTypeRoundAdvance, Gate: gmOnly},
	{Type: CommandTypeEffectApply, ValidatePayload: validateEffectApplyPayload, Gate: gmOnly},
	{Type: CommandTypeConfirmStage, ValidatePayload: validateConfirmStagePayload, Gate: gmOnly},
	{Type: CommandTypeCancelPrompt, ValidatePayload: validatePromptRefPayload, Gate: gmOnly},
	{Type: CommandTypeEffectRemove, ValidatePayload: validateEffectRemovePayload, Gate: gmOnly},
	{Type: CommandTypeResolveExpiry, ValidatePayload: validateResolveExpiryPayload, Gate: gmOnly},
	{Type: CommandTypeDamage, ValidatePayload: validateAmountPayload, Gate: gmOnly},
	{Type: CommandTypeUndoDamage, ValidatePayload: validateUndoDamagePayload, Gate: gmOnly},
	{Type: CommandTypeSpendStamina, ValidatePayload: validateAmountPayload},
	{Type: CommandTypeApplyBloodloss, ValidatePayload: validateAmountPayload, Gate: gmOnly},
	{Type: CommandTypeRest, ValidatePayload: validateActorRefPayload},
}

var eventDefinitions = []event.Definition{
	{Type: EventTypeCreated},
	{Type: EventTypeConfigured},
	{Type: EventTypeActorRegistered, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeCombatantAdded, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeCombatantRemoved, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeDefeatedSet, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeHiddenSet, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeMarkerSet, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeCombatStarted},
	{Type: EventTypeCombatEnded},
	{Type: EventTypeTurnStarted, Addressing: event.AddressingPolicyEntityTarget, ValidatePayload: validateTurnEventPayload},
	{Type: EventTypeTurnEnded, Addressing: event.AddressingPolicyEntityTarget, ValidatePayload: validateTurnEventPayload},
	{Type: EventTypePhaseSwitched},
	{Type: EventTypeRoundAdvanced},
	{Type: EventTypeEffectApplied, Addressing: event.AddressingPolicyEntityTarget, ValidatePayload: validateEffectAppliedPayload},
	{Type: EventTypeApplicationCancelled, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeStageRequested, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypePromptCancelled, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeExpiryPrompted, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeEffectRemoved, Addressing: event.AddressingPolicyEntityTarget, ValidatePayload: validateEffectRemovedPayload},
	{Type: EventTypeCounterAdvanced, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeDamaged, Addressing: event.AddressingPolicyEntityTarget, ValidatePayload: validateDamagedPayload},
	{Type: EventTypeDamageUndone, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeMaxReduced, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeStaminaSpent, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeBloodlossApplied, Addressing: event.AddressingPolicyEntityTarget},
	{Type: EventTypeRested, Addressing: event.AddressingPolicyEntityTarget},
}

// RegisterCommands registers encounter commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	for _, def := range commandDefinitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers encounter events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	for _, def := range eventDefinitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// FoldHandledTypes returns the event types handled by Fold.
func FoldHandledTypes() []event.Type {
	types := make([]event.Type, 0, len(eventDefinitions))
	for _, def := range eventDefinitions {
		types = append(types, def.Type)
	}
	return types
}

// NewRegistries returns command and event registries with every encounter
// type registered.
func NewRegistries() (*command.Registry, *event.Registry, error) {
	commands := command.NewRegistry()
	if err := RegisterCommands(commands); err != nil {
		return nil, nil, err
	}
	events := event.NewRegistry()
	if err := RegisterEvents(events); err != nil {
		return nil, nil, err
	}
	return commands, events, nil
}

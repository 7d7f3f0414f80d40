package encounter

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

const (
	CommandTypeCreate          command.Type = "encounter.create"
	CommandTypeConfigure       command.Type = "encounter.configure"
	CommandTypeActorRegister   command.Type = "actor.register"
	CommandTypeCombatantAdd    command.Type = "combatant.add"
	CommandTypeCombatantRemove command.Type = "combatant.remove"
	CommandTypeSetDefeated     command.Type = "combatant.set_defeated"
	CommandTypeSetHidden       command.Type = "combatant.set_hidden"
	CommandTypeCombatStart     command.Type = "combat.start"
	CommandTypeCombatEnd       command.Type = "combat.end"
	CommandTypeTurnStart       command.Type = "turn.start"
	CommandTypeTurnEnd         command.Type = "turn.end"
	CommandTypeTurnAdvance     command.Type = "turn.advance"
	CommandTypeRoundAdvance    command.Type = "round.advance"
	CommandTypeEffectApply     command.Type = "effect.apply"
	CommandTypeConfirmStage    command.Type = "effect.confirm_stage"
	CommandTypeCancelPrompt    command.Type = "effect.cancel_prompt"
	CommandTypeEffectRemove    command.Type = "effect.remove"
	CommandTypeResolveExpiry   command.Type = "effect.resolve_expiry"
	CommandTypeDamage          command.Type = "actor.damage"
	CommandTypeUndoDamage      command.Type = "actor.undo_damage"
	CommandTypeSpendStamina    command.Type = "actor.spend_stamina"
	CommandTypeApplyBloodloss  command.Type = "actor.apply_bloodloss"
	CommandTypeRest            command.Type = "actor.rest"

	EventTypeCreated              event.Type = "encounter.created"
	EventTypeConfigured           event.Type = "encounter.configured"
	EventTypeActorRegistered      event.Type = "actor.registered"
	EventTypeCombatantAdded       event.Type = "combatant.added"
	EventTypeCombatantRemoved     event.Type = "combatant.removed"
	EventTypeDefeatedSet          event.Type = "combatant.defeated_set"
	EventTypeHiddenSet            event.Type = "combatant.hidden_set"
	EventTypeMarkerSet            event.Type = "combatant.marker_set"
	EventTypeCombatStarted        event.Type = "combat.started"
	EventTypeCombatEnded          event.Type = "combat.ended"
	EventTypeTurnStarted          event.Type = "turn.started"
	EventTypeTurnEnded            event.Type = "turn.ended"
	EventTypePhaseSwitched        event.Type = "phase.switched"
	EventTypeRoundAdvanced        event.Type = "round.advanced"
	EventTypeEffectApplied        event.Type = "effect.applied"
	EventTypeApplicationCancelled event.Type = "effect.application_cancelled"
	EventTypeStageRequested       event.Type = "effect.stage_requested"
	EventTypePromptCancelled      event.Type = "effect.prompt_cancelled"
	EventTypeExpiryPrompted       event.Type = "effect.expiry_prompted"
	EventTypeEffectRemoved        event.Type = "effect.removed"
	EventTypeCounterAdvanced      event.Type = "effect.counter_advanced"
	EventTypeDamaged              event.Type = "actor.damaged"
	EventTypeDamageUndone         event.Type = "actor.damage_undone"
	EventTypeMaxReduced           event.Type = "actor.max_reduced"
	EventTypeStaminaSpent         event.Type = "actor.stamina_spent"
	EventTypeBloodlossApplied     event.Type = "actor.bloodloss_applied"
	EventTypeRested               event.Type = "actor.rested"
)

// Entity types used in event addressing.
const (
	EntityEncounter = "encounter"
	EntityCombatant = "combatant"
	EntityActor     = "actor"
	EntityPrompt    = "prompt"
)

// Removal reasons carried by effect.removed.
const (
	ReasonManual    = "manual"
	ReasonExpired   = "expired"
	ReasonEvicted   = "evicted"
	ReasonEscalated = "escalated"
	ReasonRest      = "rest"
	ReasonConsumed  = "consumed"
)

package encounter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// CreatePayload captures the payload for encounter.create.
type CreatePayload struct {
	Name   string  `json:"name,omitempty"`
	Policy *Policy `json:"policy,omitempty"`
}

// ConfigurePayload captures the payload for encounter.configure. Nil fields
// keep the current value.
type ConfigurePayload struct {
	SkipDefeatedPhase  *bool `json:"skip_defeated_phase,omitempty"`
	SkipDefeatedRound  *bool `json:"skip_defeated_round,omitempty"`
	ConfirmFixedExpiry *bool `json:"confirm_fixed_expiry,omitempty"`
}

// ActorRegisterPayload captures the payload for actor.register. Nil current
// values start full.
type ActorRegisterPayload struct {
	ActorID    string     `json:"actor_id"`
	Name       string     `json:"name"`
	Type       actor.Type `json:"type"`
	OwnerID    string     `json:"owner_id,omitempty"`
	Level      int        `json:"level"`
	BaseHealth int        `json:"base_health"`
	HealthMod  int        `json:"health_mod,omitempty"`
	StaminaMod int        `json:"stamina_mod,omitempty"`
	ManaMod    int        `json:"mana_mod,omitempty"`
	Aegis      int        `json:"aegis,omitempty"`
	Health     *int       `json:"health,omitempty"`
	Stamina    *int       `json:"stamina,omitempty"`
	Mana       *int       `json:"mana,omitempty"`
}

// CombatantAddPayload captures the payload for combatant.add.
type CombatantAddPayload struct {
	CombatantID     string `json:"combatant_id"`
	Name            string `json:"name"`
	ActorID         string `json:"actor_id,omitempty"`
	FactionOverride string `json:"faction_override,omitempty"`
	Disposition     *int   `json:"disposition,omitempty"`
	Hidden          bool   `json:"hidden,omitempty"`
}

// CombatantRefPayload names a combatant. It is the payload of turn.start,
// turn.end and combatant.remove.
type CombatantRefPayload struct {
	CombatantID string `json:"combatant_id"`
}

// SetDefeatedPayload captures the payload for combatant.set_defeated.
type SetDefeatedPayload struct {
	CombatantID string `json:"combatant_id"`
	Defeated    bool   `json:"defeated"`
}

// SetHiddenPayload captures the payload for combatant.set_hidden.
type SetHiddenPayload struct {
	CombatantID string `json:"combatant_id"`
	Hidden      bool   `json:"hidden"`
}

// CombatStartPayload captures the payload for combat.start.
type CombatStartPayload struct {
	FirstFaction string `json:"first_faction,omitempty"`
	Cancelled    bool   `json:"cancelled,omitempty"`
}

// EffectApplyPayload captures the payload for effect.apply. A zero stage on
// a stage-scaled kind opens a stage prompt.
type EffectApplyPayload struct {
	ActorID string `json:"actor_id"`
	Kind    string `json:"kind"`
	Stage   int    `json:"stage,omitempty"`
}

// ConfirmStagePayload captures the payload for effect.confirm_stage.
type ConfirmStagePayload struct {
	PromptID string `json:"prompt_id"`
	Stage    int    `json:"stage"`
}

// PromptRefPayload names a pending prompt.
type PromptRefPayload struct {
	PromptID string `json:"prompt_id"`
}

// ResolveExpiryPayload captures the payload for effect.resolve_expiry.
type ResolveExpiryPayload struct {
	PromptID string `json:"prompt_id"`
	Remove   bool   `json:"remove"`
}

// EffectRemovePayload captures the payload for effect.remove.
type EffectRemovePayload struct {
	ActorID  string `json:"actor_id"`
	EffectID string `json:"effect_id"`
}

// AmountPayload carries an actor and a positive amount. It is the payload of
// actor.damage, actor.spend_stamina and actor.apply_bloodloss.
type AmountPayload struct {
	ActorID string `json:"actor_id"`
	Amount  int    `json:"amount"`
}

// UndoDamagePayload captures the payload for actor.undo_damage.
type UndoDamagePayload struct {
	DamageID string `json:"damage_id"`
}

// ActorRefPayload names an actor.
type ActorRefPayload struct {
	ActorID string `json:"actor_id"`
}

// CreatedPayload captures the payload for encounter.created.
type CreatedPayload struct {
	Name   string `json:"name,omitempty"`
	Policy Policy `json:"policy"`
}

// ConfiguredPayload captures the payload for encounter.configured.
type ConfiguredPayload struct {
	Policy Policy `json:"policy"`
}

// ActorRegisteredPayload captures the payload for actor.registered.
type ActorRegisteredPayload struct {
	Actor actor.State `json:"actor"`
}

// CombatantAddedPayload captures the payload for combatant.added.
type CombatantAddedPayload struct {
	Combatant combatant.State `json:"combatant"`
}

// MarkerSetPayload captures the payload for combatant.marker_set.
type MarkerSetPayload struct {
	CombatantID string           `json:"combatant_id"`
	Marker      combatant.Marker `json:"marker"`
}

// CombatStartedPayload captures the payload for combat.started.
type CombatStartedPayload struct {
	FirstFaction combatant.Faction `json:"first_faction"`
}

// CombatEndedPayload captures the payload for combat.ended.
type CombatEndedPayload struct {
	Round int `json:"round"`
}

// TurnPayload captures the payload for turn.started and turn.ended.
type TurnPayload struct {
	CombatantID string            `json:"combatant_id"`
	Faction     combatant.Faction `json:"faction"`
	Round       int               `json:"round"`
}

// PhaseSwitchedPayload captures the payload for phase.switched.
type PhaseSwitchedPayload struct {
	From  combatant.Faction `json:"from"`
	To    combatant.Faction `json:"to"`
	Round int               `json:"round"`
}

// RoundAdvancedPayload captures the payload for round.advanced.
type RoundAdvancedPayload struct {
	EndedRound int `json:"ended_round"`
	Round      int `json:"round"`
}

// EffectAppliedPayload captures the payload for effect.applied.
type EffectAppliedPayload struct {
	ActorID    string         `json:"actor_id"`
	EffectID   string         `json:"effect_id"`
	Kind       condition.Kind `json:"kind"`
	Stage      int            `json:"stage,omitempty"`
	Inert      bool           `json:"inert,omitempty"`
	StartRound int            `json:"start_round"`
	PromptID   string         `json:"prompt_id,omitempty"`
	Source     condition.Kind `json:"source,omitempty"`
}

// ApplicationCancelledPayload captures the payload for
// effect.application_cancelled.
type ApplicationCancelledPayload struct {
	ActorID  string         `json:"actor_id"`
	Kind     condition.Kind `json:"kind"`
	Stage    int            `json:"stage,omitempty"`
	Code     string         `json:"code"`
	Blocking condition.Kind `json:"blocking,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	PromptID string         `json:"prompt_id,omitempty"`
}

// StageRequestedPayload captures the payload for effect.stage_requested.
type StageRequestedPayload struct {
	PromptID string         `json:"prompt_id"`
	ActorID  string         `json:"actor_id"`
	Kind     condition.Kind `json:"kind"`
	Min      int            `json:"min"`
	Max      int            `json:"max"`
}

// PromptCancelledPayload captures the payload for effect.prompt_cancelled.
type PromptCancelledPayload struct {
	PromptID string         `json:"prompt_id"`
	ActorID  string         `json:"actor_id"`
	Kind     condition.Kind `json:"kind"`
}

// ExpiryPromptedPayload captures the payload for effect.expiry_prompted.
type ExpiryPromptedPayload struct {
	PromptID string         `json:"prompt_id"`
	ActorID  string         `json:"actor_id"`
	EffectID string         `json:"effect_id"`
	Kind     condition.Kind `json:"kind"`
}

// EffectRemovedPayload captures the payload for effect.removed.
type EffectRemovedPayload struct {
	ActorID  string         `json:"actor_id"`
	EffectID string         `json:"effect_id"`
	Kind     condition.Kind `json:"kind"`
	Reason   string         `json:"reason"`
	PromptID string         `json:"prompt_id,omitempty"`
}

// CounterAdvancedPayload captures the payload for effect.counter_advanced.
type CounterAdvancedPayload struct {
	ActorID       string `json:"actor_id"`
	EffectID      string `json:"effect_id"`
	RoundsElapsed int    `json:"rounds_elapsed"`
}

// DamagedPayload captures the payload for actor.damaged. Amount is the
// health actually lost.
type DamagedPayload struct {
	DamageID string         `json:"damage_id"`
	ActorID  string         `json:"actor_id"`
	Amount   int            `json:"amount"`
	Source   condition.Kind `json:"source,omitempty"`
}

// DamageUndonePayload captures the payload for actor.damage_undone.
type DamageUndonePayload struct {
	DamageID string `json:"damage_id"`
	ActorID  string `json:"actor_id"`
	Amount   int    `json:"amount"`
}

// MaxReducedPayload captures the payload for actor.max_reduced.
type MaxReducedPayload struct {
	ActorID string         `json:"actor_id"`
	Source  condition.Kind `json:"source"`
	Amount  int            `json:"amount"`
}

// StaminaSpentPayload captures the payload for actor.stamina_spent. Amount
// includes Surcharge.
type StaminaSpentPayload struct {
	ActorID   string `json:"actor_id"`
	Amount    int    `json:"amount"`
	Surcharge int    `json:"surcharge,omitempty"`
}

// BloodlossAppliedPayload captures the payload for actor.bloodloss_applied.
type BloodlossAppliedPayload struct {
	ActorID string `json:"actor_id"`
	Amount  int    `json:"amount"`
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func requirePositive(name string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

func validateCreatePayload(raw json.RawMessage) error {
	_, err := decodePayload[CreatePayload](raw)
	return err
}

func validateConfigurePayload(raw json.RawMessage) error {
	payload, err := decodePayload[ConfigurePayload](raw)
	if err != nil {
		return err
	}
	if payload.SkipDefeatedPhase == nil && payload.SkipDefeatedRound == nil && payload.ConfirmFixedExpiry == nil {
		return errors.New("at least one policy field is required")
	}
	return nil
}

func validateActorRegisterPayload(raw json.RawMessage) error {
	payload, err := decodePayload[ActorRegisterPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	if !payload.Type.Valid() {
		return fmt.Errorf("actor type %q is invalid", payload.Type)
	}
	if payload.Level < 0 || payload.BaseHealth < 0 || payload.Aegis < 0 {
		return errors.New("level, base_health and aegis must not be negative")
	}
	return nil
}

func validateCombatantAddPayload(raw json.RawMessage) error {
	payload, err := decodePayload[CombatantAddPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("combatant_id", payload.CombatantID); err != nil {
		return err
	}
	if payload.FactionOverride != "" {
		if _, err := combatant.ParseFaction(payload.FactionOverride); err != nil {
			return err
		}
	}
	return nil
}

func validateCombatantRefPayload(raw json.RawMessage) error {
	payload, err := decodePayload[CombatantRefPayload](raw)
	if err != nil {
		return err
	}
	return requireField("combatant_id", payload.CombatantID)
}

func validateSetDefeatedPayload(raw json.RawMessage) error {
	payload, err := decodePayload[SetDefeatedPayload](raw)
	if err != nil {
		return err
	}
	return requireField("combatant_id", payload.CombatantID)
}

func validateSetHiddenPayload(raw json.RawMessage) error {
	payload, err := decodePayload[SetHiddenPayload](raw)
	if err != nil {
		return err
	}
	return requireField("combatant_id", payload.CombatantID)
}

func validateCombatStartPayload(raw json.RawMessage) error {
	payload, err := decodePayload[CombatStartPayload](raw)
	if err != nil {
		return err
	}
	if payload.FirstFaction != "" {
		if _, err := combatant.ParseFaction(payload.FirstFaction); err != nil {
			return err
		}
	}
	return nil
}

func validateEffectApplyPayload(raw json.RawMessage) error {
	payload, err := decodePayload[EffectApplyPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	if _, err := condition.Parse(payload.Kind); err != nil {
		return err
	}
	if payload.Stage < 0 {
		return errors.New("stage must not be negative")
	}
	return nil
}

func validateConfirmStagePayload(raw json.RawMessage) error {
	payload, err := decodePayload[ConfirmStagePayload](raw)
	if err != nil {
		return err
	}
	return requireField("prompt_id", payload.PromptID)
}

func validatePromptRefPayload(raw json.RawMessage) error {
	payload, err := decodePayload[PromptRefPayload](raw)
	if err != nil {
		return err
	}
	return requireField("prompt_id", payload.PromptID)
}

func validateResolveExpiryPayload(raw json.RawMessage) error {
	payload, err := decodePayload[ResolveExpiryPayload](raw)
	if err != nil {
		return err
	}
	return requireField("prompt_id", payload.PromptID)
}

func validateEffectRemovePayload(raw json.RawMessage) error {
	payload, err := decodePayload[EffectRemovePayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	return requireField("effect_id", payload.EffectID)
}

func validateAmountPayload(raw json.RawMessage) error {
	payload, err := decodePayload[AmountPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	return requirePositive("amount", payload.Amount)
}

func validateUndoDamagePayload(raw json.RawMessage) error {
	payload, err := decodePayload[UndoDamagePayload](raw)
	if err != nil {
		return err
	}
	return requireField("damage_id", payload.DamageID)
}

func validateActorRefPayload(raw json.RawMessage) error {
	payload, err := decodePayload[ActorRefPayload](raw)
	if err != nil {
		return err
	}
	return requireField("actor_id", payload.ActorID)
}

func validateTurnEventPayload(raw json.RawMessage) error {
	payload, err := decodePayload[TurnPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("combatant_id", payload.CombatantID); err != nil {
		return err
	}
	if payload.Faction != combatant.FactionAllied && payload.Faction != combatant.FactionEnemy {
		return fmt.Errorf("faction %q is invalid", payload.Faction)
	}
	return nil
}

func validateEffectAppliedPayload(raw json.RawMessage) error {
	payload, err := decodePayload[EffectAppliedPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	if err := requireField("effect_id", payload.EffectID); err != nil {
		return err
	}
	if !payload.Kind.Valid() {
		return fmt.Errorf("condition kind %q is invalid", payload.Kind)
	}
	return nil
}

func validateEffectRemovedPayload(raw json.RawMessage) error {
	payload, err := decodePayload[EffectRemovedPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("actor_id", payload.ActorID); err != nil {
		return err
	}
	return requireField("effect_id", payload.EffectID)
}

func validateDamagedPayload(raw json.RawMessage) error {
	payload, err := decodePayload[DamagedPayload](raw)
	if err != nil {
		return err
	}
	if err := requireField("damage_id", payload.DamageID); err != nil {
		return err
	}
	if payload.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return requireField("actor_id", payload.ActorID)
}

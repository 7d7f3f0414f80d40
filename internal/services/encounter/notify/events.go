package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/i18n/catalog"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

// Formatter renders notification messages from the notifications catalog.
type Formatter struct {
	Bundle *catalog.Bundle
	Locale string
}

// NewFormatter returns a formatter over the embedded catalog.
func NewFormatter(locale string) Formatter {
	if strings.TrimSpace(locale) == "" {
		locale = catalog.BaseLocale
	}
	return Formatter{Bundle: catalog.Default(), Locale: locale}
}

func (f Formatter) sprintf(key string, args ...any) string {
	bundle := f.Bundle
	if bundle == nil {
		bundle = catalog.Default()
	}
	return bundle.Sprintf(f.Locale, key, args...)
}

// FromEvents maps committed events to notifications. state is the encounter
// after the events were folded; it supplies display names.
func (f Formatter) FromEvents(state encounter.State, events []event.Event) ([]Notification, error) {
	var out []Notification
	for _, evt := range events {
		mapped, err := f.fromEvent(state, evt)
		if err != nil {
			return out, fmt.Errorf("notify %s seq %d: %w", evt.Type, evt.Seq, err)
		}
		out = append(out, mapped...)
	}
	return out, nil
}

func (f Formatter) fromEvent(state encounter.State, evt event.Event) ([]Notification, error) {
	base := Notification{EncounterID: evt.EncounterID, Seq: evt.Seq}

	switch evt.Type {
	case encounter.EventTypeCombatStarted:
		var payload encounter.CombatStartedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindStartOfCombat
		n.Faction = payload.FirstFaction
		n.Round = 1
		n.Message = f.sprintf("notify.start_of_combat", factionLabel(payload.FirstFaction))
		return []Notification{n}, nil

	case encounter.EventTypeTurnStarted:
		var payload encounter.TurnPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		name := combatantName(state, payload.CombatantID)
		start := base
		start.Kind = KindStartOfTurn
		start.CombatantID = payload.CombatantID
		start.Faction = payload.Faction
		start.Round = payload.Round
		start.Message = f.sprintf("notify.start_of_turn", name)
		if c, ok := state.Combatant(payload.CombatantID); ok {
			start.ActorID = c.ActorID
			if a, ok := state.Actor(c.ActorID); ok {
				start.Conditions = a.ActiveKinds()
			}
		}
		if len(start.Conditions) > 0 {
			start.Summary = f.sprintf("notify.conditions_summary", name, conditionList(start.Conditions))
		}
		changed := base
		changed.Kind = KindTurnChanged
		changed.CombatantID = payload.CombatantID
		changed.Faction = payload.Faction
		changed.Round = payload.Round
		changed.Message = f.sprintf("notify.turn_changed", name)
		return []Notification{start, changed}, nil

	case encounter.EventTypeTurnEnded:
		var payload encounter.TurnPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEndOfTurn
		n.CombatantID = payload.CombatantID
		n.Faction = payload.Faction
		n.Round = payload.Round
		n.Message = f.sprintf("notify.end_of_turn", combatantName(state, payload.CombatantID))
		return []Notification{n}, nil

	case encounter.EventTypePhaseSwitched:
		var payload encounter.PhaseSwitchedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindTurnChanged
		n.Faction = payload.To
		n.Round = payload.Round
		n.Message = f.sprintf("notify.phase_changed", factionLabel(payload.To))
		return []Notification{n}, nil

	case encounter.EventTypeRoundAdvanced:
		var payload encounter.RoundAdvancedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		ended := base
		ended.Kind = KindEndOfRound
		ended.Round = payload.EndedRound
		ended.Message = f.sprintf("notify.end_of_round", payload.EndedRound)
		advanced := base
		advanced.Kind = KindRoundAdvanced
		advanced.Round = payload.Round
		advanced.Message = f.sprintf("notify.round_advanced", payload.Round)
		return []Notification{ended, advanced}, nil

	case encounter.EventTypeCombatEnded:
		var payload encounter.CombatEndedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEndOfCombat
		n.Round = payload.Round
		n.Message = f.sprintf("notify.end_of_combat")
		return []Notification{n}, nil

	case encounter.EventTypeEffectApplied:
		var payload encounter.EffectAppliedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEffectApplied
		n.ActorID = payload.ActorID
		n.EffectID = payload.EffectID
		n.Condition = payload.Kind
		n.PromptID = payload.PromptID
		n.Message = f.sprintf("notify.effect_applied", actorName(state, payload.ActorID), payload.Kind.Label())
		return []Notification{n}, nil

	case encounter.EventTypeEffectRemoved:
		var payload encounter.EffectRemovedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEffectRemoved
		n.ActorID = payload.ActorID
		n.EffectID = payload.EffectID
		n.Condition = payload.Kind
		n.PromptID = payload.PromptID
		n.Metadata = map[string]string{"reason": payload.Reason}
		n.Message = f.sprintf("notify.effect_removed", actorName(state, payload.ActorID), payload.Kind.Label())
		return []Notification{n}, nil

	case encounter.EventTypeApplicationCancelled:
		var payload encounter.ApplicationCancelledPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEffectCancelled
		n.ActorID = payload.ActorID
		n.Condition = payload.Kind
		n.PromptID = payload.PromptID
		n.Code = payload.Code
		n.Metadata = map[string]string{"reason": payload.Reason}
		if payload.Blocking != "" {
			n.Metadata["blocking"] = string(payload.Blocking)
		}
		n.Message = f.sprintf("notify.effect_cancelled", actorName(state, payload.ActorID), payload.Kind.Label())
		return []Notification{n}, nil

	case encounter.EventTypeStageRequested:
		var payload encounter.StageRequestedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEffectStagePrompt
		n.ActorID = payload.ActorID
		n.Condition = payload.Kind
		n.PromptID = payload.PromptID
		n.Min = payload.Min
		n.Max = payload.Max
		n.Message = f.sprintf("notify.stage_prompt", payload.Kind.Label(), actorName(state, payload.ActorID))
		return []Notification{n}, nil

	case encounter.EventTypeExpiryPrompted:
		var payload encounter.ExpiryPromptedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindEffectExpiryPrompt
		n.ActorID = payload.ActorID
		n.EffectID = payload.EffectID
		n.Condition = payload.Kind
		n.PromptID = payload.PromptID
		n.Message = f.sprintf("notify.expiry_prompt", payload.Kind.Label())
		return []Notification{n}, nil

	case encounter.EventTypeDamaged:
		var payload encounter.DamagedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return nil, err
		}
		n := base
		n.Kind = KindDamageApplied
		n.ActorID = payload.ActorID
		n.Amount = payload.Amount
		n.Condition = payload.Source
		n.Metadata = map[string]string{"damage_id": payload.DamageID}
		name := actorName(state, payload.ActorID)
		if payload.Source != "" {
			n.Message = f.sprintf("notify.damage_applied", name, payload.Amount, payload.Source.Label())
		} else {
			n.Message = f.sprintf("notify.damage_taken", name, payload.Amount)
		}
		return []Notification{n}, nil
	}
	return nil, nil
}

func combatantName(state encounter.State, combatantID string) string {
	if c, ok := state.Combatant(combatantID); ok && c.Name != "" {
		return c.Name
	}
	return combatantID
}

func actorName(state encounter.State, actorID string) string {
	if a, ok := state.Actor(actorID); ok && a.Name != "" {
		return a.Name
	}
	return actorID
}

func factionLabel(faction combatant.Faction) string {
	return strings.ToLower(string(faction))
}

func conditionList(kinds []condition.Kind) string {
	labels := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		labels = append(labels, kind.Label())
	}
	return strings.Join(labels, ", ")
}

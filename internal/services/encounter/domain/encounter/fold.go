package encounter

import (
	"encoding/json"
	"fmt"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/effects"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

// Folder applies encounter events to State. Actor maxima are recomputed with
// Effects after every actor change.
type Folder struct {
	Effects *effects.Registry
}

// NewFolder returns a Folder over the built-in conditions.
func NewFolder() Folder {
	return Folder{Effects: effects.Default()}
}

// Apply implements replay.Folder and engine.Applier.
func (f Folder) Apply(state any, evt event.Event) (any, error) {
	var current State
	switch typed := state.(type) {
	case nil:
		current = NewState(evt.EncounterID)
	case State:
		current = typed
	case *State:
		if typed == nil {
			current = NewState(evt.EncounterID)
		} else {
			current = *typed
		}
	default:
		return nil, fmt.Errorf("unsupported encounter state type %T", state)
	}
	return f.Fold(current, evt)
}

// Fold applies one event. It returns an error if a recognized event carries
// a payload that cannot be unmarshalled. The input state is not modified.
func (f Folder) Fold(state State, evt event.Event) (State, error) {
	state = state.Clone()
	if state.EncounterID == "" {
		state.EncounterID = evt.EncounterID
	}
	if err := f.fold(&state, evt); err != nil {
		return state, fmt.Errorf("encounter fold %s: %w", evt.Type, err)
	}
	return state, nil
}

func (f Folder) fold(state *State, evt event.Event) error {
	switch evt.Type {
	case EventTypeCreated:
		var payload CreatedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		state.Created = true
		state.Name = payload.Name
		state.Policy = payload.Policy
	case EventTypeConfigured:
		var payload ConfiguredPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		state.Policy = payload.Policy
	case EventTypeActorRegistered:
		var payload ActorRegisteredPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.putActor(state, payload.Actor)
	case EventTypeCombatantAdded:
		var payload CombatantAddedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		if state.Combatants == nil {
			state.Combatants = make(map[string]combatant.State)
		}
		state.Combatants[payload.Combatant.ID] = payload.Combatant
	case EventTypeCombatantRemoved:
		var payload CombatantRefPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Combatants, payload.CombatantID)
		state.StartedTurnIDs = removeID(state.StartedTurnIDs, payload.CombatantID)
		if state.ActiveCombatantID == payload.CombatantID {
			state.ActiveCombatantID = ""
		}
	case EventTypeDefeatedSet:
		var payload SetDefeatedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateCombatant(state, payload.CombatantID, func(c *combatant.State) { c.Defeated = payload.Defeated })
	case EventTypeHiddenSet:
		var payload SetHiddenPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateCombatant(state, payload.CombatantID, func(c *combatant.State) { c.Hidden = payload.Hidden })
	case EventTypeMarkerSet:
		var payload MarkerSetPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateCombatant(state, payload.CombatantID, func(c *combatant.State) {
			if c.Markers == nil {
				c.Markers = make(map[combatant.Marker]bool)
			}
			c.Markers[payload.Marker] = true
		})
	case EventTypeCombatStarted:
		var payload CombatStartedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		state.Started = true
		state.Ended = false
		state.Round = 1
		state.FirstFactionTurn = payload.FirstFaction
		state.CurrentFactionTurn = payload.FirstFaction
		state.ActiveCombatantID = ""
		state.TurnsTakenByRound = map[int][]string{1: {}}
		state.StartedTurnIDs = nil
		state.RecentlyActiveIDs = nil
		for id, c := range state.Combatants {
			c.Markers = nil
			state.Combatants[id] = c
		}
	case EventTypeCombatEnded:
		state.Started = false
		state.Ended = true
		state.ActiveCombatantID = ""
		state.CurrentFactionTurn = combatant.FactionNone
		state.StartedTurnIDs = nil
		for id, a := range state.Actors {
			a.BloodlossReduction = 0
			state.Actors[id] = f.Effects.Recompute(a)
		}
	case EventTypeTurnStarted:
		var payload TurnPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		// Markers last for the combatant's turn, so a start that resumes an
		// open turn keeps them.
		if !containsID(state.StartedTurnIDs, payload.CombatantID) {
			f.updateCombatant(state, payload.CombatantID, func(c *combatant.State) { c.Markers = nil })
		}
		state.ActiveCombatantID = payload.CombatantID
		state.StartedTurnIDs = appendUnique(state.StartedTurnIDs, payload.CombatantID)
		recent := append(removeID(state.RecentlyActiveIDs, payload.CombatantID), payload.CombatantID)
		if len(recent) > recentlyActiveLimit {
			recent = recent[len(recent)-recentlyActiveLimit:]
		}
		state.RecentlyActiveIDs = recent
	case EventTypeTurnEnded:
		var payload TurnPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		if state.TurnsTakenByRound == nil {
			state.TurnsTakenByRound = make(map[int][]string)
		}
		state.TurnsTakenByRound[payload.Round] = appendUnique(state.TurnsTakenByRound[payload.Round], payload.CombatantID)
		if state.ActiveCombatantID == payload.CombatantID {
			state.ActiveCombatantID = ""
		}
		state.StartedTurnIDs = removeID(state.StartedTurnIDs, payload.CombatantID)
	case EventTypePhaseSwitched:
		var payload PhaseSwitchedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		state.CurrentFactionTurn = payload.To
		state.ActiveCombatantID = ""
	case EventTypeRoundAdvanced:
		var payload RoundAdvancedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		if state.TurnsTakenByRound == nil {
			state.TurnsTakenByRound = make(map[int][]string)
		}
		state.TurnsTakenByRound[payload.Round] = []string{}
		state.StartedTurnIDs = nil
		state.RecentlyActiveIDs = nil
		state.ActiveCombatantID = ""
		state.CurrentFactionTurn = state.FirstFactionTurn
		state.Round = payload.Round
		for id, c := range state.Combatants {
			c.Markers = nil
			state.Combatants[id] = c
		}
	case EventTypeEffectApplied:
		var payload EffectAppliedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Prompts, payload.PromptID)
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			return a.WithEffect(actor.Effect{
				ID:         payload.EffectID,
				Kind:       payload.Kind,
				Stage:      payload.Stage,
				StartRound: payload.StartRound,
				Inert:      payload.Inert,
			})
		})
	case EventTypeApplicationCancelled:
		var payload ApplicationCancelledPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Prompts, payload.PromptID)
	case EventTypeStageRequested:
		var payload StageRequestedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		putPrompt(state, Prompt{
			ID:        payload.PromptID,
			Kind:      PromptStage,
			ActorID:   payload.ActorID,
			Condition: payload.Kind,
			Min:       payload.Min,
			Max:       payload.Max,
		})
	case EventTypeExpiryPrompted:
		var payload ExpiryPromptedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		putPrompt(state, Prompt{
			ID:        payload.PromptID,
			Kind:      PromptExpiry,
			ActorID:   payload.ActorID,
			Condition: payload.Kind,
			EffectID:  payload.EffectID,
		})
	case EventTypePromptCancelled:
		var payload PromptCancelledPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Prompts, payload.PromptID)
	case EventTypeEffectRemoved:
		var payload EffectRemovedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Prompts, payload.PromptID)
		for id, prompt := range state.Prompts {
			if prompt.EffectID == payload.EffectID {
				delete(state.Prompts, id)
			}
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			return a.WithoutEffect(payload.EffectID)
		})
	case EventTypeCounterAdvanced:
		var payload CounterAdvancedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			effect, ok := a.Effect(payload.EffectID)
			if !ok {
				return a
			}
			effect.RoundsElapsed = payload.RoundsElapsed
			return a.WithEffect(effect)
		})
	case EventTypeDamaged:
		var payload DamagedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		if state.Damage == nil {
			state.Damage = make(map[string]DamageRecord)
		}
		state.Damage[payload.DamageID] = DamageRecord{ID: payload.DamageID, ActorID: payload.ActorID, Amount: payload.Amount}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a.Health.Value -= payload.Amount
			return a
		})
	case EventTypeDamageUndone:
		var payload DamageUndonePayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		delete(state.Damage, payload.DamageID)
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a.Health.Value += payload.Amount
			return a
		})
	case EventTypeMaxReduced:
		var payload MaxReducedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a.BurningReduction += payload.Amount
			return a
		})
	case EventTypeStaminaSpent:
		var payload StaminaSpentPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a.Stamina.Value -= payload.Amount
			return a
		})
	case EventTypeBloodlossApplied:
		var payload BloodlossAppliedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a.BloodlossReduction += payload.Amount
			return a
		})
	case EventTypeRested:
		var payload ActorRefPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		f.updateActor(state, payload.ActorID, func(a actor.State) actor.State {
			a = f.Effects.Recompute(a)
			a.Stamina.Value = a.Stamina.Max
			a.Mana.Value = a.Mana.Max
			return a
		})
	}
	return nil
}

func (f Folder) putActor(state *State, a actor.State) {
	if state.Actors == nil {
		state.Actors = make(map[string]actor.State)
	}
	state.Actors[a.ID] = f.Effects.Recompute(a)
}

// updateActor applies change and recomputes maxima. Unknown ids are ignored.
func (f Folder) updateActor(state *State, id string, change func(actor.State) actor.State) {
	a, ok := state.Actors[id]
	if !ok {
		return
	}
	state.Actors[id] = f.Effects.Recompute(change(a))
}

func (f Folder) updateCombatant(state *State, id string, change func(*combatant.State)) {
	c, ok := state.Combatants[id]
	if !ok {
		return
	}
	change(&c)
	state.Combatants[id] = c
}

func putPrompt(state *State, prompt Prompt) {
	if state.Prompts == nil {
		state.Prompts = make(map[string]Prompt)
	}
	state.Prompts[prompt.ID] = prompt
}

// Package actor models the externally owned character sheet the condition
// hooks read and write: resources, derived maxima and attached effects.
package actor

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// Type classifies the actor document.
type Type string

const (
	// TypeCharacter is a player character.
	TypeCharacter Type = "character"
	// TypeNPC is a friendly or neutral non-player character.
	TypeNPC Type = "npc"
	// TypeMonster is an adversary.
	TypeMonster Type = "monster"
)

// Valid reports whether t is a known actor type.
func (t Type) Valid() bool {
	switch t {
	case TypeCharacter, TypeNPC, TypeMonster:
		return true
	}
	return false
}

// Resource is a current value bounded by a derived maximum.
type Resource struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Effect is one status condition attached to an actor.
type Effect struct {
	ID            string         `json:"id"`
	Kind          condition.Kind `json:"kind"`
	Stage         int            `json:"stage,omitempty"`
	RoundsElapsed int            `json:"rounds_elapsed"`
	StartRound    int            `json:"start_round"`
	Inert         bool           `json:"inert,omitempty"`
}

// State is the actor record folded from encounter events.
type State struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Type               Type     `json:"type"`
	OwnerID            string   `json:"owner_id,omitempty"`
	Level              int      `json:"level"`
	BaseHealth         int      `json:"base_health"`
	HealthMod          int      `json:"health_mod,omitempty"`
	StaminaMod         int      `json:"stamina_mod,omitempty"`
	ManaMod            int      `json:"mana_mod,omitempty"`
	Aegis              int      `json:"aegis,omitempty"`
	Health             Resource `json:"health"`
	Stamina            Resource `json:"stamina"`
	Mana               Resource `json:"mana"`
	BurningReduction   int      `json:"burning_reduction,omitempty"`
	BloodlossReduction int      `json:"bloodloss_reduction,omitempty"`
	Effects            []Effect `json:"effects,omitempty"`
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	if s.Effects != nil {
		s.Effects = append(make([]Effect, 0, len(s.Effects)), s.Effects...)
	}
	return s
}

// HasEffect reports whether an effect of kind is attached.
func (s State) HasEffect(kind condition.Kind) bool {
	for _, effect := range s.Effects {
		if effect.Kind == kind {
			return true
		}
	}
	return false
}

// EffectsOf returns the attached effects of kind in attachment order.
func (s State) EffectsOf(kind condition.Kind) []Effect {
	var out []Effect
	for _, effect := range s.Effects {
		if effect.Kind == kind {
			out = append(out, effect)
		}
	}
	return out
}

// Effect returns the attached effect with id.
func (s State) Effect(id string) (Effect, bool) {
	for _, effect := range s.Effects {
		if effect.ID == id {
			return effect, true
		}
	}
	return Effect{}, false
}

// HighestStage returns the highest stage among attached effects of kind.
func (s State) HighestStage(kind condition.Kind) int {
	highest := 0
	for _, effect := range s.Effects {
		if effect.Kind == kind && effect.Stage > highest {
			highest = effect.Stage
		}
	}
	return highest
}

// ActiveKinds lists the distinct kinds attached, in attachment order.
func (s State) ActiveKinds() []condition.Kind {
	seen := make(map[condition.Kind]bool, len(s.Effects))
	var out []condition.Kind
	for _, effect := range s.Effects {
		if seen[effect.Kind] {
			continue
		}
		seen[effect.Kind] = true
		out = append(out, effect.Kind)
	}
	return out
}

// WithoutEffect returns s with the effect id detached.
func (s State) WithoutEffect(id string) State {
	kept := make([]Effect, 0, len(s.Effects))
	for _, effect := range s.Effects {
		if effect.ID != id {
			kept = append(kept, effect)
		}
	}
	s.Effects = kept
	return s
}

// WithEffect returns s with effect attached, replacing any effect with the
// same id in place.
func (s State) WithEffect(effect Effect) State {
	effects := append([]Effect(nil), s.Effects...)
	for i := range effects {
		if effects[i].ID == effect.ID {
			effects[i] = effect
			s.Effects = effects
			return s
		}
	}
	s.Effects = append(effects, effect)
	return s
}

// Package effects is the status effect registry and lifecycle dispatcher.
//
// Every condition kind registers one Definition: an apply step, optional
// turnStart/turnEnd/roundEnd hooks, a stage range, an expiry policy, roll and
// maximum modifiers, and its exclusions. Hooks never mutate state. They
// return Changes that the encounter decider turns into events.
package effects

import (
	"errors"
	"fmt"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// Trigger names a lifecycle point.
type Trigger string

const (
	// TriggerTurnStart fires for the acting combatant when its turn starts.
	TriggerTurnStart Trigger = "turnStart"
	// TriggerTurnEnd fires for the acting combatant when its turn ends.
	TriggerTurnEnd Trigger = "turnEnd"
	// TriggerRoundEnd fires for every combatant when a round ends.
	TriggerRoundEnd Trigger = "roundEnd"
)

// Target is the read-only view a hook runs against.
type Target struct {
	Actor              actor.State
	Markers            map[combatant.Marker]bool
	Round              int
	ConfirmFixedExpiry bool
}

// HookContext is passed to a hook for one attached effect.
type HookContext struct {
	Target
	Effect actor.Effect
}

// Hook is one lifecycle callback. A non-empty Guard makes it fire at most
// once per turn for the combatant.
type Hook struct {
	Guard combatant.Marker
	Run   func(HookContext) []Change
}

// StageRange bounds the stage of a stage-scaled kind. The zero value means
// the kind is not stage-scaled.
type StageRange struct {
	Min int
	Max int
}

// Scaled reports whether the kind requires a stage.
func (r StageRange) Scaled() bool { return r.Max > 0 }

// Contains reports whether stage is inside the range.
func (r StageRange) Contains(stage int) bool {
	return stage >= r.Min && stage <= r.Max
}

// ExpiryKind is the expiry policy family.
type ExpiryKind string

const (
	// ExpiryUntilRemoved effects stay until something removes them.
	ExpiryUntilRemoved ExpiryKind = "until_removed"
	// ExpiryFixed effects last exactly Rounds rounds.
	ExpiryFixed ExpiryKind = "fixed"
	// ExpiryCounted effects count roundEnds and remove themselves at Rounds.
	ExpiryCounted ExpiryKind = "counted"
	// ExpiryEscalation effects convert into another condition at Rounds.
	ExpiryEscalation ExpiryKind = "escalation"
	// ExpiryManual effects are only removed by an explicit action.
	ExpiryManual ExpiryKind = "manual"
)

// Expiry is an expiry policy.
type Expiry struct {
	Kind   ExpiryKind
	Rounds int
}

// Definition is the registration for one condition kind.
type Definition struct {
	Kind      condition.Kind
	Apply     func(ApplyContext) ApplyResult
	TurnStart *Hook
	TurnEnd   *Hook
	RoundEnd  *Hook
	Stages    StageRange
	Expiry    Expiry
	Modifiers func(effect actor.Effect, a actor.State) Modifiers
	Excludes  []Exclusion

	// RemovedByRest marks kinds cleared by actor.rest.
	RemovedByRest bool
	// ConsumedByStaminaSpend marks kinds removed after a successful spend.
	ConsumedByStaminaSpend bool
}

func (d Definition) hook(trigger Trigger) *Hook {
	switch trigger {
	case TriggerTurnStart:
		return d.TurnStart
	case TriggerTurnEnd:
		return d.TurnEnd
	case TriggerRoundEnd:
		return d.RoundEnd
	}
	return nil
}

// Registry maps each kind to its definition, in registration order.
type Registry struct {
	definitions map[condition.Kind]Definition
	order       []condition.Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[condition.Kind]Definition)}
}

// Register adds a definition. Fixed and counted expiry policies get a
// generated roundEnd hook when none is supplied.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	if !def.Kind.Valid() {
		return fmt.Errorf("unknown condition kind %q", def.Kind)
	}
	if _, exists := r.definitions[def.Kind]; exists {
		return fmt.Errorf("condition already registered: %s", def.Kind)
	}
	if def.Stages.Scaled() && def.Stages.Min < 1 {
		return fmt.Errorf("%s: stage range must start at 1 or above", def.Kind)
	}
	if def.Expiry.Kind == "" {
		def.Expiry.Kind = ExpiryUntilRemoved
	}
	switch def.Expiry.Kind {
	case ExpiryFixed, ExpiryCounted, ExpiryEscalation:
		if def.Expiry.Rounds <= 0 {
			return fmt.Errorf("%s: %s expiry needs a positive round count", def.Kind, def.Expiry.Kind)
		}
	}
	if def.RoundEnd == nil && (def.Expiry.Kind == ExpiryFixed || def.Expiry.Kind == ExpiryCounted) {
		def.RoundEnd = roundCounter(def.Expiry)
	}
	r.definitions[def.Kind] = def
	r.order = append(r.order, def.Kind)
	return nil
}

// Definition returns the definition for kind.
func (r *Registry) Definition(kind condition.Kind) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[kind]
	return def, ok
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []condition.Kind {
	if r == nil {
		return nil
	}
	return append([]condition.Kind(nil), r.order...)
}

// Default returns a registry holding every built-in condition.
func Default() *Registry {
	registry := NewRegistry()
	for _, def := range builtinDefinitions() {
		if err := registry.Register(def); err != nil {
			panic(fmt.Sprintf("register %s: %v", def.Kind, err))
		}
	}
	return registry
}

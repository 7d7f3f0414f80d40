package effects

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// ExclusionAction is what happens when an incoming kind meets an existing one.
type ExclusionAction string

const (
	// CancelIncoming refuses the incoming application.
	CancelIncoming ExclusionAction = "cancel_incoming"
	// EvictExisting removes the existing effects and attaches the incoming one.
	EvictExisting ExclusionAction = "evict_existing"
)

// Exclusion is one row of the pairwise exclusion table.
type Exclusion struct {
	Existing condition.Kind
	Action   ExclusionAction
}

// ApplyContext describes an application about to happen.
type ApplyContext struct {
	Actor actor.State
	Kind  condition.Kind
	Stage int
}

// ApplyOutcome is the verdict of an application check.
type ApplyOutcome string

const (
	// OutcomeAttach attaches the incoming effect.
	OutcomeAttach ApplyOutcome = "attach"
	// OutcomeCancel refuses the incoming effect.
	OutcomeCancel ApplyOutcome = "cancel"
)

// ApplyResult is the resolved application.
type ApplyResult struct {
	Outcome  ApplyOutcome
	Blocking condition.Kind
	Reason   string
	Evict    []actor.Effect
	Inert    bool
}

// Cancelled reports whether the application was refused.
func (r ApplyResult) Cancelled() bool { return r.Outcome == OutcomeCancel }

// Resolve checks an application of kind against the actor's current effects.
// Cancelling rows win over evicting rows, so a refused application never
// removes anything.
func (r *Registry) Resolve(ctx ApplyContext) ApplyResult {
	def, ok := r.Definition(ctx.Kind)
	if !ok {
		return ApplyResult{Outcome: OutcomeCancel, Reason: "unregistered"}
	}
	for _, row := range def.Excludes {
		if row.Action == CancelIncoming && ctx.Actor.HasEffect(row.Existing) {
			return ApplyResult{Outcome: OutcomeCancel, Blocking: row.Existing, Reason: "exclusion"}
		}
	}
	result := ApplyResult{Outcome: OutcomeAttach}
	if def.Apply != nil {
		custom := def.Apply(ctx)
		if custom.Cancelled() {
			return custom
		}
		result.Inert = custom.Inert
	}
	for _, row := range def.Excludes {
		if row.Action == EvictExisting {
			result.Evict = append(result.Evict, ctx.Actor.EffectsOf(row.Existing)...)
		}
	}
	return result
}

func cancelWhenAegis(ctx ApplyContext) ApplyResult {
	if ctx.Actor.Aegis > 0 {
		return ApplyResult{Outcome: OutcomeCancel, Reason: "aegis"}
	}
	return ApplyResult{Outcome: OutcomeAttach}
}

func inertOnMonster(ctx ApplyContext) ApplyResult {
	return ApplyResult{Outcome: OutcomeAttach, Inert: ctx.Actor.Type == actor.TypeMonster}
}

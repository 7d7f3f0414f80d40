package effects

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// ChangeType identifies what a Change does.
type ChangeType string

const (
	// ChangeDamage lowers health by Amount.
	ChangeDamage ChangeType = "damage"
	// ChangeMaxReduction raises the burning health reduction by Amount.
	ChangeMaxReduction ChangeType = "max_reduction"
	// ChangeSetMarker sets a once-per-turn marker on the combatant.
	ChangeSetMarker ChangeType = "set_marker"
	// ChangeAdvanceCounter stores a new rounds-elapsed counter on an effect.
	ChangeAdvanceCounter ChangeType = "advance_counter"
	// ChangeRemoveEffect detaches an effect.
	ChangeRemoveEffect ChangeType = "remove_effect"
	// ChangeAddEffect attaches a new effect of Kind.
	ChangeAddEffect ChangeType = "add_effect"
	// ChangePromptExpiry asks for confirmation before removing an effect.
	ChangePromptExpiry ChangeType = "prompt_expiry"
)

// Change is one state mutation requested by a hook.
type Change struct {
	Type          ChangeType
	ActorID       string
	EffectID      string
	Kind          condition.Kind
	Source        condition.Kind
	Amount        int
	Marker        combatant.Marker
	RoundsElapsed int
	Reason        string
}

// Suppression records a hook skipped because its once-per-turn marker was
// already set when the trigger arrived.
type Suppression struct {
	ActorID string
	Kind    condition.Kind
	Trigger Trigger
	Marker  combatant.Marker
}

// Outcome is the result of one dispatch.
type Outcome struct {
	Changes    []Change
	Suppressed []Suppression
}

// Dispatch runs the hooks registered for trigger against every effect
// attached to target's actor. Kinds run in registration order; effects of
// one kind run in attachment order.
//
// A guarded hook runs at most once per dispatch. If its marker was already
// set before the dispatch, the hook is skipped and reported as suppressed.
func (r *Registry) Dispatch(trigger Trigger, target Target) Outcome {
	var out Outcome
	if r == nil {
		return out
	}
	fired := map[combatant.Marker]bool{}
	for _, kind := range r.order {
		def := r.definitions[kind]
		hook := def.hook(trigger)
		if hook == nil || hook.Run == nil {
			continue
		}
		for _, effect := range target.Actor.EffectsOf(kind) {
			if effect.Inert {
				continue
			}
			if hook.Guard != "" {
				if fired[hook.Guard] {
					continue
				}
				if target.Markers[hook.Guard] {
					fired[hook.Guard] = true
					out.Suppressed = append(out.Suppressed, Suppression{
						ActorID: target.Actor.ID,
						Kind:    kind,
						Trigger: trigger,
						Marker:  hook.Guard,
					})
					continue
				}
			}
			changes := hook.Run(HookContext{Target: target, Effect: effect})
			if len(changes) == 0 {
				continue
			}
			for i := range changes {
				if changes[i].ActorID == "" {
					changes[i].ActorID = target.Actor.ID
				}
			}
			out.Changes = append(out.Changes, changes...)
			if hook.Guard != "" {
				fired[hook.Guard] = true
				out.Changes = append(out.Changes, Change{
					Type:    ChangeSetMarker,
					ActorID: target.Actor.ID,
					Kind:    kind,
					Marker:  hook.Guard,
				})
			}
		}
	}
	return out
}

// roundCounter builds the roundEnd hook for fixed and counted expiry.
func roundCounter(expiry Expiry) *Hook {
	return &Hook{Run: func(ctx HookContext) []Change {
		elapsed := ctx.Effect.RoundsElapsed + 1
		advance := Change{
			Type:          ChangeAdvanceCounter,
			EffectID:      ctx.Effect.ID,
			Kind:          ctx.Effect.Kind,
			RoundsElapsed: elapsed,
		}
		if elapsed < expiry.Rounds {
			return []Change{advance}
		}
		if expiry.Kind == ExpiryFixed && ctx.ConfirmFixedExpiry {
			return []Change{advance, {
				Type:     ChangePromptExpiry,
				EffectID: ctx.Effect.ID,
				Kind:     ctx.Effect.Kind,
			}}
		}
		return []Change{{
			Type:     ChangeRemoveEffect,
			EffectID: ctx.Effect.ID,
			Kind:     ctx.Effect.Kind,
			Reason:   "expired",
		}}
	}}
}

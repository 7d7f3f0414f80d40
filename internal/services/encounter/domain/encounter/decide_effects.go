package encounter

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/effects"
)

func decideEffectApply(b *builder) {
	payload, ok := decode[EffectApplyPayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok {
		return
	}
	kind, err := condition.Parse(payload.Kind)
	if err != nil {
		b.reject(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"reason": err.Error()})
		return
	}
	def, ok := b.decider.Effects.Definition(kind)
	if !ok {
		b.reject(apperrors.CodeInvalidArgument, "condition not registered", map[string]string{"reason": string(kind)})
		return
	}
	stage := 0
	if def.Stages.Scaled() {
		if payload.Stage == 0 {
			promptID, ok := b.newID()
			if !ok {
				return
			}
			b.emit(EventTypeStageRequested, EntityActor, a.ID, StageRequestedPayload{
				PromptID: promptID,
				ActorID:  a.ID,
				Kind:     kind,
				Min:      def.Stages.Min,
				Max:      def.Stages.Max,
			})
			return
		}
		if !def.Stages.Contains(payload.Stage) {
			b.rejectStage(kind, payload.Stage)
			return
		}
		stage = payload.Stage
	}
	b.attach(a.ID, kind, stage, "", "")
}

func decideConfirmStage(b *builder) {
	payload, ok := decode[ConfirmStagePayload](b)
	if !ok {
		return
	}
	prompt, ok := b.lookupPrompt(payload.PromptID, PromptStage)
	if !ok {
		return
	}
	if payload.Stage < prompt.Min || payload.Stage > prompt.Max {
		b.rejectStage(prompt.Condition, payload.Stage)
		return
	}
	if _, ok := b.lookupActor(prompt.ActorID); !ok {
		return
	}
	b.attach(prompt.ActorID, prompt.Condition, payload.Stage, prompt.ID, "")
}

func decideCancelPrompt(b *builder) {
	payload, ok := decode[PromptRefPayload](b)
	if !ok {
		return
	}
	prompt, ok := b.lookupPrompt(payload.PromptID, "")
	if !ok {
		return
	}
	b.emit(EventTypePromptCancelled, EntityPrompt, prompt.ID, PromptCancelledPayload{
		PromptID: prompt.ID,
		ActorID:  prompt.ActorID,
		Kind:     prompt.Condition,
	})
}

func decideEffectRemove(b *builder) {
	payload, ok := decode[EffectRemovePayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok {
		return
	}
	effect, ok := a.Effect(strings.TrimSpace(payload.EffectID))
	if !ok {
		b.reject(apperrors.CodeEffectNotFound, "effect not found", map[string]string{"actor": a.Name})
		return
	}
	b.removeEffect(a.ID, effect.ID, effect.Kind, ReasonManual, "")
}

// decideResolveExpiry answers an expiry prompt: remove the effect, or keep
// it and close the prompt.
func decideResolveExpiry(b *builder) {
	payload, ok := decode[ResolveExpiryPayload](b)
	if !ok {
		return
	}
	prompt, ok := b.lookupPrompt(payload.PromptID, PromptExpiry)
	if !ok {
		return
	}
	a, attached := b.state.Actor(prompt.ActorID)
	if attached {
		_, attached = a.Effect(prompt.EffectID)
	}
	if payload.Remove && attached {
		b.removeEffect(prompt.ActorID, prompt.EffectID, prompt.Condition, ReasonExpired, prompt.ID)
		return
	}
	b.emit(EventTypePromptCancelled, EntityPrompt, prompt.ID, PromptCancelledPayload{
		PromptID: prompt.ID,
		ActorID:  prompt.ActorID,
		Kind:     prompt.Condition,
	})
}

func (b *builder) lookupPrompt(promptID string, kind PromptKind) (Prompt, bool) {
	prompt, ok := b.state.Prompts[strings.TrimSpace(promptID)]
	if !ok || (kind != "" && prompt.Kind != kind) {
		b.reject(apperrors.CodePromptNotFound, "prompt not found", nil)
		return Prompt{}, false
	}
	return prompt, true
}

func (b *builder) rejectStage(kind condition.Kind, stage int) {
	b.reject(apperrors.CodeStageOutOfRange, fmt.Sprintf("stage %d out of range for %s", stage, kind), map[string]string{
		"kind":  kind.Label(),
		"stage": strconv.Itoa(stage),
	})
}

// attach resolves the exclusion table, then either records the cancelled
// application or evicts what the incoming kind replaces and attaches it.
func (b *builder) attach(actorID string, kind condition.Kind, stage int, promptID string, source condition.Kind) {
	a, ok := b.state.Actor(actorID)
	if !ok {
		return
	}
	result := b.decider.Effects.Resolve(effects.ApplyContext{Actor: a, Kind: kind, Stage: stage})
	if result.Cancelled() {
		b.emit(EventTypeApplicationCancelled, EntityActor, actorID, ApplicationCancelledPayload{
			ActorID:  actorID,
			Kind:     kind,
			Stage:    stage,
			Code:     string(apperrors.CodeMutualExclusionConflict),
			Blocking: result.Blocking,
			Reason:   result.Reason,
			PromptID: promptID,
		})
		return
	}
	for _, evicted := range result.Evict {
		b.removeEffect(actorID, evicted.ID, evicted.Kind, ReasonEvicted, "")
	}
	effectID, ok := b.newID()
	if !ok {
		return
	}
	b.emit(EventTypeEffectApplied, EntityActor, actorID, EffectAppliedPayload{
		ActorID:    actorID,
		EffectID:   effectID,
		Kind:       kind,
		Stage:      stage,
		Inert:      result.Inert,
		StartRound: b.state.Round,
		PromptID:   promptID,
		Source:     source,
	})
}

func (b *builder) removeEffect(actorID, effectID string, kind condition.Kind, reason, promptID string) {
	b.emit(EventTypeEffectRemoved, EntityActor, actorID, EffectRemovedPayload{
		ActorID:  actorID,
		EffectID: effectID,
		Kind:     kind,
		Reason:   reason,
		PromptID: promptID,
	})
}

// dispatch runs trigger for the combatant's actor in the current round.
func (b *builder) dispatch(trigger effects.Trigger, combatantID string) {
	b.dispatchAt(trigger, combatantID, b.state.Round)
}

func (b *builder) dispatchAt(trigger effects.Trigger, combatantID string, round int) {
	if b.rejected() {
		return
	}
	c, ok := b.state.Combatant(combatantID)
	if !ok {
		return
	}
	a, ok := b.state.Actor(c.ActorID)
	if !ok {
		return
	}
	outcome := b.decider.Effects.Dispatch(trigger, effects.Target{
		Actor:              a,
		Markers:            c.Markers,
		Round:              round,
		ConfirmFixedExpiry: b.state.Policy.ConfirmFixedExpiry,
	})
	for _, change := range outcome.Changes {
		b.applyChange(combatantID, change)
	}
	for _, s := range outcome.Suppressed {
		b.suppress(apperrors.CodeIdempotenceGuardTripped, fmt.Sprintf("%s already applied to %s this turn", s.Marker, combatantID), map[string]string{
			"combatant": c.Name,
			"kind":      s.Kind.Label(),
			"marker":    string(s.Marker),
			"trigger":   string(s.Trigger),
		})
	}
}

func (b *builder) applyChange(combatantID string, change effects.Change) {
	switch change.Type {
	case effects.ChangeDamage:
		b.damage(change.ActorID, change.Amount, change.Source)
	case effects.ChangeMaxReduction:
		b.emit(EventTypeMaxReduced, EntityActor, change.ActorID, MaxReducedPayload{
			ActorID: change.ActorID,
			Source:  change.Source,
			Amount:  change.Amount,
		})
	case effects.ChangeSetMarker:
		b.emit(EventTypeMarkerSet, EntityCombatant, combatantID, MarkerSetPayload{
			CombatantID: combatantID,
			Marker:      change.Marker,
		})
	case effects.ChangeAdvanceCounter:
		b.emit(EventTypeCounterAdvanced, EntityActor, change.ActorID, CounterAdvancedPayload{
			ActorID:       change.ActorID,
			EffectID:      change.EffectID,
			RoundsElapsed: change.RoundsElapsed,
		})
	case effects.ChangeRemoveEffect:
		b.removeEffect(change.ActorID, change.EffectID, change.Kind, change.Reason, "")
	case effects.ChangeAddEffect:
		if a, ok := b.state.Actor(change.ActorID); ok && a.HasEffect(change.Kind) {
			return
		}
		b.attach(change.ActorID, change.Kind, 0, "", change.Source)
	case effects.ChangePromptExpiry:
		if b.state.PendingExpiryPrompt(change.EffectID) {
			return
		}
		promptID, ok := b.newID()
		if !ok {
			return
		}
		b.emit(EventTypeExpiryPrompted, EntityActor, change.ActorID, ExpiryPromptedPayload{
			PromptID: promptID,
			ActorID:  change.ActorID,
			EffectID: change.EffectID,
			Kind:     change.Kind,
		})
	}
}

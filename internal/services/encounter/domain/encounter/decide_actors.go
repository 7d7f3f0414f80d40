package encounter

import (
	"fmt"
	"strings"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

func decideDamage(b *builder) {
	payload, ok := decode[AmountPayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok {
		return
	}
	b.damage(a.ID, payload.Amount, "")
}

// damage records an undoable health loss. An actor already at 0 health
// loses nothing and gets no record. Dropping to 0 attaches Unconscious when
// it is not already attached.
func (b *builder) damage(actorID string, amount int, source condition.Kind) {
	a, ok := b.state.Actor(actorID)
	if !ok || amount <= 0 {
		return
	}
	before := a.Health.Value
	applied := min(amount, before)
	if applied <= 0 {
		return
	}
	damageID, ok := b.newID()
	if !ok {
		return
	}
	b.emit(EventTypeDamaged, EntityActor, actorID, DamagedPayload{
		DamageID: damageID,
		ActorID:  actorID,
		Amount:   applied,
		Source:   source,
	})
	after, _ := b.state.Actor(actorID)
	if after.Health.Value == 0 && !after.HasEffect(condition.Unconscious) {
		b.attach(actorID, condition.Unconscious, 0, "", source)
	}
}

func decideUndoDamage(b *builder) {
	payload, ok := decode[UndoDamagePayload](b)
	if !ok {
		return
	}
	record, ok := b.state.Damage[strings.TrimSpace(payload.DamageID)]
	if !ok {
		b.reject(apperrors.CodeDamageNotFound, "damage record not found", nil)
		return
	}
	if _, ok := b.lookupActor(record.ActorID); !ok {
		return
	}
	b.emit(EventTypeDamageUndone, EntityActor, record.ActorID, DamageUndonePayload{
		DamageID: record.ID,
		ActorID:  record.ActorID,
		Amount:   record.Amount,
	})
}

// decideSpendStamina spends stamina plus any surcharge from active effects,
// then removes the effects a successful spend consumes.
func decideSpendStamina(b *builder) {
	payload, ok := decode[AmountPayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok || !b.mayActForActor(a) {
		return
	}
	surcharge := b.decider.Effects.Modifiers(a).StaminaCost
	total := payload.Amount + surcharge
	if a.Stamina.Value < total {
		b.reject(apperrors.CodeInsufficientStamina, fmt.Sprintf("needs %d stamina, has %d", total, a.Stamina.Value), map[string]string{
			"actor": a.Name,
		})
		return
	}
	b.emit(EventTypeStaminaSpent, EntityActor, a.ID, StaminaSpentPayload{
		ActorID:   a.ID,
		Amount:    total,
		Surcharge: surcharge,
	})
	for _, effect := range a.Effects {
		def, ok := b.decider.Effects.Definition(effect.Kind)
		if ok && def.ConsumedByStaminaSpend {
			b.removeEffect(a.ID, effect.ID, effect.Kind, ReasonConsumed, "")
		}
	}
}

func decideApplyBloodloss(b *builder) {
	payload, ok := decode[AmountPayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok {
		return
	}
	b.emit(EventTypeBloodlossApplied, EntityActor, a.ID, BloodlossAppliedPayload{
		ActorID: a.ID,
		Amount:  payload.Amount,
	})
}

// decideRest removes rest-cleared effects and refills stamina and mana.
func decideRest(b *builder) {
	payload, ok := decode[ActorRefPayload](b)
	if !ok {
		return
	}
	a, ok := b.lookupActor(payload.ActorID)
	if !ok || !b.mayActForActor(a) {
		return
	}
	for _, effect := range a.Effects {
		def, ok := b.decider.Effects.Definition(effect.Kind)
		if ok && def.RemovedByRest {
			b.removeEffect(a.ID, effect.ID, effect.Kind, ReasonRest, "")
		}
	}
	b.emit(EventTypeRested, EntityActor, a.ID, ActorRefPayload{ActorID: a.ID})
}

func (b *builder) mayActForActor(a actor.State) bool {
	if b.cmd.Privileged() || (a.OwnerID != "" && a.OwnerID == b.cmd.ActorID) {
		return true
	}
	b.reject(apperrors.CodePermissionDenied, fmt.Sprintf("%s may not act for %s", b.cmd.ActorID, a.ID), map[string]string{
		"combatant": a.Name,
	})
	return false
}

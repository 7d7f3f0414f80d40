package encounter

import (
	"strings"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
)

func decideCreate(b *builder) {
	if b.state.Created {
		b.reject(apperrors.CodeInvalidArgument, "encounter already exists", map[string]string{
			"reason": "encounter already exists",
		})
		return
	}
	payload, ok := decode[CreatePayload](b)
	if !ok {
		return
	}
	policy := DefaultPolicy()
	if payload.Policy != nil {
		policy = *payload.Policy
	}
	b.emit(EventTypeCreated, EntityEncounter, b.cmd.EncounterID, CreatedPayload{
		Name:   strings.TrimSpace(payload.Name),
		Policy: policy,
	})
}

func decideConfigure(b *builder) {
	payload, ok := decode[ConfigurePayload](b)
	if !ok {
		return
	}
	policy := b.state.Policy
	if payload.SkipDefeatedPhase != nil {
		policy.SkipDefeatedPhase = *payload.SkipDefeatedPhase
	}
	if payload.SkipDefeatedRound != nil {
		policy.SkipDefeatedRound = *payload.SkipDefeatedRound
	}
	if payload.ConfirmFixedExpiry != nil {
		policy.ConfirmFixedExpiry = *payload.ConfirmFixedExpiry
	}
	b.emit(EventTypeConfigured, EntityEncounter, b.cmd.EncounterID, ConfiguredPayload{Policy: policy})
}

// decideActorRegister adds or updates an actor sheet. Effects and health
// reductions of an existing actor survive the update.
func decideActorRegister(b *builder) {
	payload, ok := decode[ActorRegisterPayload](b)
	if !ok {
		return
	}
	actorID := strings.TrimSpace(payload.ActorID)
	next := actor.State{
		ID:         actorID,
		Name:       strings.TrimSpace(payload.Name),
		Type:       payload.Type,
		OwnerID:    strings.TrimSpace(payload.OwnerID),
		Level:      payload.Level,
		BaseHealth: payload.BaseHealth,
		HealthMod:  payload.HealthMod,
		StaminaMod: payload.StaminaMod,
		ManaMod:    payload.ManaMod,
		Aegis:      payload.Aegis,
	}
	if next.Name == "" {
		next.Name = actorID
	}
	existing, exists := b.state.Actor(actorID)
	if exists {
		next.Effects = existing.Effects
		next.BurningReduction = existing.BurningReduction
		next.BloodlossReduction = existing.BloodlossReduction
	}
	next = b.decider.Effects.Recompute(next)
	next.Health.Value = currentValue(payload.Health, exists, existing.Health.Value, next.Health.Max)
	next.Stamina.Value = currentValue(payload.Stamina, exists, existing.Stamina.Value, next.Stamina.Max)
	next.Mana.Value = currentValue(payload.Mana, exists, existing.Mana.Value, next.Mana.Max)
	b.emit(EventTypeActorRegistered, EntityActor, actorID, ActorRegisteredPayload{Actor: next})
}

func currentValue(explicit *int, exists bool, previous, max int) int {
	switch {
	case explicit != nil:
		return *explicit
	case exists:
		return previous
	default:
		return max
	}
}

func decideCombatantAdd(b *builder) {
	payload, ok := decode[CombatantAddPayload](b)
	if !ok {
		return
	}
	combatantID := strings.TrimSpace(payload.CombatantID)
	if _, exists := b.state.Combatant(combatantID); exists {
		b.reject(apperrors.CodeCombatantExists, "combatant already exists", map[string]string{
			"combatant": combatantID,
		})
		return
	}
	actorID := strings.TrimSpace(payload.ActorID)
	var linked actor.State
	if actorID != "" {
		found, ok := b.state.Actor(actorID)
		if !ok {
			b.reject(apperrors.CodeActorNotFound, "actor not found", map[string]string{"actor": actorID})
			return
		}
		linked = found
	}
	var override combatant.Faction
	if payload.FactionOverride != "" {
		override, _ = combatant.ParseFaction(payload.FactionOverride)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = linked.Name
	}
	if name == "" {
		name = combatantID
	}
	b.emit(EventTypeCombatantAdded, EntityCombatant, combatantID, CombatantAddedPayload{Combatant: combatant.State{
		ID:              combatantID,
		Name:            name,
		ActorID:         actorID,
		Faction:         combatant.ResolveFaction(override, linked.Type, payload.Disposition),
		FactionOverride: override,
		Disposition:     payload.Disposition,
		Hidden:          payload.Hidden,
	}})
}

func decideCombatantRemove(b *builder) {
	payload, ok := decode[CombatantRefPayload](b)
	if !ok {
		return
	}
	c, ok := b.lookupCombatant(payload.CombatantID)
	if !ok {
		return
	}
	b.emit(EventTypeCombatantRemoved, EntityCombatant, c.ID, CombatantRefPayload{CombatantID: c.ID})
	b.settle()
}

// decideSetDefeated marks a combatant defeated. Defeating the active
// combatant ends its turn.
func decideSetDefeated(b *builder) {
	payload, ok := decode[SetDefeatedPayload](b)
	if !ok {
		return
	}
	c, ok := b.lookupCombatant(payload.CombatantID)
	if !ok {
		return
	}
	wasActive := b.state.ActiveCombatantID == c.ID
	b.emit(EventTypeDefeatedSet, EntityCombatant, c.ID, SetDefeatedPayload{CombatantID: c.ID, Defeated: payload.Defeated})
	if payload.Defeated && wasActive && b.combatRunning() {
		b.endTurn(c.ID)
		return
	}
	b.settle()
}

func decideSetHidden(b *builder) {
	payload, ok := decode[SetHiddenPayload](b)
	if !ok {
		return
	}
	c, ok := b.lookupCombatant(payload.CombatantID)
	if !ok {
		return
	}
	b.emit(EventTypeHiddenSet, EntityCombatant, c.ID, SetHiddenPayload{CombatantID: c.ID, Hidden: payload.Hidden})
	b.settle()
}

func (b *builder) lookupCombatant(combatantID string) (combatant.State, bool) {
	combatantID = strings.TrimSpace(combatantID)
	c, ok := b.state.Combatant(combatantID)
	if !ok {
		b.reject(apperrors.CodeCombatantNotFound, "combatant not found", map[string]string{"combatant": combatantID})
		return combatant.State{}, false
	}
	return c, true
}

func (b *builder) lookupActor(actorID string) (actor.State, bool) {
	actorID = strings.TrimSpace(actorID)
	a, ok := b.state.Actor(actorID)
	if !ok {
		b.reject(apperrors.CodeActorNotFound, "actor not found", map[string]string{"actor": actorID})
		return actor.State{}, false
	}
	return a, true
}

// settle reruns the completion rule after a roster change, while combat is
// running and nobody holds the turn.
func (b *builder) settle() {
	if !b.combatRunning() || b.state.ActiveCombatantID != "" {
		return
	}
	if len(b.state.Combatants) == 0 {
		return
	}
	b.completeFaction()
}

func (b *builder) combatRunning() bool {
	return b.state.Started && !b.state.Ended
}

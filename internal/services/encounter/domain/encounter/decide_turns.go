package encounter

import (
	"fmt"
	"strings"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/effects"
)

func decideCombatStart(b *builder) {
	payload, ok := decode[CombatStartPayload](b)
	if !ok || payload.Cancelled {
		return
	}
	if b.combatRunning() {
		b.reject(apperrors.CodeCombatAlreadyStarted, "combat already started", nil)
		return
	}
	first := combatant.FactionAllied
	if payload.FirstFaction != "" {
		first, _ = combatant.ParseFaction(payload.FirstFaction)
	}
	b.emit(EventTypeCombatStarted, EntityEncounter, b.cmd.EncounterID, CombatStartedPayload{FirstFaction: first})
}

func decideCombatEnd(b *builder) {
	if !b.combatRunning() {
		b.reject(apperrors.CodeCombatNotStarted, "combat not started", nil)
		return
	}
	b.emit(EventTypeCombatEnded, EntityEncounter, b.cmd.EncounterID, CombatEndedPayload{Round: b.state.Round})
}

func decideTurnStart(b *builder) {
	c, ok := b.turnPreconditions()
	if !ok {
		return
	}
	b.emit(EventTypeTurnStarted, EntityCombatant, c.ID, TurnPayload{
		CombatantID: c.ID,
		Faction:     c.Faction,
		Round:       b.state.Round,
	})
	b.dispatch(effects.TriggerTurnStart, c.ID)
}

func decideTurnEnd(b *builder) {
	c, ok := b.turnPreconditions()
	if !ok {
		return
	}
	b.endTurn(c.ID)
}

// decideTurnAdvance lets the gm apply the next-phase tie-break directly.
func decideTurnAdvance(b *builder) {
	if !b.combatRunning() {
		b.reject(apperrors.CodeCombatNotStarted, "combat not started", nil)
		return
	}
	current := b.state.CurrentFactionTurn
	next := b.state.NextPhase()
	if next != current {
		b.switchPhase(current, next)
		return
	}
	if b.state.FactionComplete(current) {
		b.nextRound()
	}
}

func decideRoundAdvance(b *builder) {
	if !b.combatRunning() {
		b.reject(apperrors.CodeCombatNotStarted, "combat not started", nil)
		return
	}
	b.nextRound()
}

// turnPreconditions checks, in order: combat running, caller may act for the
// combatant, phase, eligibility and not already acted.
func (b *builder) turnPreconditions() (combatant.State, bool) {
	if !b.combatRunning() {
		b.reject(apperrors.CodeCombatNotStarted, "combat not started", nil)
		return combatant.State{}, false
	}
	payload, ok := decode[CombatantRefPayload](b)
	if !ok {
		return combatant.State{}, false
	}
	c, ok := b.lookupCombatant(payload.CombatantID)
	if !ok {
		return combatant.State{}, false
	}
	if !b.mayActFor(c) {
		b.reject(apperrors.CodePermissionDenied, fmt.Sprintf("%s may not act for %s", b.cmd.ActorID, c.ID), map[string]string{
			"combatant": c.Name,
		})
		return combatant.State{}, false
	}
	if c.Faction != b.state.CurrentFactionTurn {
		b.reject(apperrors.CodePhaseViolation, fmt.Sprintf("current phase is %s", b.state.CurrentFactionTurn), map[string]string{
			"combatant": c.Name,
			"faction":   strings.ToLower(string(c.Faction)),
		})
		return combatant.State{}, false
	}
	if !b.state.Eligible(c) {
		b.reject(apperrors.CodeIneligibleCombatant, "combatant is not eligible", map[string]string{
			"combatant": c.Name,
		})
		return combatant.State{}, false
	}
	if b.state.HasActed(c.ID) {
		b.reject(apperrors.CodeAlreadyActed, "combatant already acted this round", map[string]string{
			"combatant": c.Name,
		})
		return combatant.State{}, false
	}
	return c, true
}

// mayActFor reports whether the caller is the gm, the system or the owner of
// the combatant's actor.
func (b *builder) mayActFor(c combatant.State) bool {
	if b.cmd.Privileged() {
		return true
	}
	a, ok := b.state.Actor(c.ActorID)
	return ok && a.OwnerID != "" && a.OwnerID == b.cmd.ActorID
}

// endTurn runs the turnEnd hooks, records the turn and applies the
// completion rule.
func (b *builder) endTurn(combatantID string) {
	b.dispatch(effects.TriggerTurnEnd, combatantID)
	c, _ := b.state.Combatant(combatantID)
	b.emit(EventTypeTurnEnded, EntityCombatant, combatantID, TurnPayload{
		CombatantID: combatantID,
		Faction:     c.Faction,
		Round:       b.state.Round,
	})
	b.completeFaction()
}

// completeFaction advances the round when both factions are done, or
// switches the phase once when the acting faction is done.
func (b *builder) completeFaction() {
	if b.rejected() {
		return
	}
	if b.state.RoundComplete() {
		b.nextRound()
		return
	}
	current := b.state.CurrentFactionTurn
	if !b.state.FactionComplete(current) {
		return
	}
	if next := b.state.NextPhase(); next != current {
		b.switchPhase(current, next)
	}
}

func (b *builder) switchPhase(from, to combatant.Faction) {
	b.emit(EventTypePhaseSwitched, EntityEncounter, b.cmd.EncounterID, PhaseSwitchedPayload{
		From:  from,
		To:    to,
		Round: b.state.Round,
	})
}

// nextRound advances the round, then runs roundEnd hooks for every
// combatant against the round that just ended. An actor shared by several
// combatants is ticked once.
func (b *builder) nextRound() {
	ended := b.state.Round
	b.emit(EventTypeRoundAdvanced, EntityEncounter, b.cmd.EncounterID, RoundAdvancedPayload{
		EndedRound: ended,
		Round:      ended + 1,
	})
	ticked := map[string]bool{}
	for _, c := range b.state.CombatantsByName() {
		if c.ActorID == "" || ticked[c.ActorID] {
			continue
		}
		ticked[c.ActorID] = true
		b.dispatchAt(effects.TriggerRoundEnd, c.ID, ended)
	}
}

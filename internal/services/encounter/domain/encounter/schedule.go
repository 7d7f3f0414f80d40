package encounter

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
)

// Counted reports whether c takes part in a completion check under the
// given skip-defeated flag.
func (s State) Counted(c combatant.State, skipDefeated bool) bool {
	return c.Counted(s.actorLinked(c), skipDefeated)
}

// Remaining lists the counted combatants of faction that have not acted in
// the current round, sorted by name.
func (s State) Remaining(faction combatant.Faction, skipDefeated bool) []combatant.State {
	var out []combatant.State
	for _, c := range s.CombatantsByName() {
		if c.Faction != faction || !s.Counted(c, skipDefeated) {
			continue
		}
		if s.HasActed(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FactionComplete reports whether every counted combatant of faction has
// acted, using the phase flag.
func (s State) FactionComplete(faction combatant.Faction) bool {
	return len(s.Remaining(faction, s.Policy.SkipDefeatedPhase)) == 0
}

// RoundComplete reports whether every counted combatant of both factions
// has acted, using the round flag.
func (s State) RoundComplete() bool {
	for _, faction := range combatant.Factions {
		if len(s.Remaining(faction, s.Policy.SkipDefeatedRound)) > 0 {
			return false
		}
	}
	return true
}

// NextPhase applies the tie-break: switch to the opposite faction only when
// it still has a counted combatant that has not acted, otherwise the acting
// faction continues. When the phase flag leaves nobody to act but the round
// flag still waits on the opposite faction, the phase goes there.
func (s State) NextPhase() combatant.Faction {
	current := s.CurrentFactionTurn
	if current == combatant.FactionNone {
		current = s.FirstFactionTurn
	}
	opposite := current.Opposite()
	if opposite == combatant.FactionNone {
		return current
	}
	if len(s.Remaining(opposite, s.Policy.SkipDefeatedPhase)) > 0 {
		return opposite
	}
	if len(s.Remaining(current, s.Policy.SkipDefeatedPhase)) == 0 &&
		len(s.Remaining(current, s.Policy.SkipDefeatedRound)) == 0 &&
		len(s.Remaining(opposite, s.Policy.SkipDefeatedRound)) > 0 {
		return opposite
	}
	return current
}

// TurnRecord is the derived per-round acted flag for one combatant.
type TurnRecord struct {
	CombatantID string `json:"combatant_id"`
	Eligible    bool   `json:"eligible"`
	Acted       bool   `json:"acted"`
}

// TurnRecords derives the turn record of every combatant for round.
func (s State) TurnRecords(round int) []TurnRecord {
	taken := s.TurnsTaken(round)
	records := make([]TurnRecord, 0, len(s.Combatants))
	for _, c := range s.CombatantsByName() {
		records = append(records, TurnRecord{
			CombatantID: c.ID,
			Eligible:    s.Eligible(c),
			Acted:       containsID(taken, c.ID),
		})
	}
	return records
}

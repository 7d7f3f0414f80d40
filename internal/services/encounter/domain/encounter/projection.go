package encounter

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// CombatantView is one combatant as presented to a tracker.
type CombatantView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	ActorID    string           `json:"actor_id,omitempty"`
	Defeated   bool             `json:"defeated,omitempty"`
	Hidden     bool             `json:"hidden,omitempty"`
	Conditions []condition.Kind `json:"conditions,omitempty"`
}

// TurnStatus is the per-combatant flag set of the projection.
type TurnStatus struct {
	CanAct         bool `json:"canAct"`
	IsActiveTurn   bool `json:"isActiveTurn"`
	HasStartedTurn bool `json:"hasStartedTurn"`
	HasEndedTurn   bool `json:"hasEndedTurn"`
}

// Projection is the read model a presentation layer renders.
type Projection struct {
	EncounterID        string                                `json:"encounterId"`
	Started            bool                                  `json:"started"`
	Round              int                                   `json:"round"`
	Factions           map[combatant.Faction][]CombatantView `json:"factions"`
	CurrentFactionTurn combatant.Faction                     `json:"currentFactionTurn"`
	ActiveCombatantID  string                                `json:"activeCombatantId"`
	PerCombatant       map[string]TurnStatus                 `json:"perCombatant"`
}

// Project derives the presentation projection. Combatants are grouped by
// faction and sorted by name.
func Project(state State) Projection {
	projection := Projection{
		EncounterID:        state.EncounterID,
		Started:            state.Started && !state.Ended,
		Round:              state.Round,
		Factions:           make(map[combatant.Faction][]CombatantView, len(combatant.Factions)),
		CurrentFactionTurn: state.CurrentFactionTurn,
		ActiveCombatantID:  state.ActiveCombatantID,
		PerCombatant:       make(map[string]TurnStatus, len(state.Combatants)),
	}
	for _, faction := range combatant.Factions {
		projection.Factions[faction] = []CombatantView{}
	}
	running := state.Started && !state.Ended
	records := make(map[string]TurnRecord, len(state.Combatants))
	for _, record := range state.TurnRecords(state.Round) {
		records[record.CombatantID] = record
	}
	for _, c := range state.CombatantsByName() {
		view := CombatantView{
			ID:       c.ID,
			Name:     c.Name,
			ActorID:  c.ActorID,
			Defeated: c.Defeated,
			Hidden:   c.Hidden,
		}
		if a, ok := state.Actor(c.ActorID); ok {
			view.Conditions = a.ActiveKinds()
		}
		projection.Factions[c.Faction] = append(projection.Factions[c.Faction], view)

		record := records[c.ID]
		projection.PerCombatant[c.ID] = TurnStatus{
			CanAct:         running && c.Faction == state.CurrentFactionTurn && record.Eligible && !record.Acted,
			IsActiveTurn:   state.ActiveCombatantID == c.ID,
			HasStartedTurn: state.HasStarted(c.ID),
			HasEndedTurn:   record.Acted,
		}
	}
	return projection
}

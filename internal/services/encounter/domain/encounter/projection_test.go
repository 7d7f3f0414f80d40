package encounter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

func TestProjectSortsAndFlags(t *testing.T) {
	h := newScenario(t)
	h.accept(h.gm(CommandTypeActorRegister, ActorRegisterPayload{ActorID: "act-d", Name: "Aaron", Type: "npc", Level: 1, BaseHealth: 10}))
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-d", ActorID: "act-d"}))
	h.startCombat(combatant.FactionAllied)
	h.apply("act-a", condition.Frozen, 0)
	h.accept(h.startTurn("cmb-a"))
	h.accept(h.endTurn("cmb-a"))
	h.accept(h.startTurn("cmb-b"))

	got := Project(h.state)

	var names []string
	for _, view := range got.Factions[combatant.FactionAllied] {
		names = append(names, view.Name)
	}
	if diff := cmp.Diff([]string{"Aaron", "Ayla", "Bram"}, names); diff != "" {
		t.Fatalf("allied order mismatch (-want +got):\n%s", diff)
	}
	if len(got.Factions[combatant.FactionEnemy]) != 1 {
		t.Fatalf("enemy views = %d, want 1", len(got.Factions[combatant.FactionEnemy]))
	}
	if got.CurrentFactionTurn != combatant.FactionAllied || got.ActiveCombatantID != "cmb-b" {
		t.Fatalf("faction = %s active = %q", got.CurrentFactionTurn, got.ActiveCombatantID)
	}

	want := map[string]TurnStatus{
		"cmb-a": {HasEndedTurn: true},
		"cmb-b": {CanAct: true, IsActiveTurn: true, HasStartedTurn: true},
		"cmb-c": {},
		"cmb-d": {CanAct: true},
	}
	if diff := cmp.Diff(want, got.PerCombatant); diff != "" {
		t.Fatalf("per combatant mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]condition.Kind{condition.Frozen}, got.Factions[combatant.FactionAllied][1].Conditions); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectEmptyEncounter(t *testing.T) {
	got := Project(NewState(testEncounterID))
	if got.Started || len(got.PerCombatant) != 0 {
		t.Fatalf("projection = %+v", got)
	}
	for _, faction := range combatant.Factions {
		if got.Factions[faction] == nil {
			t.Fatalf("faction %s missing", faction)
		}
	}
}

func TestTurnRecords(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.endTurn("cmb-a"))
	h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-c", Defeated: true}))

	want := []TurnRecord{
		{CombatantID: "cmb-a", Eligible: true, Acted: true},
		{CombatantID: "cmb-b", Eligible: true},
		{CombatantID: "cmb-c"},
	}
	if diff := cmp.Diff(want, h.state.TurnRecords(1)); diff != "" {
		t.Fatalf("round 1 records mismatch (-want +got):\n%s", diff)
	}

	h.accept(h.endTurn("cmb-b"))
	if h.state.Round != 2 {
		t.Fatalf("round = %d, want 2", h.state.Round)
	}
	for _, record := range h.state.TurnRecords(2) {
		if record.Acted {
			t.Fatalf("record %+v acted in a fresh round", record)
		}
	}
	if got := Project(h.state).PerCombatant["cmb-c"]; got.CanAct {
		t.Fatalf("defeated combatant can act: %+v", got)
	}
}

package encounter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/effects"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
)

const testEncounterID = "enc-1"

func fixedNow() time.Time {
	return time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
}

type harness struct {
	t       *testing.T
	decider Decider
	state   State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	registry := effects.Default()
	return &harness{
		t: t,
		decider: Decider{
			Effects: registry,
			Folder:  Folder{Effects: registry},
			NewID:   id.Sequence("id"),
		},
		state: NewState(testEncounterID),
	}
}

// newScenario builds the standard roster: Ayla and Bram (allied characters)
// and Cinder (an enemy monster). Ayla belongs to player-a.
func newScenario(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	h.accept(h.gm(CommandTypeCreate, CreatePayload{Name: "Bridge ambush"}))
	h.accept(h.gm(CommandTypeActorRegister, ActorRegisterPayload{ActorID: "act-a", Name: "Ayla", Type: actor.TypeCharacter, OwnerID: "player-a", Level: 3, BaseHealth: 20}))
	h.accept(h.gm(CommandTypeActorRegister, ActorRegisterPayload{ActorID: "act-b", Name: "Bram", Type: actor.TypeCharacter, OwnerID: "player-b", Level: 3, BaseHealth: 20}))
	h.accept(h.gm(CommandTypeActorRegister, ActorRegisterPayload{ActorID: "act-c", Name: "Cinder", Type: actor.TypeMonster, Level: 4, BaseHealth: 30}))
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-a", ActorID: "act-a"}))
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-b", ActorID: "act-b"}))
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-c", ActorID: "act-c"}))
	return h
}

func (h *harness) run(cmdType command.Type, actorType command.ActorType, actorID string, payload any) command.Decision {
	h.t.Helper()
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		h.t.Fatalf("marshal payload: %v", err)
	}
	decision := h.decider.Decide(h.state, command.Command{
		EncounterID: testEncounterID,
		Type:        cmdType,
		ActorType:   actorType,
		ActorID:     actorID,
		PayloadJSON: payloadJSON,
	}, fixedNow)
	for _, evt := range decision.Events {
		next, err := h.decider.Folder.Fold(h.state, evt)
		if err != nil {
			h.t.Fatalf("fold %s: %v", evt.Type, err)
		}
		h.state = next
	}
	checkInvariants(h.t, h.state)
	return decision
}

func (h *harness) gm(cmdType command.Type, payload any) command.Decision {
	h.t.Helper()
	return h.run(cmdType, command.ActorTypeGM, "gm-1", payload)
}

func (h *harness) accept(decision command.Decision) command.Decision {
	h.t.Helper()
	if decision.Rejected() {
		h.t.Fatalf("unexpected rejection: %+v", decision.Rejections)
	}
	return decision
}

func (h *harness) startTurn(combatantID string) command.Decision {
	h.t.Helper()
	return h.gm(CommandTypeTurnStart, CombatantRefPayload{CombatantID: combatantID})
}

func (h *harness) endTurn(combatantID string) command.Decision {
	h.t.Helper()
	return h.gm(CommandTypeTurnEnd, CombatantRefPayload{CombatantID: combatantID})
}

func (h *harness) startCombat(first combatant.Faction) {
	h.t.Helper()
	h.accept(h.gm(CommandTypeCombatStart, CombatStartPayload{FirstFaction: string(first)}))
}

func (h *harness) actor(actorID string) actor.State {
	h.t.Helper()
	a, ok := h.state.Actor(actorID)
	if !ok {
		h.t.Fatalf("actor %s missing", actorID)
	}
	return a
}

func requireRejection(t *testing.T, decision command.Decision, code string) {
	t.Helper()
	if !decision.Rejected() {
		t.Fatalf("expected rejection %s, got events %v", code, eventTypes(decision.Events))
	}
	if got := decision.Rejections[0].Code; got != code {
		t.Fatalf("rejection code = %s, want %s", got, code)
	}
	if len(decision.Events) != 0 {
		t.Fatalf("rejected decision carries %d events", len(decision.Events))
	}
}

func eventTypes(events []event.Event) []event.Type {
	types := make([]event.Type, 0, len(events))
	for _, evt := range events {
		types = append(types, evt.Type)
	}
	return types
}

func countEvents(events []event.Event, eventType event.Type) int {
	count := 0
	for _, evt := range events {
		if evt.Type == eventType {
			count++
		}
	}
	return count
}

// checkInvariants asserts the scheduler invariants hold for state.
func checkInvariants(t *testing.T, state State) {
	t.Helper()
	if state.ActiveCombatantID != "" {
		c, ok := state.Combatant(state.ActiveCombatantID)
		if !ok {
			t.Fatalf("active combatant %s missing from roster", state.ActiveCombatantID)
		}
		if c.Faction != state.CurrentFactionTurn {
			t.Fatalf("active combatant faction = %s, want %s", c.Faction, state.CurrentFactionTurn)
		}
		if state.HasActed(c.ID) {
			t.Fatalf("active combatant %s already in turns taken", c.ID)
		}
	}
	for round, ids := range state.TurnsTakenByRound {
		if duplicate(ids) {
			t.Fatalf("turns taken in round %d has duplicates: %v", round, ids)
		}
	}
	if duplicate(state.StartedTurnIDs) {
		t.Fatalf("started turn ids has duplicates: %v", state.StartedTurnIDs)
	}
}

func duplicate(ids []string) bool {
	seen := map[string]bool{}
	for _, value := range ids {
		if seen[value] {
			return true
		}
		seen[value] = true
	}
	return false
}

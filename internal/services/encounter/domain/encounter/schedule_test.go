package encounter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
)

func TestTwoAlliedOneEnemyRound(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)

	h.accept(h.startTurn("cmb-a"))
	if h.state.ActiveCombatantID != "cmb-a" {
		t.Fatalf("active = %q, want cmb-a", h.state.ActiveCombatantID)
	}
	h.accept(h.endTurn("cmb-a"))
	if diff := cmp.Diff([]string{"cmb-a"}, h.state.TurnsTaken(1)); diff != "" {
		t.Fatalf("turns taken mismatch (-want +got):\n%s", diff)
	}
	if h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("faction = %s, want ALLIED", h.state.CurrentFactionTurn)
	}

	h.accept(h.startTurn("cmb-b"))
	decision := h.accept(h.endTurn("cmb-b"))
	if got := countEvents(decision.Events, EventTypePhaseSwitched); got != 1 {
		t.Fatalf("phase switches = %d, want 1", got)
	}
	if h.state.CurrentFactionTurn != combatant.FactionEnemy {
		t.Fatalf("faction = %s, want ENEMY", h.state.CurrentFactionTurn)
	}

	h.accept(h.startTurn("cmb-c"))
	decision = h.accept(h.endTurn("cmb-c"))
	if got := countEvents(decision.Events, EventTypePhaseSwitched); got != 0 {
		t.Fatalf("phase switches on round end = %d, want 0", got)
	}
	if got := countEvents(decision.Events, EventTypeRoundAdvanced); got != 1 {
		t.Fatalf("round advances = %d, want 1", got)
	}
	if h.state.Round != 2 {
		t.Fatalf("round = %d, want 2", h.state.Round)
	}
	if h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("faction = %s, want ALLIED", h.state.CurrentFactionTurn)
	}
	if len(h.state.TurnsTaken(2)) != 0 || len(h.state.StartedTurnIDs) != 0 || h.state.ActiveCombatantID != "" {
		t.Fatalf("round 2 sets not clear: taken=%v started=%v active=%q",
			h.state.TurnsTaken(2), h.state.StartedTurnIDs, h.state.ActiveCombatantID)
	}
}

func TestStartCombatInitializesState(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionEnemy)
	if h.state.Round != 1 || !h.state.Started {
		t.Fatalf("round = %d started = %v", h.state.Round, h.state.Started)
	}
	if h.state.FirstFactionTurn != combatant.FactionEnemy || h.state.CurrentFactionTurn != combatant.FactionEnemy {
		t.Fatalf("factions = %s/%s, want ENEMY/ENEMY", h.state.FirstFactionTurn, h.state.CurrentFactionTurn)
	}
	requireRejection(t, h.gm(CommandTypeCombatStart, CombatStartPayload{}), string(apperrors.CodeCombatAlreadyStarted))
}

func TestStartCombatCancelledIsNoop(t *testing.T) {
	h := newScenario(t)
	before := h.state.Clone()
	decision := h.accept(h.gm(CommandTypeCombatStart, CombatStartPayload{FirstFaction: "ALLIED", Cancelled: true}))
	if len(decision.Events) != 0 {
		t.Fatalf("events = %v, want none", eventTypes(decision.Events))
	}
	if diff := cmp.Diff(before, h.state); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestStartTurnWrongFactionRejected(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	before := h.state.Clone()

	decision := h.startTurn("cmb-c")
	requireRejection(t, decision, string(apperrors.CodePhaseViolation))
	if got := decision.Rejections[0].Metadata["faction"]; got != "enemy" {
		t.Fatalf("faction metadata = %q, want enemy", got)
	}
	if diff := cmp.Diff(before, h.state); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestAtMostOneActiveCombatant(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.startTurn("cmb-a"))
	h.accept(h.startTurn("cmb-b"))
	if h.state.ActiveCombatantID != "cmb-b" {
		t.Fatalf("active = %q, want cmb-b", h.state.ActiveCombatantID)
	}
	if diff := cmp.Diff([]string{"cmb-a", "cmb-b"}, h.state.StartedTurnIDs); diff != "" {
		t.Fatalf("started mismatch (-want +got):\n%s", diff)
	}
	h.accept(h.startTurn("cmb-b"))
	if diff := cmp.Diff([]string{"cmb-a", "cmb-b"}, h.state.StartedTurnIDs); diff != "" {
		t.Fatalf("started after repeat (-want +got):\n%s", diff)
	}
}

func TestAlreadyActedRejected(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.startTurn("cmb-a"))
	h.accept(h.endTurn("cmb-a"))

	requireRejection(t, h.startTurn("cmb-a"), string(apperrors.CodeAlreadyActed))
	requireRejection(t, h.endTurn("cmb-a"), string(apperrors.CodeAlreadyActed))
	if diff := cmp.Diff([]string{"cmb-a"}, h.state.TurnsTaken(1)); diff != "" {
		t.Fatalf("turns taken mismatch (-want +got):\n%s", diff)
	}
}

func TestTurnPreconditionOrder(t *testing.T) {
	h := newScenario(t)
	participant := func(actorID, combatantID string) command.Decision {
		return h.run(CommandTypeTurnStart, command.ActorTypeParticipant, actorID, CombatantRefPayload{CombatantID: combatantID})
	}

	requireRejection(t, participant("player-a", "cmb-a"), string(apperrors.CodeCombatNotStarted))
	h.startCombat(combatant.FactionAllied)

	// Permission is checked before the phase.
	requireRejection(t, participant("player-a", "cmb-c"), string(apperrors.CodePermissionDenied))
	requireRejection(t, participant("player-a", "cmb-b"), string(apperrors.CodePermissionDenied))
	requireRejection(t, participant("player-a", "cmb-missing"), string(apperrors.CodeCombatantNotFound))
	h.accept(participant("player-a", "cmb-a"))

	h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-b", Defeated: true}))
	requireRejection(t, h.startTurn("cmb-b"), string(apperrors.CodeIneligibleCombatant))
}

func TestEndTurnBeforeStartIsAllowed(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.endTurn("cmb-a"))
	if !h.state.HasActed("cmb-a") {
		t.Fatal("cmb-a not recorded as acted")
	}
}

func TestSkipDefeatedPhaseFlag(t *testing.T) {
	tests := []struct {
		name        string
		skipPhase   bool
		wantFaction combatant.Faction
	}{
		{name: "skip defeated", skipPhase: true, wantFaction: combatant.FactionEnemy},
		{name: "count defeated", skipPhase: false, wantFaction: combatant.FactionAllied},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newScenario(t)
			skip := tc.skipPhase
			h.accept(h.gm(CommandTypeConfigure, ConfigurePayload{SkipDefeatedPhase: &skip}))
			h.startCombat(combatant.FactionAllied)
			h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-b", Defeated: true}))
			h.accept(h.startTurn("cmb-a"))
			h.accept(h.endTurn("cmb-a"))
			if h.state.CurrentFactionTurn != tc.wantFaction {
				t.Fatalf("faction = %s, want %s", h.state.CurrentFactionTurn, tc.wantFaction)
			}
			if !tc.skipPhase {
				h.accept(h.gm(CommandTypeTurnAdvance, struct{}{}))
				if h.state.CurrentFactionTurn != combatant.FactionEnemy {
					t.Fatalf("faction after gm advance = %s, want ENEMY", h.state.CurrentFactionTurn)
				}
			}
		})
	}
}

func TestSkipDefeatedRoundFlag(t *testing.T) {
	tests := []struct {
		name      string
		skipRound bool
		wantRound int
	}{
		{name: "skip defeated", skipRound: true, wantRound: 2},
		{name: "count defeated", skipRound: false, wantRound: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newScenario(t)
			skip := tc.skipRound
			h.accept(h.gm(CommandTypeConfigure, ConfigurePayload{SkipDefeatedRound: &skip}))
			h.startCombat(combatant.FactionAllied)
			h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-b", Defeated: true}))
			h.accept(h.endTurn("cmb-a"))
			if h.state.CurrentFactionTurn != combatant.FactionEnemy {
				t.Fatalf("faction = %s, want ENEMY", h.state.CurrentFactionTurn)
			}
			h.accept(h.endTurn("cmb-c"))
			if h.state.Round != tc.wantRound {
				t.Fatalf("round = %d, want %d", h.state.Round, tc.wantRound)
			}
			if !tc.skipRound {
				if h.state.CurrentFactionTurn != combatant.FactionAllied {
					t.Fatalf("faction = %s, want ALLIED for the defeated combatant", h.state.CurrentFactionTurn)
				}
				h.accept(h.gm(CommandTypeRoundAdvance, struct{}{}))
				if h.state.Round != 2 {
					t.Fatalf("round after gm advance = %d, want 2", h.state.Round)
				}
			}
		})
	}
}

func TestCountedDefeatedCombatantCompletesRound(t *testing.T) {
	h := newScenario(t)
	skip := false
	h.accept(h.gm(CommandTypeConfigure, ConfigurePayload{SkipDefeatedRound: &skip}))
	h.startCombat(combatant.FactionAllied)
	h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-b", Defeated: true}))

	h.accept(h.startTurn("cmb-a"))
	h.accept(h.endTurn("cmb-a"))
	h.accept(h.startTurn("cmb-c"))
	h.accept(h.endTurn("cmb-c"))
	if h.state.Round != 1 || h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("round = %d faction = %s, want 1 ALLIED", h.state.Round, h.state.CurrentFactionTurn)
	}

	requireRejection(t, h.startTurn("cmb-a"), string(apperrors.CodeAlreadyActed))
	h.accept(h.startTurn("cmb-b"))
	h.accept(h.endTurn("cmb-b"))
	if h.state.Round != 2 || h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("round = %d faction = %s, want 2 ALLIED", h.state.Round, h.state.CurrentFactionTurn)
	}
}

func TestDefeatedCombatantIneligibleWhenSkipped(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-b", Defeated: true}))
	requireRejection(t, h.startTurn("cmb-b"), string(apperrors.CodeIneligibleCombatant))
}

func TestNextPhaseTieBreak(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	if got := h.state.NextPhase(); got != combatant.FactionEnemy {
		t.Fatalf("next phase = %s, want ENEMY", got)
	}
	h.accept(h.gm(CommandTypeTurnAdvance, struct{}{}))
	h.accept(h.endTurn("cmb-c"))
	// The enemy side is done and the allied side still has turns left.
	if h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("faction = %s, want ALLIED", h.state.CurrentFactionTurn)
	}
	if got := h.state.NextPhase(); got != combatant.FactionAllied {
		t.Fatalf("next phase = %s, want ALLIED", got)
	}
	h.accept(h.endTurn("cmb-a"))
	if h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("faction = %s, want ALLIED", h.state.CurrentFactionTurn)
	}
	h.accept(h.endTurn("cmb-b"))
	if h.state.Round != 2 {
		t.Fatalf("round = %d, want 2", h.state.Round)
	}
}

func TestDefeatingActiveCombatantEndsTurn(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionEnemy)
	h.accept(h.startTurn("cmb-c"))
	decision := h.accept(h.gm(CommandTypeSetDefeated, SetDefeatedPayload{CombatantID: "cmb-c", Defeated: true}))
	if got := countEvents(decision.Events, EventTypeTurnEnded); got != 1 {
		t.Fatalf("turn ended events = %d, want 1", got)
	}
	if h.state.ActiveCombatantID != "" || h.state.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("active = %q faction = %s", h.state.ActiveCombatantID, h.state.CurrentFactionTurn)
	}
}

func TestRecentlyActiveIDs(t *testing.T) {
	h := newScenario(t)
	h.startCombat(combatant.FactionAllied)
	h.accept(h.startTurn("cmb-a"))
	h.accept(h.startTurn("cmb-b"))
	h.accept(h.startTurn("cmb-a"))
	if diff := cmp.Diff([]string{"cmb-b", "cmb-a"}, h.state.RecentlyActiveIDs); diff != "" {
		t.Fatalf("recently active mismatch (-want +got):\n%s", diff)
	}
	h.accept(h.gm(CommandTypeRoundAdvance, struct{}{}))
	if len(h.state.RecentlyActiveIDs) != 0 {
		t.Fatalf("recently active after round = %v", h.state.RecentlyActiveIDs)
	}
}

func TestCommandsRequireEncounter(t *testing.T) {
	h := newHarness(t)
	requireRejection(t, h.gm(CommandTypeCombatStart, CombatStartPayload{}), string(apperrors.CodeEncounterNotFound))
	h.accept(h.gm(CommandTypeCreate, CreatePayload{}))
	if diff := cmp.Diff(DefaultPolicy(), h.state.Policy); diff != "" {
		t.Fatalf("policy mismatch (-want +got):\n%s", diff)
	}
	requireRejection(t, h.gm(CommandTypeCreate, CreatePayload{}), string(apperrors.CodeInvalidArgument))
}

func TestCombatantAddResolvesFaction(t *testing.T) {
	h := newScenario(t)
	hostile := 0
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-token", Name: "Shade", Disposition: &hostile}))
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-turncoat", ActorID: "act-c", FactionOverride: "allied"}))
	if c, _ := h.state.Combatant("cmb-token"); c.Faction != combatant.FactionEnemy {
		t.Fatalf("token faction = %s, want ENEMY", c.Faction)
	}
	if c, _ := h.state.Combatant("cmb-turncoat"); c.Faction != combatant.FactionAllied || c.Name != "Cinder" {
		t.Fatalf("turncoat = %+v", c)
	}
	requireRejection(t, h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-a"}), string(apperrors.CodeCombatantExists))
	requireRejection(t, h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-x", ActorID: "act-x"}), string(apperrors.CodeActorNotFound))
}

func TestCombatantWithoutActorIsIneligible(t *testing.T) {
	h := newScenario(t)
	h.accept(h.gm(CommandTypeCombatantAdd, CombatantAddPayload{CombatantID: "cmb-token", Name: "Shade"}))
	h.startCombat(combatant.FactionAllied)
	requireRejection(t, h.startTurn("cmb-token"), string(apperrors.CodeIneligibleCombatant))
	// Unlinked combatants never hold up completion.
	h.accept(h.endTurn("cmb-a"))
	h.accept(h.endTurn("cmb-b"))
	if h.state.CurrentFactionTurn != combatant.FactionEnemy {
		t.Fatalf("faction = %s, want ENEMY", h.state.CurrentFactionTurn)
	}
}

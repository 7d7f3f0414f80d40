package combatant

import (
	"testing"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
)

func intPtr(v int) *int { return &v }

func TestResolveFactionPriority(t *testing.T) {
	tests := []struct {
		name        string
		override    Faction
		actorType   actor.Type
		disposition *int
		want        Faction
	}{
		{name: "override beats type", override: FactionAllied, actorType: actor.TypeMonster, want: FactionAllied},
		{name: "monster is enemy", actorType: actor.TypeMonster, disposition: intPtr(1), want: FactionEnemy},
		{name: "character is allied", actorType: actor.TypeCharacter, disposition: intPtr(-1), want: FactionAllied},
		{name: "npc is allied", actorType: actor.TypeNPC, want: FactionAllied},
		{name: "friendly disposition", disposition: intPtr(1), want: FactionAllied},
		{name: "hostile disposition", disposition: intPtr(-1), want: FactionEnemy},
		{name: "neutral disposition", disposition: intPtr(0), want: FactionEnemy},
		{name: "default", want: FactionAllied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFaction(tt.override, tt.actorType, tt.disposition); got != tt.want {
				t.Fatalf("ResolveFaction = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFactionAndOpposite(t *testing.T) {
	f, err := ParseFaction(" enemy ")
	if err != nil || f != FactionEnemy {
		t.Fatalf("ParseFaction = %s, %v", f, err)
	}
	if _, err := ParseFaction("neutral"); err == nil {
		t.Fatal("expected error")
	}
	if FactionAllied.Opposite() != FactionEnemy || FactionEnemy.Opposite() != FactionAllied {
		t.Fatal("unexpected opposite")
	}
	if FactionNone.Opposite() != FactionNone {
		t.Fatal("none has no opposite")
	}
}

func TestEligibleAndCounted(t *testing.T) {
	base := State{ID: "a", ActorID: "actor-a"}
	if !base.Eligible(true) || !base.Counted(true, true) {
		t.Fatal("linked visible combatant should be eligible and counted")
	}
	if base.Eligible(false) || base.Counted(false, true) {
		t.Fatal("missing actor makes the combatant ineligible")
	}

	hidden := base
	hidden.Hidden = true
	if hidden.Eligible(true) || hidden.Counted(true, false) {
		t.Fatal("hidden combatant is never eligible or counted")
	}

	defeated := base
	defeated.Defeated = true
	if defeated.Eligible(true) {
		t.Fatal("defeated combatant is not eligible")
	}
	if defeated.Counted(true, true) {
		t.Fatal("defeated combatant is skipped when the policy skips defeated")
	}
	if !defeated.Counted(true, false) {
		t.Fatal("defeated combatant counts when the policy keeps defeated")
	}
}

func TestCloneIsolatesMarkers(t *testing.T) {
	original := State{ID: "a", Markers: map[Marker]bool{MarkerBurningDamage: true}, Disposition: intPtr(1)}
	cloned := original.Clone()
	cloned.Markers[MarkerPoisonDamage] = true
	*cloned.Disposition = -1

	if original.HasMarker(MarkerPoisonDamage) {
		t.Fatal("clone leaked marker into original")
	}
	if *original.Disposition != 1 {
		t.Fatal("clone leaked disposition into original")
	}
}

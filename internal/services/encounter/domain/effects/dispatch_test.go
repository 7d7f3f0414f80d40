package effects

import (
	"testing"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

func hero(effects ...actor.Effect) actor.State {
	return actor.State{ID: "actor-1", Name: "Ayla", Type: actor.TypeCharacter, Level: 3, BaseHealth: 20, Effects: effects}
}

func changesOf(changes []Change, typ ChangeType) []Change {
	var out []Change
	for _, change := range changes {
		if change.Type == typ {
			out = append(out, change)
		}
	}
	return out
}

func TestDispatchTurnStartDamage(t *testing.T) {
	registry := Default()
	target := Target{Actor: hero(
		actor.Effect{ID: "e1", Kind: condition.Burning},
		actor.Effect{ID: "e2", Kind: condition.Bleeding, Stage: 2},
		actor.Effect{ID: "e3", Kind: condition.Bleeding, Stage: 4},
		actor.Effect{ID: "e4", Kind: condition.Poison, Stage: 2},
	)}
	out := registry.Dispatch(TriggerTurnStart, target)
	damage := changesOf(out.Changes, ChangeDamage)
	if len(damage) != 3 {
		t.Fatalf("damage changes = %d, want 3: %+v", len(damage), out.Changes)
	}
	bySource := map[condition.Kind]int{}
	for _, change := range damage {
		bySource[change.Source] += change.Amount
		if change.ActorID != "actor-1" {
			t.Fatalf("actor id = %q, want actor-1", change.ActorID)
		}
	}
	if bySource[condition.Burning] != 3 || bySource[condition.Bleeding] != 4 || bySource[condition.Poison] != 2 {
		t.Fatalf("damage by source = %v", bySource)
	}
	markers := changesOf(out.Changes, ChangeSetMarker)
	if len(markers) != 3 {
		t.Fatalf("markers = %d, want 3", len(markers))
	}
	if len(out.Suppressed) != 0 {
		t.Fatalf("suppressed = %v, want none", out.Suppressed)
	}
}

func TestDispatchPoisonStageOneDealsNoDamage(t *testing.T) {
	out := Default().Dispatch(TriggerTurnStart, Target{Actor: hero(actor.Effect{ID: "p", Kind: condition.Poison, Stage: 1})})
	if len(out.Changes) != 0 {
		t.Fatalf("changes = %+v, want none", out.Changes)
	}
}

func TestDispatchGuardSuppressesSecondTrigger(t *testing.T) {
	registry := Default()
	target := Target{
		Actor:   hero(actor.Effect{ID: "e1", Kind: condition.Burning}),
		Markers: map[combatant.Marker]bool{combatant.MarkerBurningDamage: true},
	}
	out := registry.Dispatch(TriggerTurnStart, target)
	if len(out.Changes) != 0 {
		t.Fatalf("changes = %+v, want none", out.Changes)
	}
	if len(out.Suppressed) != 1 {
		t.Fatalf("suppressed = %d, want 1", len(out.Suppressed))
	}
	got := out.Suppressed[0]
	if got.Marker != combatant.MarkerBurningDamage || got.Kind != condition.Burning || got.Trigger != TriggerTurnStart {
		t.Fatalf("suppression = %+v", got)
	}
}

func TestDispatchTurnEndBurningReduction(t *testing.T) {
	out := Default().Dispatch(TriggerTurnEnd, Target{Actor: hero(actor.Effect{ID: "e1", Kind: condition.Burning})})
	reductions := changesOf(out.Changes, ChangeMaxReduction)
	if len(reductions) != 1 || reductions[0].Amount != 1 {
		t.Fatalf("reductions = %+v", reductions)
	}
	markers := changesOf(out.Changes, ChangeSetMarker)
	if len(markers) != 1 || markers[0].Marker != combatant.MarkerBurningReduction {
		t.Fatalf("markers = %+v", markers)
	}
}

func TestDispatchSkipsInertEffects(t *testing.T) {
	a := hero(actor.Effect{ID: "e1", Kind: condition.Burning, Inert: true})
	if out := Default().Dispatch(TriggerTurnStart, Target{Actor: a}); len(out.Changes) != 0 {
		t.Fatalf("changes = %+v, want none", out.Changes)
	}
}

// roundEnds runs the roundEnd trigger n times, folding counter, add and
// remove changes back into the actor the way the encounter fold does.
func roundEnds(t *testing.T, registry *Registry, a actor.State, n int, confirm bool) (actor.State, []Change) {
	t.Helper()
	var all []Change
	for i := 0; i < n; i++ {
		out := registry.Dispatch(TriggerRoundEnd, Target{Actor: a, Round: i + 1, ConfirmFixedExpiry: confirm})
		for _, change := range out.Changes {
			all = append(all, change)
			switch change.Type {
			case ChangeAdvanceCounter:
				effect, _ := a.Effect(change.EffectID)
				effect.RoundsElapsed = change.RoundsElapsed
				a = a.WithEffect(effect)
			case ChangeRemoveEffect:
				a = a.WithoutEffect(change.EffectID)
			case ChangeAddEffect:
				a = a.WithEffect(actor.Effect{ID: "added-" + string(change.Kind), Kind: change.Kind})
			}
		}
	}
	return a, all
}

func TestFrozenRemovedAtThirdRoundEnd(t *testing.T) {
	registry := Default()
	a := hero(actor.Effect{ID: "ice", Kind: condition.Frozen})
	for i := 1; i <= 2; i++ {
		a, _ = roundEnds(t, registry, a, 1, false)
		if !a.HasEffect(condition.Frozen) {
			t.Fatalf("frozen removed after %d roundEnds, want 3", i)
		}
	}
	a, changes := roundEnds(t, registry, a, 1, false)
	if a.HasEffect(condition.Frozen) {
		t.Fatal("frozen still attached after 3 roundEnds")
	}
	removed := changesOf(changes, ChangeRemoveEffect)
	if len(removed) != 1 || removed[0].Reason != "expired" {
		t.Fatalf("removals = %+v", removed)
	}
}

func TestShockedExpiry(t *testing.T) {
	registry := Default()
	a, _ := roundEnds(t, registry, hero(actor.Effect{ID: "zap", Kind: condition.Shocked}), 1, false)
	if a.HasEffect(condition.Shocked) {
		t.Fatal("shocked still attached after first roundEnd")
	}

	a, changes := roundEnds(t, registry, hero(actor.Effect{ID: "zap", Kind: condition.Shocked}), 1, true)
	if !a.HasEffect(condition.Shocked) {
		t.Fatal("shocked removed without confirmation")
	}
	prompts := changesOf(changes, ChangePromptExpiry)
	if len(prompts) != 1 || prompts[0].EffectID != "zap" {
		t.Fatalf("prompts = %+v", prompts)
	}
}

func TestPoisonStageFourEscalatesAfterThreeRoundEnds(t *testing.T) {
	registry := Default()
	a := hero(actor.Effect{ID: "venom", Kind: condition.Poison, Stage: 4})
	a, _ = roundEnds(t, registry, a, 2, false)
	if !a.HasEffect(condition.Poison) || a.HasEffect(condition.Unconscious) {
		t.Fatalf("effects after 2 roundEnds = %+v", a.Effects)
	}
	a, changes := roundEnds(t, registry, a, 1, false)
	if a.HasEffect(condition.Poison) {
		t.Fatal("poison still attached after 3 roundEnds")
	}
	if !a.HasEffect(condition.Unconscious) {
		t.Fatal("unconscious not attached after 3 roundEnds")
	}
	if added := changesOf(changes, ChangeAddEffect); len(added) != 1 || added[0].Source != condition.Poison {
		t.Fatalf("added = %+v", added)
	}
}

func TestPoisonBelowStageFourNeverEscalates(t *testing.T) {
	a, changes := roundEnds(t, Default(), hero(actor.Effect{ID: "venom", Kind: condition.Poison, Stage: 3}), 5, false)
	if !a.HasEffect(condition.Poison) || len(changes) != 0 {
		t.Fatalf("effects = %+v changes = %+v", a.Effects, changes)
	}
}

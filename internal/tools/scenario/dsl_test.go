package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestActorChainingCreatesCombatant(t *testing.T) {
	path := writeScenarioFixture(t, `-- Setup
local scene = Scenario.new("chain")
scene:encounter({name = "Bridge"})

-- Actor + combatant
scene:actor({name = "Ayla", owner = "player-a", level = 3}):combatant()

return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if len(scenario.Steps) != 3 {
		t.Fatalf("steps = %d, want %d", len(scenario.Steps), 3)
	}

	declared := scenario.Steps[1]
	if declared.Kind != "actor" {
		t.Fatalf("step kind = %q, want %q", declared.Kind, "actor")
	}
	if declared.Args["owner"] != "player-a" {
		t.Fatalf("actor owner = %v, want player-a", declared.Args["owner"])
	}
	if declared.Args["level"] != 3 {
		t.Fatalf("actor level = %v, want 3", declared.Args["level"])
	}

	joined := scenario.Steps[2]
	if joined.Kind != "combatant" {
		t.Fatalf("step kind = %q, want %q", joined.Kind, "combatant")
	}
	want := map[string]any{"name": "Ayla", "actor": "Ayla"}
	if diff := cmp.Diff(want, joined.Args); diff != "" {
		t.Fatalf("combatant args mismatch (-want +got):\n%s", diff)
	}
}

func TestActorChainingKeepsCombatantOverrides(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("chain")
scene:actor({name = "Cinder", type = "monster"}):combatant({name = "Cinder (shade)", faction = "allied", hidden = true})
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	joined := scenario.Steps[1]
	want := map[string]any{
		"name":    "Cinder (shade)",
		"actor":   "Cinder",
		"faction": "allied",
		"hidden":  true,
	}
	if diff := cmp.Diff(want, joined.Args); diff != "" {
		t.Fatalf("combatant args mismatch (-want +got):\n%s", diff)
	}
}

func TestActorRequiresName(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("broken")
scene:actor({level = 2})
return scene
`)

	_, err := LoadScenarioFromFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "actor name is required") {
		t.Fatalf("error = %v", err)
	}
}

func TestCombatantRequiresName(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("broken")
scene:combatant({actor = "Ayla"})
return scene
`)

	_, err := LoadScenarioFromFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "combatant name is required") {
		t.Fatalf("error = %v", err)
	}
}

func TestNamedStepCarriesName(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("turns")
scene:start_turn("Ayla", {as = "player-a"})
scene:end_turn("Ayla")
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	want := []Step{
		{Kind: "start_turn", Args: map[string]any{"name": "Ayla", "as": "player-a"}},
		{Kind: "end_turn", Args: map[string]any{"name": "Ayla"}},
	}
	if diff := cmp.Diff(want, scenario.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionalTableSteps(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("combat")
scene:start_combat()
scene:advance_round({expect_rejection = "PERMISSION_DENIED", as = "player-a"})
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	want := []Step{
		{Kind: "start_combat", Args: map[string]any{}},
		{Kind: "advance_round", Args: map[string]any{"expect_rejection": "PERMISSION_DENIED", "as": "player-a"}},
	}
	if diff := cmp.Diff(want, scenario.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestTableListsDecodeAsSlices(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("lists")
scene:expect_actor({target = "Ayla", effects = {"burning", "soaked"}})
scene:expect_turn({acted = {}})
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	effects, ok := readStringSlice(scenario.Steps[0].Args, "effects")
	if !ok {
		t.Fatal("expected effects list")
	}
	if diff := cmp.Diff([]string{"burning", "soaked"}, effects); diff != "" {
		t.Fatalf("effects mismatch (-want +got):\n%s", diff)
	}
	acted, ok := readStringSlice(scenario.Steps[1].Args, "acted")
	if !ok || len(acted) != 0 {
		t.Fatalf("acted = %v (%v), want empty list", acted, ok)
	}
}

func TestScenarioNameDefaultsToFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ambush.lua")
	if err := os.WriteFile(path, []byte("return Scenario.new()\n"), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "ambush" {
		t.Fatalf("name = %q, want %q", scenario.Name, "ambush")
	}
}

func TestScenarioMustBeReturned(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("lost")
scene:start_combat()
`)

	if _, err := LoadScenarioFromFile(path); err == nil {
		t.Fatal("expected error when script returns nothing")
	}
}

func writeScenarioFixture(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

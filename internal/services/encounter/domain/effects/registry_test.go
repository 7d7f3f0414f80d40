package effects

import (
	"testing"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

func TestDefaultRegistersEveryKind(t *testing.T) {
	registry := Default()
	if got, want := len(registry.Kinds()), len(condition.All); got != want {
		t.Fatalf("registered kinds = %d, want %d", got, want)
	}
	for _, kind := range condition.All {
		if _, ok := registry.Definition(kind); !ok {
			t.Fatalf("kind %s not registered", kind)
		}
	}
}

func TestDefaultStageRanges(t *testing.T) {
	registry := Default()
	tests := []struct {
		kind condition.Kind
		max  int
	}{
		{condition.Poison, 4},
		{condition.Exhaustion, 5},
		{condition.Haggard, 4},
		{condition.Bleeding, 5},
		{condition.Burning, 0},
	}
	for _, tc := range tests {
		def, _ := registry.Definition(tc.kind)
		if def.Stages.Max != tc.max {
			t.Fatalf("%s max stage = %d, want %d", tc.kind, def.Stages.Max, tc.max)
		}
		if tc.max > 0 && (!def.Stages.Contains(1) || def.Stages.Contains(tc.max+1)) {
			t.Fatalf("%s stage range = %+v", tc.kind, def.Stages)
		}
	}
}

func TestRegisterRejectsInvalidDefinitions(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Kind: "sunburn"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if err := registry.Register(Definition{Kind: condition.Frozen, Expiry: Expiry{Kind: ExpiryCounted}}); err == nil {
		t.Fatal("expected error for counted expiry without rounds")
	}
	if err := registry.Register(Definition{Kind: condition.Poison, Stages: StageRange{Min: 0, Max: 4}}); err == nil {
		t.Fatal("expected error for stage range starting at 0")
	}
	if err := registry.Register(Definition{Kind: condition.Soaked}); err != nil {
		t.Fatalf("register soaked: %v", err)
	}
	if err := registry.Register(Definition{Kind: condition.Soaked}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterGeneratesExpiryHook(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Kind: condition.Frozen, Expiry: Expiry{Kind: ExpiryCounted, Rounds: 2}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	def, _ := registry.Definition(condition.Frozen)
	if def.RoundEnd == nil {
		t.Fatal("expected generated roundEnd hook")
	}
	if def, _ := Default().Definition(condition.Soaked); def.Expiry.Kind != ExpiryUntilRemoved {
		t.Fatalf("soaked expiry = %s, want %s", def.Expiry.Kind, ExpiryUntilRemoved)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

const testEncounterID = "enc-1"

func fixedNow() time.Time {
	return time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, stores Stores) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Stores: stores,
		Logger: zerolog.Nop(),
		NewID:  id.Sequence("id"),
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func memoryService(t *testing.T) *Service {
	t.Helper()
	_, events, err := encounter.NewRegistries()
	if err != nil {
		t.Fatalf("registries: %v", err)
	}
	return newTestService(t, MemoryStores(events))
}

func sqliteStores(t *testing.T, path string) Stores {
	t.Helper()
	_, events, err := encounter.NewRegistries()
	if err != nil {
		t.Fatalf("registries: %v", err)
	}
	stores, err := OpenStores(path, events)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(func() {
		_ = stores.Close()
	})
	return stores
}

func newCommand(t *testing.T, cmdType command.Type, actorType command.ActorType, actorID string, payload any) command.Command {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return command.Command{
		EncounterID: testEncounterID,
		Type:        cmdType,
		ActorType:   actorType,
		ActorID:     actorID,
		PayloadJSON: data,
	}
}

func execute(t *testing.T, service *Service, cmd command.Command) engine.Result {
	t.Helper()
	result, err := service.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("execute %s: %v", cmd.Type, err)
	}
	return result
}

func accept(t *testing.T, service *Service, cmd command.Command) engine.Result {
	t.Helper()
	result := execute(t, service, cmd)
	if result.Decision.Rejected() {
		t.Fatalf("%s rejected: %+v", cmd.Type, result.Decision.Rejections)
	}
	return result
}

func gm(t *testing.T, cmdType command.Type, payload any) command.Command {
	t.Helper()
	return newCommand(t, cmdType, command.ActorTypeGM, "gm-1", payload)
}

// seedScenario registers Ayla and Bram (allied, owned by players) and
// Cinder (an enemy monster), then starts combat with the allies first.
func seedScenario(t *testing.T, service *Service) {
	t.Helper()
	accept(t, service, gm(t, encounter.CommandTypeCreate, encounter.CreatePayload{Name: "Bridge ambush"}))
	accept(t, service, gm(t, encounter.CommandTypeActorRegister, encounter.ActorRegisterPayload{ActorID: "act-a", Name: "Ayla", Type: actor.TypeCharacter, OwnerID: "player-a", Level: 3, BaseHealth: 20}))
	accept(t, service, gm(t, encounter.CommandTypeActorRegister, encounter.ActorRegisterPayload{ActorID: "act-b", Name: "Bram", Type: actor.TypeCharacter, OwnerID: "player-b", Level: 3, BaseHealth: 20}))
	accept(t, service, gm(t, encounter.CommandTypeActorRegister, encounter.ActorRegisterPayload{ActorID: "act-c", Name: "Cinder", Type: actor.TypeMonster, Level: 4, BaseHealth: 30}))
	accept(t, service, gm(t, encounter.CommandTypeCombatantAdd, encounter.CombatantAddPayload{CombatantID: "cmb-a", ActorID: "act-a"}))
	accept(t, service, gm(t, encounter.CommandTypeCombatantAdd, encounter.CombatantAddPayload{CombatantID: "cmb-b", ActorID: "act-b"}))
	accept(t, service, gm(t, encounter.CommandTypeCombatantAdd, encounter.CombatantAddPayload{CombatantID: "cmb-c", ActorID: "act-c"}))
	accept(t, service, gm(t, encounter.CommandTypeCombatStart, encounter.CombatStartPayload{FirstFaction: string(combatant.FactionAllied)}))
}

func turn(t *testing.T, service *Service, actorType command.ActorType, actorID, combatantID string) {
	t.Helper()
	ref := encounter.CombatantRefPayload{CombatantID: combatantID}
	accept(t, service, newCommand(t, encounter.CommandTypeTurnStart, actorType, actorID, ref))
	accept(t, service, newCommand(t, encounter.CommandTypeTurnEnd, actorType, actorID, ref))
}

func loadState(t *testing.T, service *Service) encounter.State {
	t.Helper()
	state, err := service.State(context.Background(), testEncounterID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return state
}

func containsKind(notifications []notify.Notification, kind notify.Kind) bool {
	for _, n := range notifications {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

func TestServiceRunsFullRound(t *testing.T) {
	tests := []struct {
		name   string
		stores func(t *testing.T) Stores
	}{
		{name: "memory", stores: func(t *testing.T) Stores {
			_, events, err := encounter.NewRegistries()
			if err != nil {
				t.Fatalf("registries: %v", err)
			}
			return MemoryStores(events)
		}},
		{name: "sqlite", stores: func(t *testing.T) Stores {
			return sqliteStores(t, filepath.Join(t.TempDir(), "encounter.db"))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := newTestService(t, tc.stores(t))
			var published []notify.Notification
			service.Bus().Subscribe(func(_ context.Context, n notify.Notification) {
				published = append(published, n)
			})
			seedScenario(t, service)

			turn(t, service, command.ActorTypeParticipant, "player-a", "cmb-a")
			state := loadState(t, service)
			if diff := cmp.Diff([]string{"cmb-a"}, state.TurnsTaken(1)); diff != "" {
				t.Fatalf("turns taken mismatch (-want +got):\n%s", diff)
			}

			turn(t, service, command.ActorTypeParticipant, "player-b", "cmb-b")
			state = loadState(t, service)
			if state.CurrentFactionTurn != combatant.FactionEnemy {
				t.Fatalf("faction = %s, want %s", state.CurrentFactionTurn, combatant.FactionEnemy)
			}

			turn(t, service, command.ActorTypeGM, "gm-1", "cmb-c")
			state = loadState(t, service)
			if state.Round != 2 {
				t.Fatalf("round = %d, want 2", state.Round)
			}
			if state.CurrentFactionTurn != combatant.FactionAllied {
				t.Fatalf("faction = %s, want %s", state.CurrentFactionTurn, combatant.FactionAllied)
			}
			if len(state.TurnsTaken(2)) != 0 || len(state.StartedTurnIDs) != 0 || state.ActiveCombatantID != "" {
				t.Fatalf("round 2 tracking not cleared: %+v", state)
			}

			for _, kind := range []notify.Kind{notify.KindStartOfCombat, notify.KindStartOfTurn, notify.KindEndOfTurn, notify.KindTurnChanged, notify.KindEndOfRound, notify.KindRoundAdvanced} {
				if !containsKind(published, kind) {
					t.Fatalf("missing %s notification", kind)
				}
			}
		})
	}
}

func TestServiceRejectionLeavesStateUnchanged(t *testing.T) {
	service := memoryService(t)
	seedScenario(t, service)
	before := loadState(t, service)

	var published []notify.Notification
	service.Bus().Subscribe(func(_ context.Context, n notify.Notification) {
		published = append(published, n)
	})
	result := execute(t, service, gm(t, encounter.CommandTypeTurnStart, encounter.CombatantRefPayload{CombatantID: "cmb-c"}))
	if !result.Decision.Rejected() {
		t.Fatal("expected rejection")
	}
	if code := result.Decision.Rejections[0].Code; code != string(apperrors.CodePhaseViolation) {
		t.Fatalf("code = %s, want %s", code, apperrors.CodePhaseViolation)
	}
	if len(published) != 0 {
		t.Fatalf("published = %d, want 0", len(published))
	}
	if diff := cmp.Diff(before, loadState(t, service)); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestServiceAppliesDefaultPolicy(t *testing.T) {
	_, events, err := encounter.NewRegistries()
	if err != nil {
		t.Fatalf("registries: %v", err)
	}
	custom := encounter.Policy{SkipDefeatedPhase: false, SkipDefeatedRound: true, ConfirmFixedExpiry: true}
	service, err := NewService(ServiceConfig{
		Stores:        MemoryStores(events),
		Logger:        zerolog.Nop(),
		NewID:         id.Sequence("id"),
		Now:           fixedNow,
		DefaultPolicy: &custom,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	accept(t, service, gm(t, encounter.CommandTypeCreate, encounter.CreatePayload{Name: "Custom"}))
	if got := loadState(t, service).Policy; got != custom {
		t.Fatalf("policy = %+v, want %+v", got, custom)
	}

	explicit := encounter.Policy{SkipDefeatedPhase: true}
	other := gm(t, encounter.CommandTypeCreate, encounter.CreatePayload{Name: "Explicit", Policy: &explicit})
	other.EncounterID = "enc-2"
	accept(t, service, other)
	state, err := service.State(context.Background(), "enc-2")
	if err != nil {
		t.Fatalf("load enc-2: %v", err)
	}
	if state.Policy != explicit {
		t.Fatalf("policy = %+v, want %+v", state.Policy, explicit)
	}
}

func TestServiceStateNotFound(t *testing.T) {
	service := memoryService(t)
	_, err := service.Projection(context.Background(), "missing")
	if code := apperrors.CodeOf(err); code != apperrors.CodeEncounterNotFound {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeEncounterNotFound)
	}
}

func TestServiceProjection(t *testing.T) {
	service := memoryService(t)
	seedScenario(t, service)
	accept(t, service, newCommand(t, encounter.CommandTypeTurnStart, command.ActorTypeParticipant, "player-b", encounter.CombatantRefPayload{CombatantID: "cmb-b"}))

	projection, err := service.Projection(context.Background(), testEncounterID)
	if err != nil {
		t.Fatalf("projection: %v", err)
	}
	if projection.ActiveCombatantID != "cmb-b" || projection.CurrentFactionTurn != combatant.FactionAllied {
		t.Fatalf("projection = %+v", projection)
	}
	allied := projection.Factions[combatant.FactionAllied]
	if len(allied) != 2 || allied[0].Name != "Ayla" || allied[1].Name != "Bram" {
		t.Fatalf("allied = %+v", allied)
	}
	if !projection.PerCombatant["cmb-b"].IsActiveTurn || projection.PerCombatant["cmb-a"].IsActiveTurn {
		t.Fatalf("per combatant = %+v", projection.PerCombatant)
	}
}

func TestServiceReplaysSQLiteAfterRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encounter.db")
	first := newTestService(t, sqliteStores(t, path))
	seedScenario(t, first)
	turn(t, first, command.ActorTypeParticipant, "player-a", "cmb-a")
	want := loadState(t, first)

	second := newTestService(t, sqliteStores(t, path))
	got := loadState(t, second)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("replayed state mismatch (-want +got):\n%s", diff)
	}

	events, err := second.Events(context.Background(), testEncounterID, `type = "turn.started"`, 0)
	if err != nil {
		t.Fatalf("filtered events: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != "cmb-a" {
		t.Fatalf("events = %+v", events)
	}
}

func TestServiceEventsRequiresSQLite(t *testing.T) {
	service := memoryService(t)
	if _, err := service.Events(context.Background(), testEncounterID, "", 0); !errors.Is(err, ErrQueryUnsupported) {
		t.Fatalf("err = %v, want %v", err, ErrQueryUnsupported)
	}
}

func TestServicePanicsWhenNotAuthoritative(t *testing.T) {
	_, events, err := encounter.NewRegistries()
	if err != nil {
		t.Fatalf("registries: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Stores:    MemoryStores(events),
		Authority: engine.StaticAuthority(false),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer func() {
		if recovered := recover(); recovered != engine.ErrNotAuthoritative {
			t.Fatalf("recovered = %v, want %v", recovered, engine.ErrNotAuthoritative)
		}
		// The writer lock must be released by the panic.
		done := make(chan struct{})
		go func() {
			service.mu.Lock()
			service.mu.Unlock()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("service lock held after panic")
		}
	}()
	_, _ = service.Execute(context.Background(), gm(t, encounter.CommandTypeCreate, encounter.CreatePayload{}))
}

func TestNewServiceRequiresStores(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatal("expected error for missing stores")
	}
}

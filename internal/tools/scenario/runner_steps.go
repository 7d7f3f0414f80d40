package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "encounter":
		return r.runEncounterStep(ctx, state, step)
	case "configure":
		return r.runConfigureStep(ctx, state, step)
	case "actor":
		return r.runActorStep(ctx, state, step)
	case "combatant":
		return r.runCombatantStep(ctx, state, step)
	case "remove_combatant":
		return r.runCombatantRefStep(ctx, state, step, encounter.CommandTypeCombatantRemove)
	case "start_combat":
		return r.runStartCombatStep(ctx, state, step)
	case "end_combat":
		_, err := r.execute(ctx, state, step, encounter.CommandTypeCombatEnd, struct{}{})
		return err
	case "start_turn":
		return r.runCombatantRefStep(ctx, state, step, encounter.CommandTypeTurnStart)
	case "end_turn":
		return r.runCombatantRefStep(ctx, state, step, encounter.CommandTypeTurnEnd)
	case "advance_turn":
		_, err := r.execute(ctx, state, step, encounter.CommandTypeTurnAdvance, struct{}{})
		return err
	case "advance_round":
		_, err := r.execute(ctx, state, step, encounter.CommandTypeRoundAdvance, struct{}{})
		return err
	case "defeat":
		return r.runDefeatStep(ctx, state, step)
	case "hide":
		return r.runHideStep(ctx, state, step)
	case "apply_effect":
		return r.runApplyEffectStep(ctx, state, step)
	case "confirm_stage":
		return r.runConfirmStageStep(ctx, state, step)
	case "cancel_prompt":
		return r.runCancelPromptStep(ctx, state, step)
	case "resolve_expiry":
		return r.runResolveExpiryStep(ctx, state, step)
	case "remove_effect":
		return r.runRemoveEffectStep(ctx, state, step)
	case "damage":
		return r.runAmountStep(ctx, state, step, encounter.CommandTypeDamage)
	case "spend_stamina":
		return r.runAmountStep(ctx, state, step, encounter.CommandTypeSpendStamina)
	case "bloodloss":
		return r.runAmountStep(ctx, state, step, encounter.CommandTypeApplyBloodloss)
	case "undo_damage":
		return r.runUndoDamageStep(ctx, state, step)
	case "rest":
		return r.runRestStep(ctx, state, step)
	case "expect_turn":
		return r.runExpectTurnStep(ctx, state, step)
	case "expect_actor":
		return r.runExpectActorStep(ctx, state, step)
	case "expect_notification":
		return r.runExpectNotificationStep(state, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runEncounterStep(ctx context.Context, state *scenarioState, step Step) error {
	policy := encounter.DefaultPolicy()
	policy.SkipDefeatedPhase = optionalBool(step.Args, "skip_defeated_phase", policy.SkipDefeatedPhase)
	policy.SkipDefeatedRound = optionalBool(step.Args, "skip_defeated_round", policy.SkipDefeatedRound)
	policy.ConfirmFixedExpiry = optionalBool(step.Args, "confirm_fixed_expiry", policy.ConfirmFixedExpiry)
	_, err := r.execute(ctx, state, step, encounter.CommandTypeCreate, encounter.CreatePayload{
		Name:   optionalString(step.Args, "name", state.encounterID),
		Policy: &policy,
	})
	return err
}

func (r *Runner) runConfigureStep(ctx context.Context, state *scenarioState, step Step) error {
	_, err := r.execute(ctx, state, step, encounter.CommandTypeConfigure, encounter.ConfigurePayload{
		SkipDefeatedPhase:  boolPtr(step.Args, "skip_defeated_phase"),
		SkipDefeatedRound:  boolPtr(step.Args, "skip_defeated_round"),
		ConfirmFixedExpiry: boolPtr(step.Args, "confirm_fixed_expiry"),
	})
	return err
}

func (r *Runner) runActorStep(ctx context.Context, state *scenarioState, step Step) error {
	name := requiredString(step.Args, "name")
	if name == "" {
		return r.failf("actor name is required")
	}
	if _, exists := state.actors[name]; exists {
		return r.failf("actor %q already declared", name)
	}
	actorType := actor.Type(optionalString(step.Args, "type", string(actor.TypeCharacter)))
	if !actorType.Valid() {
		return r.failf("actor type %q is invalid", actorType)
	}
	actorID := "act-" + slug(name)
	result, err := r.execute(ctx, state, step, encounter.CommandTypeActorRegister, encounter.ActorRegisterPayload{
		ActorID:    actorID,
		Name:       name,
		Type:       actorType,
		OwnerID:    optionalString(step.Args, "owner", ""),
		Level:      optionalInt(step.Args, "level", 1),
		BaseHealth: optionalInt(step.Args, "base_health", 10),
		HealthMod:  optionalInt(step.Args, "health_mod", 0),
		StaminaMod: optionalInt(step.Args, "stamina_mod", 0),
		ManaMod:    optionalInt(step.Args, "mana_mod", 0),
		Aegis:      optionalInt(step.Args, "aegis", 0),
		Health:     intPtr(step.Args, "health"),
		Stamina:    intPtr(step.Args, "stamina"),
		Mana:       intPtr(step.Args, "mana"),
	})
	if err != nil || result.Decision.Rejected() {
		return err
	}
	state.actors[name] = actorID
	return nil
}

func (r *Runner) runCombatantStep(ctx context.Context, state *scenarioState, step Step) error {
	name := requiredString(step.Args, "name")
	if name == "" {
		return r.failf("combatant name is required")
	}
	if _, exists := state.combatants[name]; exists {
		return r.failf("combatant %q already declared", name)
	}
	var actorID string
	if actorName := requiredString(step.Args, "actor"); actorName != "" {
		var err error
		if actorID, err = r.actorID(state, actorName); err != nil {
			return err
		}
	}
	combatantID := "cmb-" + slug(name)
	result, err := r.execute(ctx, state, step, encounter.CommandTypeCombatantAdd, encounter.CombatantAddPayload{
		CombatantID:     combatantID,
		Name:            name,
		ActorID:         actorID,
		FactionOverride: optionalString(step.Args, "faction", ""),
		Disposition:     intPtr(step.Args, "disposition"),
		Hidden:          optionalBool(step.Args, "hidden", false),
	})
	if err != nil || result.Decision.Rejected() {
		return err
	}
	state.combatants[name] = combatantID
	return nil
}

func (r *Runner) runCombatantRefStep(ctx context.Context, state *scenarioState, step Step, cmdType command.Type) error {
	combatantID, err := r.combatantID(state, requiredString(step.Args, "name"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, cmdType, encounter.CombatantRefPayload{CombatantID: combatantID})
	return err
}

func (r *Runner) runStartCombatStep(ctx context.Context, state *scenarioState, step Step) error {
	_, err := r.execute(ctx, state, step, encounter.CommandTypeCombatStart, encounter.CombatStartPayload{
		FirstFaction: optionalString(step.Args, "first", ""),
		Cancelled:    optionalBool(step.Args, "cancelled", false),
	})
	return err
}

func (r *Runner) runDefeatStep(ctx context.Context, state *scenarioState, step Step) error {
	combatantID, err := r.combatantID(state, requiredString(step.Args, "name"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeSetDefeated, encounter.SetDefeatedPayload{
		CombatantID: combatantID,
		Defeated:    optionalBool(step.Args, "defeated", true),
	})
	return err
}

func (r *Runner) runHideStep(ctx context.Context, state *scenarioState, step Step) error {
	combatantID, err := r.combatantID(state, requiredString(step.Args, "name"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeSetHidden, encounter.SetHiddenPayload{
		CombatantID: combatantID,
		Hidden:      optionalBool(step.Args, "hidden", true),
	})
	return err
}

func (r *Runner) runApplyEffectStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	kind := requiredString(step.Args, "kind")
	if kind == "" {
		return r.failf("effect kind is required")
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeEffectApply, encounter.EffectApplyPayload{
		ActorID: actorID,
		Kind:    kind,
		Stage:   optionalInt(step.Args, "stage", 0),
	})
	return err
}

func (r *Runner) runConfirmStageStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	promptID, err := r.findPrompt(ctx, state, encounter.PromptStage, actorID, requiredString(step.Args, "kind"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeConfirmStage, encounter.ConfirmStagePayload{
		PromptID: promptID,
		Stage:    optionalInt(step.Args, "stage", 0),
	})
	return err
}

func (r *Runner) runCancelPromptStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	promptID, err := r.findPrompt(ctx, state, encounter.PromptStage, actorID, requiredString(step.Args, "kind"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeCancelPrompt, encounter.PromptRefPayload{PromptID: promptID})
	return err
}

func (r *Runner) runResolveExpiryStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	promptID, err := r.findPrompt(ctx, state, encounter.PromptExpiry, actorID, requiredString(step.Args, "kind"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeResolveExpiry, encounter.ResolveExpiryPayload{
		PromptID: promptID,
		Remove:   optionalBool(step.Args, "remove", true),
	})
	return err
}

func (r *Runner) runRemoveEffectStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	current, err := r.loadState(ctx, state)
	if err != nil {
		return err
	}
	a, _ := current.Actor(actorID)
	kind := requiredString(step.Args, "kind")
	var effectID string
	for _, effect := range a.Effects {
		if string(effect.Kind) == kind {
			effectID = effect.ID
			break
		}
	}
	if effectID == "" {
		effectID = optionalString(step.Args, "effect_id", "missing-"+kind)
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeEffectRemove, encounter.EffectRemovePayload{
		ActorID:  actorID,
		EffectID: effectID,
	})
	return err
}

func (r *Runner) runAmountStep(ctx context.Context, state *scenarioState, step Step, cmdType command.Type) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	amount, ok := readInt(step.Args, "amount")
	if !ok {
		return r.failf("amount is required")
	}
	_, err = r.execute(ctx, state, step, cmdType, encounter.AmountPayload{ActorID: actorID, Amount: amount})
	return err
}

func (r *Runner) runUndoDamageStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	records := state.damage[actorID]
	if len(records) == 0 {
		return r.failf("no damage recorded for %s", actorID)
	}
	damageID := records[len(records)-1]
	if _, err := r.execute(ctx, state, step, encounter.CommandTypeUndoDamage, encounter.UndoDamagePayload{DamageID: damageID}); err != nil {
		return err
	}
	state.damage[actorID] = records[:len(records)-1]
	return nil
}

func (r *Runner) runRestStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	_, err = r.execute(ctx, state, step, encounter.CommandTypeRest, encounter.ActorRefPayload{ActorID: actorID})
	return err
}

func (r *Runner) runExpectTurnStep(ctx context.Context, state *scenarioState, step Step) error {
	current, err := r.loadState(ctx, state)
	if err != nil {
		return err
	}
	if round, ok := readInt(step.Args, "round"); ok && current.Round != round {
		return r.assertf("round = %d, want %d", current.Round, round)
	}
	if phase := requiredString(step.Args, "phase"); phase != "" {
		want, err := combatant.ParseFaction(phase)
		if err != nil {
			return r.failf("expect_turn phase: %v", err)
		}
		if current.CurrentFactionTurn != want {
			return r.assertf("phase = %s, want %s", current.CurrentFactionTurn, want)
		}
	}
	if active, ok := step.Args["active"]; ok {
		want := ""
		if name, _ := active.(string); name != "" {
			if want, err = r.combatantID(state, name); err != nil {
				return err
			}
		}
		if current.ActiveCombatantID != want {
			return r.assertf("active combatant = %q, want %q", current.ActiveCombatantID, want)
		}
	}
	if started, ok := readBool(step.Args, "started"); ok {
		running := current.Started && !current.Ended
		if running != started {
			return r.assertf("combat running = %v, want %v", running, started)
		}
	}
	if names, ok := readStringSlice(step.Args, "acted"); ok {
		want := make([]string, 0, len(names))
		for _, name := range names {
			id, err := r.combatantID(state, name)
			if err != nil {
				return err
			}
			want = append(want, id)
		}
		got := append([]string{}, current.TurnsTaken(current.Round)...)
		sort.Strings(want)
		sort.Strings(got)
		if diff := cmp.Diff(want, got); diff != "" {
			return r.assertf("turns taken mismatch (-want +got):\n%s", diff)
		}
	}
	return nil
}

func (r *Runner) runExpectActorStep(ctx context.Context, state *scenarioState, step Step) error {
	actorID, err := r.actorID(state, requiredString(step.Args, "target"))
	if err != nil {
		return err
	}
	current, err := r.loadState(ctx, state)
	if err != nil {
		return err
	}
	a, ok := current.Actor(actorID)
	if !ok {
		return r.failf("actor %s missing from encounter", actorID)
	}
	checks := []struct {
		key string
		got int
	}{
		{key: "health", got: a.Health.Value},
		{key: "max_health", got: a.Health.Max},
		{key: "stamina", got: a.Stamina.Value},
		{key: "max_stamina", got: a.Stamina.Max},
		{key: "mana", got: a.Mana.Value},
		{key: "max_mana", got: a.Mana.Max},
	}
	for _, check := range checks {
		if want, ok := readInt(step.Args, check.key); ok && check.got != want {
			return r.assertf("%s %s = %d, want %d", a.Name, check.key, check.got, want)
		}
	}
	if want, ok := readStringSlice(step.Args, "effects"); ok {
		got := make([]string, 0, len(a.Effects))
		for _, kind := range a.ActiveKinds() {
			got = append(got, string(kind))
		}
		sort.Strings(want)
		sort.Strings(got)
		if diff := cmp.Diff(want, got); diff != "" {
			return r.assertf("%s effects mismatch (-want +got):\n%s", a.Name, diff)
		}
	}
	return nil
}

// runExpectNotificationStep checks the notifications published by the most
// recent command.
func (r *Runner) runExpectNotificationStep(state *scenarioState, step Step) error {
	kind := notify.Kind(requiredString(step.Args, "kind"))
	if kind == "" {
		return r.failf("notification kind is required")
	}
	state.mu.Lock()
	seen := append([]notify.Notification(nil), state.notifications...)
	state.mu.Unlock()

	absent := optionalBool(step.Args, "absent", false)
	for _, n := range seen {
		if n.Kind == kind {
			if absent {
				return r.assertf("unexpected %s notification", kind)
			}
			if summary := requiredString(step.Args, "summary"); summary != "" && n.Summary != summary {
				return r.assertf("%s summary = %q, want %q", kind, n.Summary, summary)
			}
			return nil
		}
	}
	if absent {
		return nil
	}
	return r.assertf("missing %s notification", kind)
}

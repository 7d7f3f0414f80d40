package effects

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

const (
	burningDamage      = 3
	burningReduction   = 1
	poisonDamage       = 2
	poisonDamageStage  = 2
	poisonStaminaStage = 3
	poisonLethalStage  = 4
	poisonLethalRounds = 3
	frozenRounds       = 3
	shockedRounds      = 1
)

func builtinDefinitions() []Definition {
	return []Definition{
		{
			Kind:   condition.Poison,
			Apply:  cancelWhenAegis,
			Stages: StageRange{Min: 1, Max: 4},
			Expiry: Expiry{Kind: ExpiryEscalation, Rounds: poisonLethalRounds},
			TurnStart: &Hook{Guard: combatant.MarkerPoisonDamage, Run: func(ctx HookContext) []Change {
				if ctx.Actor.HighestStage(condition.Poison) < poisonDamageStage {
					return nil
				}
				return []Change{{Type: ChangeDamage, Source: condition.Poison, Amount: poisonDamage}}
			}},
			RoundEnd: &Hook{Run: poisonEscalation},
			Modifiers: func(effect actor.Effect, _ actor.State) Modifiers {
				var m Modifiers
				if effect.Stage == 1 {
					m.Roll2d6 = -1
				}
				if effect.Stage >= poisonStaminaStage {
					m.MaxStamina = -1
				}
				return m
			},
		},
		{
			Kind:     condition.Burning,
			Excludes: []Exclusion{{Existing: condition.Soaked, Action: CancelIncoming}, {Existing: condition.Frozen, Action: EvictExisting}},
			TurnStart: &Hook{Guard: combatant.MarkerBurningDamage, Run: func(HookContext) []Change {
				return []Change{{Type: ChangeDamage, Source: condition.Burning, Amount: burningDamage}}
			}},
			TurnEnd: &Hook{Guard: combatant.MarkerBurningReduction, Run: func(HookContext) []Change {
				return []Change{{Type: ChangeMaxReduction, Source: condition.Burning, Amount: burningReduction}}
			}},
		},
		{
			Kind:     condition.Frozen,
			Excludes: []Exclusion{{Existing: condition.Burning, Action: CancelIncoming}},
			Expiry:   Expiry{Kind: ExpiryCounted, Rounds: frozenRounds},
			Modifiers: func(actor.Effect, actor.State) Modifiers {
				return Modifiers{Running: -3, Attack: -2}
			},
		},
		{
			Kind:   condition.Bleeding,
			Apply:  cancelWhenAegis,
			Stages: StageRange{Min: 1, Max: 5},
			TurnStart: &Hook{Guard: combatant.MarkerBleedingDamage, Run: func(ctx HookContext) []Change {
				stage := ctx.Actor.HighestStage(condition.Bleeding)
				if stage <= 0 {
					return nil
				}
				return []Change{{Type: ChangeDamage, Source: condition.Bleeding, Amount: stage}}
			}},
		},
		{
			Kind:          condition.Exhaustion,
			Stages:        StageRange{Min: 1, Max: 5},
			Expiry:        Expiry{Kind: ExpiryManual},
			RemovedByRest: true,
			Modifiers: func(effect actor.Effect, _ actor.State) Modifiers {
				return Modifiers{
					MaxStamina: -effect.Stage,
					Talents:    -2 * effect.Stage,
					Senses:     -2 * effect.Stage,
				}
			},
		},
		{
			Kind:   condition.Haggard,
			Apply:  inertOnMonster,
			Stages: StageRange{Min: 1, Max: 4},
			Modifiers: func(effect actor.Effect, _ actor.State) Modifiers {
				return Modifiers{CoreStats: -effect.Stage}
			},
		},
		{
			Kind:                   condition.Stunned,
			ConsumedByStaminaSpend: true,
			Modifiers: func(actor.Effect, actor.State) Modifiers {
				return Modifiers{StaminaCost: 2}
			},
		},
		{Kind: condition.Blinded, Modifiers: blindness},
		{Kind: condition.Senseless, Modifiers: blindness},
		{Kind: condition.Confused, Modifiers: flagged(FlagInterceptsFocus)},
		{Kind: condition.Mute, Expiry: Expiry{Kind: ExpiryManual}, Modifiers: flagged(FlagBlocksHexes)},
		{Kind: condition.Grappled, Expiry: Expiry{Kind: ExpiryManual}, Modifiers: flagged(FlagBlocksEvasion)},
		{
			Kind:   condition.Shocked,
			Expiry: Expiry{Kind: ExpiryFixed, Rounds: shockedRounds},
			Modifiers: func(actor.Effect, actor.State) Modifiers {
				return Modifiers{Dodge: -2, Attack: -2}
			},
		},
		{
			Kind: condition.Influenced,
			Modifiers: func(actor.Effect, actor.State) Modifiers {
				return Modifiers{Attack: 1}
			},
		},
		{Kind: condition.Horrified, Modifiers: flagged(FlagPoorRolls)},
		{Kind: condition.Panicked, Modifiers: flagged(FlagShiftsQuality)},
		{
			Kind: condition.Energized,
			Modifiers: func(actor.Effect, actor.State) Modifiers {
				return Modifiers{Running: 3, Dodge: 1}
			},
		},
		{Kind: condition.Bangleless},
		{
			Kind:     condition.Soaked,
			Excludes: []Exclusion{{Existing: condition.Burning, Action: EvictExisting}},
		},
		{Kind: condition.Unconscious},
	}
}

// poisonEscalation counts roundEnds for a stage 4 poison and converts it
// into Unconscious on the last one.
func poisonEscalation(ctx HookContext) []Change {
	if ctx.Effect.Stage < poisonLethalStage {
		return nil
	}
	elapsed := ctx.Effect.RoundsElapsed + 1
	if elapsed < poisonLethalRounds {
		return []Change{{
			Type:          ChangeAdvanceCounter,
			EffectID:      ctx.Effect.ID,
			Kind:          condition.Poison,
			RoundsElapsed: elapsed,
		}}
	}
	var out []Change
	if !ctx.Actor.HasEffect(condition.Unconscious) {
		out = append(out, Change{Type: ChangeAddEffect, Kind: condition.Unconscious, Source: condition.Poison})
	}
	return append(out, Change{
		Type:     ChangeRemoveEffect,
		EffectID: ctx.Effect.ID,
		Kind:     condition.Poison,
		Reason:   "escalated",
	})
}

func blindness(actor.Effect, actor.State) Modifiers {
	return Modifiers{Dodge: -3, Evade: -3}
}

func flagged(flag Flag) func(actor.Effect, actor.State) Modifiers {
	return func(actor.Effect, actor.State) Modifiers {
		return Modifiers{Flags: []Flag{flag}}
	}
}

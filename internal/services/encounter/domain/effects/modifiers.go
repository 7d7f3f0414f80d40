package effects

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
)

// Flag is a non-numeric rules modifier.
type Flag string

const (
	FlagBlocksHexes     Flag = "blocks_hexes"
	FlagBlocksEvasion   Flag = "blocks_evasion"
	FlagInterceptsFocus Flag = "intercepts_focus"
	FlagPoorRolls       Flag = "poor_rolls"
	FlagShiftsQuality   Flag = "shifts_quality"
)

// Modifiers are the roll and maximum deltas contributed by active effects.
type Modifiers struct {
	MaxHealth  int `json:"max_health,omitempty"`
	MaxStamina int `json:"max_stamina,omitempty"`
	Talents    int `json:"talents,omitempty"`
	Senses     int `json:"senses,omitempty"`
	CoreStats  int `json:"core_stats,omitempty"`
	Running    int `json:"running,omitempty"`
	Attack     int `json:"attack,omitempty"`
	Dodge      int `json:"dodge,omitempty"`
	Evade      int `json:"evade,omitempty"`
	Roll2d6    int `json:"roll_2d6,omitempty"`
	// StaminaCost is added to every stamina spend.
	StaminaCost int    `json:"stamina_cost,omitempty"`
	Flags       []Flag `json:"flags,omitempty"`
}

// Add returns the sum of m and other, with flags deduplicated.
func (m Modifiers) Add(other Modifiers) Modifiers {
	out := Modifiers{
		MaxHealth:   m.MaxHealth + other.MaxHealth,
		MaxStamina:  m.MaxStamina + other.MaxStamina,
		Talents:     m.Talents + other.Talents,
		Senses:      m.Senses + other.Senses,
		CoreStats:   m.CoreStats + other.CoreStats,
		Running:     m.Running + other.Running,
		Attack:      m.Attack + other.Attack,
		Dodge:       m.Dodge + other.Dodge,
		Evade:       m.Evade + other.Evade,
		Roll2d6:     m.Roll2d6 + other.Roll2d6,
		StaminaCost: m.StaminaCost + other.StaminaCost,
	}
	seen := map[Flag]bool{}
	for _, flag := range append(append([]Flag(nil), m.Flags...), other.Flags...) {
		if seen[flag] {
			continue
		}
		seen[flag] = true
		out.Flags = append(out.Flags, flag)
	}
	return out
}

// Has reports whether flag is set.
func (m Modifiers) Has(flag Flag) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Modifiers sums the modifiers of every non-inert effect on a.
func (r *Registry) Modifiers(a actor.State) Modifiers {
	var total Modifiers
	if r == nil {
		return total
	}
	for _, effect := range a.Effects {
		if effect.Inert {
			continue
		}
		def, ok := r.definitions[effect.Kind]
		if !ok || def.Modifiers == nil {
			continue
		}
		total = total.Add(def.Modifiers(effect, a))
	}
	return total
}

// Adjustments returns the maximum deltas the actor's effects impose.
func (r *Registry) Adjustments(a actor.State) actor.Adjustments {
	mods := r.Modifiers(a)
	return actor.Adjustments{MaxHealth: mods.MaxHealth, MaxStamina: mods.MaxStamina}
}

// Recompute rederives a's maxima from scratch with its current effects.
func (r *Registry) Recompute(a actor.State) actor.State {
	return actor.Recompute(a, r.Adjustments(a))
}

package actor

// Adjustments are condition-driven deltas to the derived maxima. They are
// summed fresh on every recompute, never applied once and remembered.
type Adjustments struct {
	MaxHealth  int
	MaxStamina int
	MaxMana    int
}

// Add returns the sum of a and other.
func (a Adjustments) Add(other Adjustments) Adjustments {
	return Adjustments{
		MaxHealth:  a.MaxHealth + other.MaxHealth,
		MaxStamina: a.MaxStamina + other.MaxStamina,
		MaxMana:    a.MaxMana + other.MaxMana,
	}
}

// Recompute derives all maxima from base values, health reductions and adj,
// then clamps current values into range.
func Recompute(s State, adj Adjustments) State {
	s.Health.Max = atLeastZero(s.BaseHealth + s.HealthMod - s.BurningReduction - s.BloodlossReduction + adj.MaxHealth)
	s.Stamina.Max = atLeastZero(StaminaBase(s.Level) + s.StaminaMod + adj.MaxStamina)
	s.Mana.Max = atLeastZero(ManaBase(s.Level) + s.ManaMod + adj.MaxMana)

	s.Health.Value = clamp(s.Health.Value, s.Health.Max)
	s.Stamina.Value = clamp(s.Stamina.Value, s.Stamina.Max)
	s.Mana.Value = clamp(s.Mana.Value, s.Mana.Max)
	return s
}

// StaminaBase is the level-derived stamina pool.
func StaminaBase(level int) int {
	switch {
	case level <= 0:
		return 0
	case level <= 3:
		return 2
	case level <= 6:
		return 3
	case level <= 10:
		return 4
	default:
		return 5
	}
}

// ManaBase is the level-derived mana pool.
func ManaBase(level int) int {
	switch {
	case level <= 0:
		return 0
	case level <= 2:
		return 3
	case level == 3:
		return 4
	case level == 4:
		return 5
	case level <= 6:
		return 6
	case level <= 8:
		return 8
	case level <= 10:
		return 10
	case level <= 12:
		return 12
	case level <= 14:
		return 15
	default:
		return 18
	}
}

func atLeastZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

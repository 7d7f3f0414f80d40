// Package combatant models an encounter participant bound to an actor.
package combatant

import (
	"fmt"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
)

// Faction is the side a combatant acts for.
type Faction string

const (
	// FactionNone means no faction is acting.
	FactionNone Faction = ""
	// FactionAllied is the player side.
	FactionAllied Faction = "ALLIED"
	// FactionEnemy is the adversary side.
	FactionEnemy Faction = "ENEMY"
)

// ParseFaction normalizes s into a faction.
func ParseFaction(s string) (Faction, error) {
	switch Faction(strings.ToUpper(strings.TrimSpace(s))) {
	case FactionAllied:
		return FactionAllied, nil
	case FactionEnemy:
		return FactionEnemy, nil
	}
	return FactionNone, fmt.Errorf("unknown faction %q", s)
}

// Opposite returns the other faction. FactionNone has no opposite.
func (f Faction) Opposite() Faction {
	switch f {
	case FactionAllied:
		return FactionEnemy
	case FactionEnemy:
		return FactionAllied
	}
	return FactionNone
}

// Factions lists both factions in display order.
var Factions = []Faction{FactionAllied, FactionEnemy}

// DispositionFriendly is the token disposition that resolves to allied.
const DispositionFriendly = 1

// TurnsPerRound is fixed: every combatant acts once per round.
const TurnsPerRound = 1

// ResolveFaction applies the faction priority: explicit override, then the
// actor type, then the token disposition, then allied.
func ResolveFaction(override Faction, actorType actor.Type, disposition *int) Faction {
	if override == FactionAllied || override == FactionEnemy {
		return override
	}
	switch actorType {
	case actor.TypeMonster:
		return FactionEnemy
	case actor.TypeCharacter, actor.TypeNPC:
		return FactionAllied
	}
	if disposition != nil {
		if *disposition == DispositionFriendly {
			return FactionAllied
		}
		return FactionEnemy
	}
	return FactionAllied
}

// Marker is a one-shot "already applied this turn" flag.
type Marker string

const (
	MarkerPoisonDamage     Marker = "poison_damage"
	MarkerBleedingDamage   Marker = "bleeding_damage"
	MarkerBurningDamage    Marker = "burning_damage"
	MarkerBurningReduction Marker = "burning_reduction"
)

// State is a combatant as folded from encounter events.
type State struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ActorID         string          `json:"actor_id,omitempty"`
	Faction         Faction         `json:"faction"`
	FactionOverride Faction         `json:"faction_override,omitempty"`
	Disposition     *int            `json:"disposition,omitempty"`
	Defeated        bool            `json:"defeated,omitempty"`
	Hidden          bool            `json:"hidden,omitempty"`
	Markers         map[Marker]bool `json:"markers,omitempty"`
}

// Clone returns a copy that shares no maps with s.
func (s State) Clone() State {
	if s.Markers != nil {
		markers := make(map[Marker]bool, len(s.Markers))
		for k, v := range s.Markers {
			markers[k] = v
		}
		s.Markers = markers
	}
	if s.Disposition != nil {
		disposition := *s.Disposition
		s.Disposition = &disposition
	}
	return s
}

// HasMarker reports whether marker is set.
func (s State) HasMarker(marker Marker) bool {
	return s.Markers[marker]
}

// Eligible reports whether the combatant may take a turn: not defeated,
// visible and linked to an existing actor.
func (s State) Eligible(actorLinked bool) bool {
	return !s.Defeated && !s.Hidden && s.ActorID != "" && actorLinked
}

// Counted reports whether the combatant participates in completion checks.
// With skipDefeated false, a defeated combatant still counts and must take
// its turn, or be advanced past by the GM, before the check completes.
func (s State) Counted(actorLinked, skipDefeated bool) bool {
	if s.Hidden || s.ActorID == "" || !actorLinked {
		return false
	}
	return !s.Defeated || !skipDefeated
}

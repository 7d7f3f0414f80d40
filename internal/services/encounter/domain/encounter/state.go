package encounter

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/actor"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// recentlyActiveLimit bounds RecentlyActiveIDs.
const recentlyActiveLimit = 5

// Policy holds the per-encounter rule switches.
type Policy struct {
	// SkipDefeatedPhase excludes defeated combatants from phase completion
	// and the next-phase tie-break.
	SkipDefeatedPhase bool `json:"skip_defeated_phase"`
	// SkipDefeatedRound excludes defeated combatants from round completion.
	SkipDefeatedRound bool `json:"skip_defeated_round"`
	// ConfirmFixedExpiry turns fixed-duration expiry into a prompt.
	ConfirmFixedExpiry bool `json:"confirm_fixed_expiry"`
}

// DefaultPolicy skips defeated combatants for both checks and expires fixed
// durations without asking.
func DefaultPolicy() Policy {
	return Policy{SkipDefeatedPhase: true, SkipDefeatedRound: true}
}

// PromptKind distinguishes pending confirmations.
type PromptKind string

const (
	// PromptStage asks for the stage of a stage-scaled application.
	PromptStage PromptKind = "stage"
	// PromptExpiry asks whether a fixed-duration effect should end.
	PromptExpiry PromptKind = "expiry"
)

// Prompt is a pending confirmation token.
type Prompt struct {
	ID        string         `json:"id"`
	Kind      PromptKind     `json:"kind"`
	ActorID   string         `json:"actor_id"`
	Condition condition.Kind `json:"condition"`
	EffectID  string         `json:"effect_id,omitempty"`
	Min       int            `json:"min,omitempty"`
	Max       int            `json:"max,omitempty"`
}

// DamageRecord is an undoable health delta.
type DamageRecord struct {
	ID      string `json:"id"`
	ActorID string `json:"actor_id"`
	Amount  int    `json:"amount"`
}

// State is the replayed encounter aggregate.
type State struct {
	EncounterID        string                     `json:"encounter_id"`
	Name               string                     `json:"name,omitempty"`
	Created            bool                       `json:"created"`
	Started            bool                       `json:"started"`
	Ended              bool                       `json:"ended"`
	Round              int                        `json:"round"`
	CurrentFactionTurn combatant.Faction          `json:"current_faction_turn,omitempty"`
	FirstFactionTurn   combatant.Faction          `json:"first_faction_turn,omitempty"`
	ActiveCombatantID  string                     `json:"active_combatant_id,omitempty"`
	TurnsTakenByRound  map[int][]string           `json:"turns_taken_by_round,omitempty"`
	StartedTurnIDs     []string                   `json:"started_turn_ids,omitempty"`
	RecentlyActiveIDs  []string                   `json:"recently_active_ids,omitempty"`
	Policy             Policy                     `json:"policy"`
	Combatants         map[string]combatant.State `json:"combatants,omitempty"`
	Actors             map[string]actor.State     `json:"actors,omitempty"`
	Prompts            map[string]Prompt          `json:"prompts,omitempty"`
	Damage             map[string]DamageRecord    `json:"damage,omitempty"`
}

// NewState returns an empty state for encounterID with the default policy.
func NewState(encounterID string) State {
	return State{EncounterID: encounterID, Policy: DefaultPolicy()}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s.TurnsTakenByRound != nil {
		turns := make(map[int][]string, len(s.TurnsTakenByRound))
		for round, ids := range s.TurnsTakenByRound {
			turns[round] = cloneIDs(ids)
		}
		s.TurnsTakenByRound = turns
	}
	s.StartedTurnIDs = cloneIDs(s.StartedTurnIDs)
	s.RecentlyActiveIDs = cloneIDs(s.RecentlyActiveIDs)
	if s.Combatants != nil {
		combatants := make(map[string]combatant.State, len(s.Combatants))
		for id, c := range s.Combatants {
			combatants[id] = c.Clone()
		}
		s.Combatants = combatants
	}
	if s.Actors != nil {
		actors := make(map[string]actor.State, len(s.Actors))
		for id, a := range s.Actors {
			actors[id] = a.Clone()
		}
		s.Actors = actors
	}
	if s.Prompts != nil {
		prompts := make(map[string]Prompt, len(s.Prompts))
		for id, p := range s.Prompts {
			prompts[id] = p
		}
		s.Prompts = prompts
	}
	if s.Damage != nil {
		damage := make(map[string]DamageRecord, len(s.Damage))
		for id, d := range s.Damage {
			damage[id] = d
		}
		s.Damage = damage
	}
	return s
}

// CloneSnapshot implements checkpoint.Cloner.
func (s State) CloneSnapshot() any {
	return s.Clone()
}

// DecodeSnapshot restores a State persisted as JSON by a snapshot store.
func DecodeSnapshot(data []byte) (any, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode encounter snapshot: %w", err)
	}
	return state, nil
}

// Combatant returns the combatant with id.
func (s State) Combatant(id string) (combatant.State, bool) {
	c, ok := s.Combatants[id]
	return c, ok
}

// Actor returns the actor with id.
func (s State) Actor(id string) (actor.State, bool) {
	a, ok := s.Actors[id]
	return a, ok
}

// actorLinked reports whether c points at a registered actor.
func (s State) actorLinked(c combatant.State) bool {
	if c.ActorID == "" {
		return false
	}
	_, ok := s.Actors[c.ActorID]
	return ok
}

// Eligible reports whether c may take a turn. A defeated combatant stays
// eligible while either skip-defeated flag is off, because a completion
// check then waits on it.
func (s State) Eligible(c combatant.State) bool {
	if c.Eligible(s.actorLinked(c)) {
		return true
	}
	return c.Defeated && s.Counted(c, s.Policy.SkipDefeatedPhase && s.Policy.SkipDefeatedRound)
}

// TurnsTaken returns the ids that ended their turn in round.
func (s State) TurnsTaken(round int) []string {
	return s.TurnsTakenByRound[round]
}

// HasActed reports whether id ended its turn in the current round.
func (s State) HasActed(id string) bool {
	return containsID(s.TurnsTakenByRound[s.Round], id)
}

// HasStarted reports whether id has an open turn.
func (s State) HasStarted(id string) bool {
	return containsID(s.StartedTurnIDs, id)
}

// CombatantsByName returns the combatants sorted by name, then id.
func (s State) CombatantsByName() []combatant.State {
	out := make([]combatant.State, 0, len(s.Combatants))
	for _, c := range s.Combatants {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PendingExpiryPrompt reports whether an expiry prompt is open for effectID.
func (s State) PendingExpiryPrompt(effectID string) bool {
	for _, p := range s.Prompts {
		if p.Kind == PromptExpiry && p.EffectID == effectID {
			return true
		}
	}
	return false
}

// cloneIDs copies ids, keeping nil and empty apart.
func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append(make([]string, 0, len(ids)), ids...)
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

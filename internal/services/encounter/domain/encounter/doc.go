// Package encounter owns the encounter aggregate: the faction-turn scheduler,
// the roster, the attached actors and the pending prompts.
//
// Commands are decided against a replayed State and produce events; Fold is
// the only place state changes. Condition hooks run inside the decider
// through the effects registry, so every mechanical consequence of a turn or
// round transition is journaled alongside the transition itself.
package encounter

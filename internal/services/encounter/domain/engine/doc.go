// Package engine wires command validation, gate checks, decision routing, event
// append and replay-backed state loading for encounter command execution.
//
// It is the seam between the pure encounter decider and the transports: it
// refuses to run on a non-authoritative party, persists accepted events, folds
// them, and returns the decision together with the committed state.
package engine

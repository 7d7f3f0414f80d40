// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Gate and ordering errors
	CodePermissionDenied        Code = "PERMISSION_DENIED"
	CodePhaseViolation          Code = "PHASE_VIOLATION"
	CodeAlreadyActed            Code = "ALREADY_ACTED"
	CodeIneligibleCombatant     Code = "INELIGIBLE_COMBATANT"
	CodeMutualExclusionConflict Code = "MUTUAL_EXCLUSION_CONFLICT"
	CodeIdempotenceGuardTripped Code = "IDEMPOTENCE_GUARD_TRIPPED"

	// Encounter lifecycle errors
	CodeCombatNotStarted     Code = "COMBAT_NOT_STARTED"
	CodeCombatAlreadyStarted Code = "COMBAT_ALREADY_STARTED"
	CodeCombatEnded          Code = "COMBAT_ENDED"
	CodeEncounterNotFound    Code = "ENCOUNTER_NOT_FOUND"

	// Roster errors
	CodeCombatantNotFound Code = "COMBATANT_NOT_FOUND"
	CodeCombatantExists   Code = "COMBATANT_EXISTS"
	CodeActorNotFound     Code = "ACTOR_NOT_FOUND"

	// Effect errors
	CodeEffectNotFound      Code = "EFFECT_NOT_FOUND"
	CodePromptNotFound      Code = "PROMPT_NOT_FOUND"
	CodeStageOutOfRange     Code = "STAGE_OUT_OF_RANGE"
	CodeDamageNotFound      Code = "DAMAGE_NOT_FOUND"
	CodeInsufficientStamina Code = "INSUFFICIENT_STAMINA"

	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument,
		CodeStageOutOfRange:
		return http.StatusBadRequest

	case CodePermissionDenied:
		return http.StatusForbidden

	case CodeEncounterNotFound,
		CodeCombatantNotFound,
		CodeActorNotFound,
		CodeEffectNotFound,
		CodePromptNotFound,
		CodeDamageNotFound:
		return http.StatusNotFound

	case CodeCombatantExists,
		CodeCombatAlreadyStarted:
		return http.StatusConflict

	// Ordering rejections: the state doesn't allow the operation yet.
	case CodePhaseViolation,
		CodeAlreadyActed,
		CodeIneligibleCombatant,
		CodeMutualExclusionConflict,
		CodeIdempotenceGuardTripped,
		CodeCombatNotStarted,
		CodeCombatEnded,
		CodeInsufficientStamina:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

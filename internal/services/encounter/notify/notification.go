package notify

import (
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/combatant"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/condition"
)

// Kind names a notification.
type Kind string

const (
	KindTurnChanged        Kind = "turnChanged"
	KindEffectStagePrompt  Kind = "effectStagePrompt"
	KindEffectExpiryPrompt Kind = "effectExpiryPrompt"
	KindStartOfCombat      Kind = "startOfCombat"
	KindStartOfTurn        Kind = "startOfTurn"
	KindEndOfTurn          Kind = "endOfTurn"
	KindEndOfRound         Kind = "endOfRound"
	KindRoundAdvanced      Kind = "roundAdvanced"
	KindEndOfCombat        Kind = "endOfCombat"
	KindEffectApplied      Kind = "effectApplied"
	KindEffectRemoved      Kind = "effectRemoved"
	KindEffectCancelled    Kind = "effectCancelled"
	KindDamageApplied      Kind = "damageApplied"
	KindWarning            Kind = "warning"
)

// Notification is one message for observers of an encounter. Warnings are
// addressed to the intent that caused them through ReplyTo.
type Notification struct {
	Kind        Kind              `json:"kind"`
	EncounterID string            `json:"encounterId"`
	Seq         uint64            `json:"seq,omitempty"`
	ReplyTo     string            `json:"replyTo,omitempty"`
	CombatantID string            `json:"combatantId,omitempty"`
	ActorID     string            `json:"actorId,omitempty"`
	Faction     combatant.Faction `json:"faction,omitempty"`
	Round       int               `json:"round,omitempty"`
	Condition   condition.Kind    `json:"condition,omitempty"`
	EffectID    string            `json:"effectId,omitempty"`
	PromptID    string            `json:"promptId,omitempty"`
	Min         int               `json:"min,omitempty"`
	Max         int               `json:"max,omitempty"`
	Amount      int               `json:"amount,omitempty"`
	Conditions  []condition.Kind  `json:"conditions,omitempty"`
	Code        string            `json:"code,omitempty"`
	Message     string            `json:"message"`
	Summary     string            `json:"summary,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

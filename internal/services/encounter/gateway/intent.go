package gateway

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// Kind tags the operation an intent asks for.
type Kind string

const (
	KindCreateEncounter Kind = "create_encounter"
	KindConfigure       Kind = "configure"
	KindRegisterActor   Kind = "register_actor"
	KindAddCombatant    Kind = "add_combatant"
	KindRemoveCombatant Kind = "remove_combatant"
	KindSetHidden       Kind = "set_hidden"
	KindStartCombat     Kind = "start_combat"
	KindEndCombat       Kind = "end_combat"
	KindApplyBloodloss  Kind = "apply_bloodloss"

	KindStartTurn     Kind = "start_turn"
	KindEndTurn       Kind = "end_turn"
	KindConfirmStage  Kind = "confirm_stage"
	KindCancelPrompt  Kind = "cancel_prompt"
	KindResolveExpiry Kind = "resolve_expiry"
	KindSpendStamina  Kind = "spend_stamina"
	KindRest          Kind = "rest"
	KindAdvanceTurn   Kind = "advance_turn"
	KindAdvanceRound  Kind = "advance_round"
	KindApplyEffect   Kind = "apply_effect"
	KindRemoveEffect  Kind = "remove_effect"
	KindDamage        Kind = "damage"
	KindUndoDamage    Kind = "undo_damage"
	KindSetDefeated   Kind = "set_defeated"
)

// Intent is a request to mutate encounter state, made by a party that may
// not be the authority. Payload carries the kind-specific fields; start_turn
// and end_turn only need CombatantID.
type Intent struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	EncounterID string          `json:"encounterId"`
	CombatantID string          `json:"combatantId,omitempty"`
	Token       string          `json:"token"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Receipt reports what happened to a submitted intent. Forwarded receipts
// carry nothing else: the outcome arrives later as notifications.
type Receipt struct {
	Forwarded bool
	Accepted  bool
	Warnings  []notify.Notification
}

type route struct {
	command command.Type
	payload func(Intent) (json.RawMessage, error)
}

var routes = map[Kind]route{
	KindCreateEncounter: {command: encounter.CommandTypeCreate, payload: rawPayload},
	KindConfigure:       {command: encounter.CommandTypeConfigure, payload: rawPayload},
	KindRegisterActor:   {command: encounter.CommandTypeActorRegister, payload: rawPayload},
	KindAddCombatant:    {command: encounter.CommandTypeCombatantAdd, payload: rawPayload},
	KindRemoveCombatant: {command: encounter.CommandTypeCombatantRemove, payload: combatantPayload},
	KindSetHidden:       {command: encounter.CommandTypeSetHidden, payload: rawPayload},
	KindStartCombat:     {command: encounter.CommandTypeCombatStart, payload: rawPayload},
	KindEndCombat:       {command: encounter.CommandTypeCombatEnd, payload: rawPayload},
	KindApplyBloodloss:  {command: encounter.CommandTypeApplyBloodloss, payload: rawPayload},

	KindStartTurn:     {command: encounter.CommandTypeTurnStart, payload: combatantPayload},
	KindEndTurn:       {command: encounter.CommandTypeTurnEnd, payload: combatantPayload},
	KindConfirmStage:  {command: encounter.CommandTypeConfirmStage, payload: rawPayload},
	KindCancelPrompt:  {command: encounter.CommandTypeCancelPrompt, payload: rawPayload},
	KindResolveExpiry: {command: encounter.CommandTypeResolveExpiry, payload: rawPayload},
	KindSpendStamina:  {command: encounter.CommandTypeSpendStamina, payload: rawPayload},
	KindRest:          {command: encounter.CommandTypeRest, payload: rawPayload},
	KindAdvanceTurn:   {command: encounter.CommandTypeTurnAdvance, payload: rawPayload},
	KindAdvanceRound:  {command: encounter.CommandTypeRoundAdvance, payload: rawPayload},
	KindApplyEffect:   {command: encounter.CommandTypeEffectApply, payload: rawPayload},
	KindRemoveEffect:  {command: encounter.CommandTypeEffectRemove, payload: rawPayload},
	KindDamage:        {command: encounter.CommandTypeDamage, payload: rawPayload},
	KindUndoDamage:    {command: encounter.CommandTypeUndoDamage, payload: rawPayload},
	KindSetDefeated:   {command: encounter.CommandTypeSetDefeated, payload: rawPayload},
}

// Kinds lists every routable intent kind in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(routes))
	for kind := range routes {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

func combatantPayload(intent Intent) (json.RawMessage, error) {
	if strings.TrimSpace(intent.CombatantID) == "" {
		return nil, fmt.Errorf("combatant id is required")
	}
	return json.Marshal(encounter.CombatantRefPayload{CombatantID: strings.TrimSpace(intent.CombatantID)})
}

func rawPayload(intent Intent) (json.RawMessage, error) {
	if len(intent.Payload) == 0 {
		return json.RawMessage("{}"), nil
	}
	return intent.Payload, nil
}

// toCommand maps an intent and the verified caller to a command.
func toCommand(intent Intent, caller Participant) (command.Command, error) {
	r, ok := routes[intent.Kind]
	if !ok {
		return command.Command{}, fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
	payload, err := r.payload(intent)
	if err != nil {
		return command.Command{}, err
	}
	cmd := command.Command{
		EncounterID: strings.TrimSpace(intent.EncounterID),
		Type:        r.command,
		ActorType:   caller.Role.actorType(),
		ActorID:     caller.ID,
		RequestID:   intent.ID,
		PayloadJSON: payload,
	}
	if id := strings.TrimSpace(intent.CombatantID); id != "" {
		cmd.EntityType = encounter.EntityCombatant
		cmd.EntityID = id
	}
	return cmd, nil
}

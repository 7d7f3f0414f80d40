package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// Submitter routes intents, usually a *gateway.Gateway.
type Submitter interface {
	Submit(ctx context.Context, intent gateway.Intent) (gateway.Receipt, error)
}

// Projector reads encounter projections.
type Projector interface {
	Projection(ctx context.Context, encounterID string) (encounter.Projection, error)
}

// TurnInput represents the MCP tool input for starting or ending a turn.
type TurnInput struct {
	EncounterID string `json:"encounter_id" jsonschema:"encounter identifier"`
	CombatantID string `json:"combatant_id" jsonschema:"combatant taking or ending the turn"`
	Token       string `json:"token" jsonschema:"participant token issued by the encounter authority"`
}

// IntentInput represents the MCP tool input for submitting any intent.
type IntentInput struct {
	Kind        string         `json:"kind" jsonschema:"intent kind, such as apply_effect or damage"`
	EncounterID string         `json:"encounter_id" jsonschema:"encounter identifier"`
	CombatantID string         `json:"combatant_id,omitempty" jsonschema:"combatant the intent acts for, if any"`
	Token       string         `json:"token" jsonschema:"participant token issued by the encounter authority"`
	Payload     map[string]any `json:"payload,omitempty" jsonschema:"kind-specific payload fields"`
}

// Warning is a rejection surfaced to the tool caller.
type Warning struct {
	Code    string `json:"code" jsonschema:"error code"`
	Message string `json:"message" jsonschema:"localized message"`
}

// IntentResult represents the MCP tool output for a submitted intent.
type IntentResult struct {
	IntentID  string    `json:"intent_id" jsonschema:"identifier assigned to the intent"`
	Accepted  bool      `json:"accepted" jsonschema:"true when the authority applied the intent"`
	Forwarded bool      `json:"forwarded" jsonschema:"true when a relay forwarded the intent without waiting"`
	Warnings  []Warning `json:"warnings,omitempty" jsonschema:"rejections, when the intent was refused"`
}

// ProjectionInput represents the MCP tool input for reading an encounter.
type ProjectionInput struct {
	EncounterID string `json:"encounter_id" jsonschema:"encounter identifier"`
}

// ProjectionResult represents the MCP tool output for reading an encounter.
type ProjectionResult struct {
	EncounterID string `json:"encounter_id" jsonschema:"encounter identifier"`
	Projection  any    `json:"projection" jsonschema:"read-only encounter projection"`
}

// StartTurnTool defines the MCP tool schema for starting a turn.
func StartTurnTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "start_turn",
		Description: "Starts the turn of a combatant. Only allowed during the combatant's faction phase, once per round.",
	}
}

// EndTurnTool defines the MCP tool schema for ending a turn.
func EndTurnTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "end_turn",
		Description: "Ends the active turn of a combatant and advances the phase when the faction is done.",
	}
}

// SubmitIntentTool defines the MCP tool schema for submitting any intent.
func SubmitIntentTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "submit_intent",
		Description: "Submits an encounter intent of any kind through the permission gateway.",
	}
}

// ProjectionTool defines the MCP tool schema for reading an encounter.
func ProjectionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "encounter_projection",
		Description: "Returns the current round, faction phase, active combatant and per-combatant turn status.",
	}
}

// TurnHandler submits a start_turn or end_turn intent.
func TurnHandler(submitter Submitter, kind gateway.Kind, newID id.Generator) mcp.ToolHandlerFor[TurnInput, IntentResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TurnInput) (*mcp.CallToolResult, IntentResult, error) {
		if strings.TrimSpace(input.CombatantID) == "" {
			return nil, IntentResult{}, errors.New("combatant_id is required")
		}
		return submit(ctx, submitter, newID, gateway.Intent{
			Kind:        kind,
			EncounterID: input.EncounterID,
			CombatantID: input.CombatantID,
			Token:       input.Token,
		})
	}
}

// SubmitIntentHandler submits an intent of the requested kind.
func SubmitIntentHandler(submitter Submitter, newID id.Generator) mcp.ToolHandlerFor[IntentInput, IntentResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IntentInput) (*mcp.CallToolResult, IntentResult, error) {
		intent := gateway.Intent{
			Kind:        gateway.Kind(strings.TrimSpace(input.Kind)),
			EncounterID: input.EncounterID,
			CombatantID: input.CombatantID,
			Token:       input.Token,
		}
		if input.Payload != nil {
			payload, err := json.Marshal(input.Payload)
			if err != nil {
				return nil, IntentResult{}, fmt.Errorf("encode payload: %w", err)
			}
			intent.Payload = payload
		}
		return submit(ctx, submitter, newID, intent)
	}
}

// ProjectionHandler reads one encounter projection.
func ProjectionHandler(projector Projector) mcp.ToolHandlerFor[ProjectionInput, ProjectionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProjectionInput) (*mcp.CallToolResult, ProjectionResult, error) {
		if projector == nil {
			return nil, ProjectionResult{}, errors.New("projections are only served by the authority")
		}
		if strings.TrimSpace(input.EncounterID) == "" {
			return nil, ProjectionResult{}, errors.New("encounter_id is required")
		}
		projection, err := projector.Projection(ctx, input.EncounterID)
		if err != nil {
			return nil, ProjectionResult{}, fmt.Errorf("encounter projection failed: %w", err)
		}
		return nil, ProjectionResult{EncounterID: input.EncounterID, Projection: projection}, nil
	}
}

func submit(ctx context.Context, submitter Submitter, newID id.Generator, intent gateway.Intent) (*mcp.CallToolResult, IntentResult, error) {
	intentID, err := newID()
	if err != nil {
		return nil, IntentResult{}, fmt.Errorf("generate intent id: %w", err)
	}
	intent.ID = intentID
	receipt, err := submitter.Submit(ctx, intent)
	if err != nil {
		return nil, IntentResult{}, fmt.Errorf("%s failed: %w", intent.Kind, err)
	}
	return nil, IntentResult{
		IntentID:  intentID,
		Accepted:  receipt.Accepted,
		Forwarded: receipt.Forwarded,
		Warnings:  warnings(receipt.Warnings),
	}, nil
}

func warnings(notifications []notify.Notification) []Warning {
	if len(notifications) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, Warning{Code: n.Code, Message: n.Message})
	}
	return out
}

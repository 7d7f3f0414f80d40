package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	intents []gateway.Intent
	receipt gateway.Receipt
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, intent gateway.Intent) (gateway.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return f.receipt, f.err
}

func (f *fakeSubmitter) submitted() []gateway.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Intent(nil), f.intents...)
}

type fakeProjector struct {
	projection encounter.Projection
	err        error
}

func (f fakeProjector) Projection(_ context.Context, encounterID string) (encounter.Projection, error) {
	if f.err != nil {
		return encounter.Projection{}, f.err
	}
	projection := f.projection
	projection.EncounterID = encounterID
	return projection, nil
}

func connect(t *testing.T, cfg Config) *mcp.ClientSession {
	t.Helper()

	server, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (*mcp.CallToolResult, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("call %s returned no content", name)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *mcp.TextContent", result.Content[0])
	}
	return result, text.Text
}

func TestNewRequiresGateway(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without gateway")
	}
}

func TestToolsAreListed(t *testing.T) {
	session := connect(t, Config{Gateway: &fakeSubmitter{}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range listed.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"start_turn", "end_turn", "submit_intent", "encounter_projection"} {
		if !names[want] {
			t.Fatalf("tool %q missing from %v", want, names)
		}
	}
}

func TestStartTurnSubmitsIntent(t *testing.T) {
	submitter := &fakeSubmitter{receipt: gateway.Receipt{Accepted: true}}
	session := connect(t, Config{Gateway: submitter, NewID: id.Sequence("intent")})

	result, text := callTool(t, session, "start_turn", map[string]any{
		"encounter_id": "enc-1",
		"combatant_id": "cmb-a",
		"token":        "tok",
	})
	if result.IsError {
		t.Fatalf("start_turn failed: %s", text)
	}
	var got IntentResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want := IntentResult{IntentID: "intent-1", Accepted: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	intents := submitter.submitted()
	if len(intents) != 1 {
		t.Fatalf("submitted = %d, want 1", len(intents))
	}
	wantIntent := gateway.Intent{
		ID:          "intent-1",
		Kind:        gateway.KindStartTurn,
		EncounterID: "enc-1",
		CombatantID: "cmb-a",
		Token:       "tok",
	}
	if diff := cmp.Diff(wantIntent, intents[0]); diff != "" {
		t.Fatalf("intent mismatch (-want +got):\n%s", diff)
	}
}

func TestEndTurnReportsWarnings(t *testing.T) {
	submitter := &fakeSubmitter{receipt: gateway.Receipt{Warnings: []notify.Notification{{
		Kind:    notify.KindWarning,
		Code:    "NOT_ACTIVE_TURN",
		Message: "It's not your turn!",
	}}}}
	session := connect(t, Config{Gateway: submitter, NewID: id.Sequence("intent")})

	result, text := callTool(t, session, "end_turn", map[string]any{
		"encounter_id": "enc-1",
		"combatant_id": "cmb-b",
		"token":        "tok",
	})
	if result.IsError {
		t.Fatalf("end_turn failed: %s", text)
	}
	var got IntentResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want := IntentResult{
		IntentID: "intent-1",
		Warnings: []Warning{{Code: "NOT_ACTIVE_TURN", Message: "It's not your turn!"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if kind := submitter.submitted()[0].Kind; kind != gateway.KindEndTurn {
		t.Fatalf("kind = %q, want %q", kind, gateway.KindEndTurn)
	}
}

func TestTurnRequiresCombatant(t *testing.T) {
	submitter := &fakeSubmitter{}
	session := connect(t, Config{Gateway: submitter})

	result, text := callTool(t, session, "start_turn", map[string]any{
		"encounter_id": "enc-1",
		"combatant_id": " ",
		"token":        "tok",
	})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(text, "combatant_id is required") {
		t.Fatalf("error = %q", text)
	}
	if len(submitter.submitted()) != 0 {
		t.Fatal("intent should not be submitted")
	}
}

func TestSubmitIntentEncodesPayload(t *testing.T) {
	submitter := &fakeSubmitter{receipt: gateway.Receipt{Forwarded: true}}
	session := connect(t, Config{Gateway: submitter, NewID: id.Sequence("intent")})

	result, text := callTool(t, session, "submit_intent", map[string]any{
		"kind":         "damage",
		"encounter_id": "enc-1",
		"token":        "tok",
		"payload":      map[string]any{"actor_id": "act-a", "amount": 4},
	})
	if result.IsError {
		t.Fatalf("submit_intent failed: %s", text)
	}
	var got IntentResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !got.Forwarded || got.Accepted {
		t.Fatalf("result = %+v, want forwarded only", got)
	}

	intent := submitter.submitted()[0]
	if intent.Kind != gateway.KindDamage {
		t.Fatalf("kind = %q, want %q", intent.Kind, gateway.KindDamage)
	}
	var payload map[string]any
	if err := json.Unmarshal(intent.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := map[string]any{"actor_id": "act-a", "amount": float64(4)}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitFailureIsToolError(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("channel closed")}
	session := connect(t, Config{Gateway: submitter})

	result, text := callTool(t, session, "end_turn", map[string]any{
		"encounter_id": "enc-1",
		"combatant_id": "cmb-a",
		"token":        "tok",
	})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(text, "channel closed") {
		t.Fatalf("error = %q", text)
	}
}

func TestProjectionTool(t *testing.T) {
	projector := fakeProjector{projection: encounter.Projection{Started: true, Round: 2, ActiveCombatantID: "cmb-a"}}
	session := connect(t, Config{Gateway: &fakeSubmitter{}, Projector: projector})

	result, text := callTool(t, session, "encounter_projection", map[string]any{"encounter_id": "enc-1"})
	if result.IsError {
		t.Fatalf("encounter_projection failed: %s", text)
	}
	var got struct {
		EncounterID string               `json:"encounter_id"`
		Projection  encounter.Projection `json:"projection"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.EncounterID != "enc-1" || got.Projection.Round != 2 || got.Projection.ActiveCombatantID != "cmb-a" {
		t.Fatalf("projection = %+v", got)
	}
}

func TestProjectionToolWithoutProjector(t *testing.T) {
	session := connect(t, Config{Gateway: &fakeSubmitter{}})

	result, text := callTool(t, session, "encounter_projection", map[string]any{"encounter_id": "enc-1"})
	if !result.IsError {
		t.Fatal("expected tool error on relay")
	}
	if !strings.Contains(text, "only served by the authority") {
		t.Fatalf("error = %q", text)
	}
}

func TestProjectionToolPropagatesError(t *testing.T) {
	projector := fakeProjector{err: errors.New("encounter not found")}
	session := connect(t, Config{Gateway: &fakeSubmitter{}, Projector: projector})

	result, text := callTool(t, session, "encounter_projection", map[string]any{"encounter_id": "enc-x"})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(text, "encounter not found") {
		t.Fatalf("error = %q", text)
	}
}

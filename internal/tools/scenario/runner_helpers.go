package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// Assertions reports scenario failures according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger zerolog.Logger
}

// Failf always fails: the scenario cannot continue.
func (a Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf fails in strict mode and only logs in log-only mode.
func (a Assertions) Assertf(format string, args ...any) error {
	if a.Mode == AssertionLogOnly {
		a.Logger.Warn().Msgf("expectation not met: "+format, args...)
		return nil
	}
	return fmt.Errorf(format, args...)
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

// caller returns who issues the step: the participant named by "as", or the
// gm when the step names nobody.
func caller(args map[string]any) (command.ActorType, string) {
	if participant := optionalString(args, "as", ""); participant != "" {
		return command.ActorTypeParticipant, participant
	}
	return command.ActorTypeGM, "scenario-gm"
}

// execute runs one command for step. A rejection fails the step unless the
// step expects it through expect_rejection.
func (r *Runner) execute(ctx context.Context, state *scenarioState, step Step, cmdType command.Type, payload any) (engine.Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return engine.Result{}, fmt.Errorf("encode %s payload: %w", cmdType, err)
	}
	actorType, actorID := caller(step.Args)
	state.drain()
	result, err := r.service.Execute(ctx, command.Command{
		EncounterID: state.encounterID,
		Type:        cmdType,
		ActorType:   actorType,
		ActorID:     actorID,
		PayloadJSON: data,
	})
	if err != nil {
		return engine.Result{}, fmt.Errorf("%s: %w", cmdType, err)
	}
	state.rememberDamage(result)

	expected := optionalString(step.Args, "expect_rejection", "")
	if !result.Decision.Rejected() {
		if expected != "" {
			return result, r.assertf("%s accepted, want rejection %s", cmdType, expected)
		}
		return result, nil
	}
	if expected == "" {
		return result, r.failf("%s rejected: %s", cmdType, r.describeRejections(state, result.Decision.Rejections))
	}
	for _, rejection := range result.Decision.Rejections {
		if rejection.Code == expected {
			r.logf("%s rejected as expected: %s", cmdType, r.describeRejections(state, result.Decision.Rejections))
			return result, nil
		}
	}
	return result, r.assertf("%s rejected with %s, want %s", cmdType, r.describeRejections(state, result.Decision.Rejections), expected)
}

func (r *Runner) describeRejections(state *scenarioState, rejections []command.Rejection) string {
	parts := make([]string, 0, len(rejections))
	for _, rejection := range rejections {
		warning := notify.Warning(state.encounterID, "", rejection, r.locale)
		parts = append(parts, fmt.Sprintf("%s (%s)", rejection.Code, warning.Message))
	}
	return strings.Join(parts, "; ")
}

// rememberDamage keeps the damage ids of a decision so undo_damage can name
// the latest one per actor.
func (s *scenarioState) rememberDamage(result engine.Result) {
	for _, evt := range result.Decision.Events {
		if evt.Type != encounter.EventTypeDamaged {
			continue
		}
		var payload encounter.DamagedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil || payload.DamageID == "" {
			continue
		}
		s.damage[payload.ActorID] = append(s.damage[payload.ActorID], payload.DamageID)
	}
}

func (r *Runner) actorID(state *scenarioState, name string) (string, error) {
	if name == "" {
		return "", r.failf("actor target is required")
	}
	id, ok := state.actors[name]
	if !ok {
		return "", r.failf("unknown actor %q", name)
	}
	return id, nil
}

func (r *Runner) combatantID(state *scenarioState, name string) (string, error) {
	if name == "" {
		return "", r.failf("combatant name is required")
	}
	id, ok := state.combatants[name]
	if !ok {
		return "", r.failf("unknown combatant %q", name)
	}
	return id, nil
}

func (r *Runner) loadState(ctx context.Context, state *scenarioState) (encounter.State, error) {
	current, err := r.service.State(ctx, state.encounterID)
	if err != nil {
		return encounter.State{}, fmt.Errorf("load encounter: %w", err)
	}
	return current, nil
}

// findPrompt returns the pending prompt of kind for the actor and condition.
func (r *Runner) findPrompt(ctx context.Context, state *scenarioState, kind encounter.PromptKind, actorID, condition string) (string, error) {
	current, err := r.loadState(ctx, state)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(current.Prompts))
	for id, prompt := range current.Prompts {
		if prompt.Kind != kind || prompt.ActorID != actorID {
			continue
		}
		if condition != "" && string(prompt.Condition) != condition {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", r.failf("no pending %s prompt for %s", kind, actorID)
	}
	sort.Strings(ids)
	return ids[0], nil
}

func slug(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "unnamed"
	}
	replacer := strings.NewReplacer(" ", "-", "_", "-")
	return replacer.Replace(strings.ToLower(trimmed))
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return ""
}

func readInt(args map[string]any, key string) (int, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	if value, ok := readInt(args, key); ok {
		return value
	}
	return fallback
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	if value, ok := readBool(args, key); ok {
		return value
	}
	return fallback
}

func readBool(args map[string]any, key string) (bool, bool) {
	value, ok := args[key]
	if !ok {
		return false, false
	}
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

func readStringSlice(args map[string]any, key string) ([]string, bool) {
	value, ok := args[key]
	if !ok {
		return nil, false
	}
	list, ok := value.([]any)
	if !ok {
		// An empty Lua table decodes as a map.
		if m, isMap := value.(map[string]any); isMap && len(m) == 0 {
			return []string{}, true
		}
		return nil, false
	}
	results := make([]string, 0, len(list))
	for _, entry := range list {
		text, ok := entry.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results, true
}

func intPtr(args map[string]any, key string) *int {
	value, ok := readInt(args, key)
	if !ok {
		return nil
	}
	return &value
}

func boolPtr(args map[string]any, key string) *bool {
	value, ok := readBool(args, key)
	if !ok {
		return nil
	}
	return &value
}

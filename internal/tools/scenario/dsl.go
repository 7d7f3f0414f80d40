package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const (
	scenarioTypeName = "scenario"
	actorTypeName    = "scenario_actor"
)

// Scenario is a named list of steps loaded from a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scripted action or expectation.
type Step struct {
	Kind string
	Args map[string]any
}

// actorRef lets a script chain :combatant() onto the actor it just declared.
type actorRef struct {
	scenario *Scenario
	name     string
}

// LoadScenarioFromFile runs the Lua script at path and returns the Scenario
// it builds. The script must return the value of Scenario.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerMethods(state, scenarioTypeName, scenarioMethods)
	registerMethods(state, actorTypeName, actorMethods)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{{Name: "new", Function: scenarioNew}}, 0)
	state.SetGlobal("Scenario")
}

func registerMethods(state *lua.State, typeName string, methods []lua.RegistryFunction) {
	lua.NewMetaTable(state, typeName)
	state.NewTable()
	lua.SetFunctions(state, methods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "encounter", Function: tableStep("encounter")},
	{Name: "configure", Function: tableStep("configure")},
	{Name: "actor", Function: scenarioActor},
	{Name: "combatant", Function: scenarioCombatant},
	{Name: "remove_combatant", Function: namedStep("remove_combatant")},
	{Name: "start_combat", Function: optionalTableStep("start_combat")},
	{Name: "end_combat", Function: optionalTableStep("end_combat")},
	{Name: "start_turn", Function: namedStep("start_turn")},
	{Name: "end_turn", Function: namedStep("end_turn")},
	{Name: "advance_turn", Function: optionalTableStep("advance_turn")},
	{Name: "advance_round", Function: optionalTableStep("advance_round")},
	{Name: "defeat", Function: namedStep("defeat")},
	{Name: "hide", Function: namedStep("hide")},
	{Name: "apply_effect", Function: tableStep("apply_effect")},
	{Name: "confirm_stage", Function: tableStep("confirm_stage")},
	{Name: "cancel_prompt", Function: tableStep("cancel_prompt")},
	{Name: "resolve_expiry", Function: tableStep("resolve_expiry")},
	{Name: "remove_effect", Function: tableStep("remove_effect")},
	{Name: "damage", Function: tableStep("damage")},
	{Name: "undo_damage", Function: tableStep("undo_damage")},
	{Name: "spend_stamina", Function: tableStep("spend_stamina")},
	{Name: "bloodloss", Function: tableStep("bloodloss")},
	{Name: "rest", Function: tableStep("rest")},
	{Name: "expect_turn", Function: tableStep("expect_turn")},
	{Name: "expect_actor", Function: tableStep("expect_actor")},
	{Name: "expect_notification", Function: tableStep("expect_notification")},
}

var actorMethods = []lua.RegistryFunction{
	{Name: "combatant", Function: actorCombatant},
}

// tableStep appends a step whose arguments are a required table.
func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		appendStep(scenario, kind, tableToMap(state, 2))
		return 0
	}
}

// optionalTableStep appends a step whose argument table may be omitted.
func optionalTableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, optionalTable(state, 2))
		return 0
	}
}

// namedStep appends a step that targets a combatant by name, with an
// optional table of extra arguments.
func namedStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		name := lua.CheckString(state, 2)
		data := optionalTable(state, 3)
		data["name"] = name
		appendStep(scenario, kind, data)
		return 0
	}
}

func scenarioActor(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	name, _ := data["name"].(string)
	if strings.TrimSpace(name) == "" {
		lua.Errorf(state, "actor name is required")
		return 0
	}
	appendStep(scenario, "actor", data)
	state.PushUserData(&actorRef{scenario: scenario, name: name})
	lua.SetMetaTableNamed(state, actorTypeName)
	return 1
}

func scenarioCombatant(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if name, _ := data["name"].(string); strings.TrimSpace(name) == "" {
		lua.Errorf(state, "combatant name is required")
		return 0
	}
	appendStep(scenario, "combatant", data)
	return 0
}

// actorCombatant adds a combatant for the chained actor. The combatant takes
// the actor's name unless the table names it.
func actorCombatant(state *lua.State) int {
	ud := lua.CheckUserData(state, 1, actorTypeName)
	ref, ok := ud.(*actorRef)
	if !ok || ref == nil {
		lua.ArgumentError(state, 1, "actor expected")
		return 0
	}
	data := optionalTable(state, 2)
	if _, ok := data["name"]; !ok {
		data["name"] = ref.name
	}
	data["actor"] = ref.name
	appendStep(ref.scenario, "combatant", data)
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a []any for sequences and a map otherwise.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

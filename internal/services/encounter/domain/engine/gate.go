package engine

import (
	"fmt"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
)

// DecisionGate enforces command gate policy before decisions run.
type DecisionGate struct {
	Registry *command.Registry
}

// Check returns a rejection when the caller may not issue the command.
func (g DecisionGate) Check(cmd command.Command) command.Decision {
	if g.Registry == nil {
		return command.Decision{}
	}
	def, ok := g.Registry.Definition(cmd.Type)
	if !ok || def.Gate.Scope != command.GateScopeGM {
		return command.Decision{}
	}
	if cmd.Privileged() {
		return command.Decision{}
	}
	return command.Reject(command.Rejection{
		Code:    string(errors.CodePermissionDenied),
		Message: fmt.Sprintf("%s requires the gm", cmd.Type),
		Metadata: map[string]string{
			"combatant": cmd.EntityID,
		},
	})
}

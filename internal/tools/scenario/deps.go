package scenario

import (
	"context"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// encounterService is the slice of the encounter command path a scenario
// drives.
type encounterService interface {
	Execute(ctx context.Context, cmd command.Command) (engine.Result, error)
	State(ctx context.Context, encounterID string) (encounter.State, error)
	Bus() *notify.Bus
}

// runnerDeps bundles injectable dependencies for runner construction.
type runnerDeps struct {
	service encounterService
	close   func() error
}

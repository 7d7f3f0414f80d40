package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	server "github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/app"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// Config controls scenario execution.
type Config struct {
	// DBPath selects the journal; empty or ":memory:" keeps it in memory.
	DBPath     string
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Locale     string
	Logger     *zerolog.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		DBPath:     server.MemoryDBPath,
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
		Locale:     "en-US",
	}
}

// Runner executes Lua scenarios against an in-process encounter service.
type Runner struct {
	service    encounterService
	close      func() error
	assertions Assertions
	logger     zerolog.Logger
	verbose    bool
	timeout    time.Duration
	locale     string
}

// NewRunner opens the stores and prepares a scenario runner.
func NewRunner(cfg Config) (*Runner, error) {
	_, events, err := encounter.NewRegistries()
	if err != nil {
		return nil, fmt.Errorf("build registries: %w", err)
	}
	var stores server.Stores
	if cfg.DBPath == "" || cfg.DBPath == server.MemoryDBPath {
		stores = server.MemoryStores(events)
	} else if stores, err = server.OpenStores(cfg.DBPath, events); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	service, err := server.NewService(server.ServiceConfig{
		Stores: stores,
		Logger: logger,
		Locale: cfg.Locale,
	})
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return newRunnerWithDeps(cfg, runnerDeps{service: service, close: stores.Close})
}

// newRunnerWithDeps builds a Runner from pre-built dependencies.
// Config defaults (logger, timeout, locale) are applied here so they are
// testable.
func newRunnerWithDeps(cfg Config, deps runnerDeps) (*Runner, error) {
	if deps.service == nil {
		return nil, errors.New("encounter service is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	locale := cfg.Locale
	if strings.TrimSpace(locale) == "" {
		locale = "en-US"
	}

	return &Runner{
		service:    deps.service,
		close:      deps.close,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
		locale:     locale,
	}, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps against one fresh encounter.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := newScenarioState("scenario-" + slug(scenario.Name))
	unsubscribe := r.service.Bus().Subscribe(func(_ context.Context, n notify.Notification) {
		state.record(n)
	})
	defer unsubscribe()

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose {
		return
	}
	r.logger.Info().Msgf(format, args...)
}

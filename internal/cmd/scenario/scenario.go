// Package scenario parses scenario command flags and runs a Lua script
// against an in-process encounter service.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	entrypoint "github.com/JakeHR99/Stryder-TTRPG/internal/platform/cmd"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/logging"
	"github.com/JakeHR99/Stryder-TTRPG/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenario   string        `env:"STRYDER_SCENARIO_FILE"`
	DBPath     string        `env:"STRYDER_SCENARIO_DB_PATH" envDefault:":memory:"`
	Assertions bool          `env:"STRYDER_SCENARIO_ASSERT" envDefault:"true"`
	Verbose    bool          `env:"STRYDER_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"STRYDER_SCENARIO_TIMEOUT" envDefault:"10s"`
	Locale     string        `env:"STRYDER_SCENARIO_LOCALE" envDefault:"en-US"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite journal path, or :memory:")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command. Step logs go to errOut.
func Run(ctx context.Context, cfg Config, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := logging.New(errOut, entrypoint.ServiceScenario, logging.Settings{Level: "info", Pretty: true})
	return scenario.RunFile(ctx, scenario.Config{
		DBPath:     cfg.DBPath,
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Locale:     cfg.Locale,
		Logger:     &logger,
	}, cfg.Scenario)
}

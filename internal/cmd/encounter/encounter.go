// Package encounter parses encounter command flags and starts the server.
package encounter

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/JakeHR99/Stryder-TTRPG/internal/platform/cmd"
	platformgrpc "github.com/JakeHR99/Stryder-TTRPG/internal/platform/grpc"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/timeouts"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	server "github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/app"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
)

// Config holds encounter command configuration.
type Config struct {
	HTTPAddr           string  `env:"STRYDER_ENCOUNTER_HTTP_ADDR" envDefault:":8095"`
	GRPCAddr           string  `env:"STRYDER_ENCOUNTER_GRPC_ADDR" envDefault:":8096"`
	DBPath             string  `env:"STRYDER_ENCOUNTER_DB_PATH" envDefault:"data/encounter.db"`
	Role               string  `env:"STRYDER_ENCOUNTER_ROLE" envDefault:"authority"`
	AuthorityURL       string  `env:"STRYDER_ENCOUNTER_AUTHORITY_URL"`
	TokenSecret        string  `env:"STRYDER_ENCOUNTER_TOKEN_SECRET"`
	SkipDefeatedPhase  bool    `env:"STRYDER_ENCOUNTER_SKIP_DEFEATED_PHASE" envDefault:"true"`
	SkipDefeatedRound  bool    `env:"STRYDER_ENCOUNTER_SKIP_DEFEATED_ROUND" envDefault:"true"`
	ConfirmFixedExpiry bool    `env:"STRYDER_ENCOUNTER_CONFIRM_FIXED_EXPIRY" envDefault:"false"`
	IntentsPerSecond   float64 `env:"STRYDER_ENCOUNTER_INTENTS_PER_SECOND" envDefault:"10"`
	MCPStdio           bool    `env:"STRYDER_ENCOUNTER_MCP_STDIO" envDefault:"false"`
	Locale             string  `env:"STRYDER_ENCOUNTER_LOCALE" envDefault:"en-US"`

	// Check probes the gRPC health of a running server and exits.
	Check bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address for /ws, /intents and /encounters")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite journal path, or :memory:")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "authority or relay")
	fs.StringVar(&cfg.AuthorityURL, "authority-url", cfg.AuthorityURL, "authority websocket URL (relay only)")
	fs.BoolVar(&cfg.MCPStdio, "mcp-stdio", cfg.MCPStdio, "serve MCP tools on stdin/stdout")
	fs.BoolVar(&cfg.Check, "check", false, "probe the gRPC health of a running server and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig translates the command configuration.
func (c Config) ServerConfig() (server.Config, error) {
	mode, err := gateway.ParseMode(c.Role)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		HTTPAddr:     c.HTTPAddr,
		GRPCAddr:     c.GRPCAddr,
		DBPath:       c.DBPath,
		Mode:         mode,
		AuthorityURL: c.AuthorityURL,
		TokenSecret:  c.TokenSecret,
		Policy: encounter.Policy{
			SkipDefeatedPhase:  c.SkipDefeatedPhase,
			SkipDefeatedRound:  c.SkipDefeatedRound,
			ConfirmFixedExpiry: c.ConfirmFixedExpiry,
		},
		IntentsPerSecond: c.IntentsPerSecond,
		Locale:           c.Locale,
		MCPStdio:         c.MCPStdio,
	}, nil
}

// Run starts the encounter server, or probes one when Check is set.
func Run(ctx context.Context, cfg Config) error {
	log, err := entrypoint.Logger(entrypoint.ServiceEncounter)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	if cfg.Check {
		return platformgrpc.Probe(ctx, cfg.GRPCAddr, server.HealthService, timeouts.GRPCRequest, log)
	}
	serverCfg, err := cfg.ServerConfig()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceEncounter, entrypoint.RunOptions{Logger: &log}, func(ctx context.Context) error {
		return server.Run(ctx, serverCfg, log)
	})
}

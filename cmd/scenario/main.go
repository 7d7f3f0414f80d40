// Package main provides a CLI for running Lua encounter scenarios.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/config"

	scenariocmd "github.com/JakeHR99/Stryder-TTRPG/internal/cmd/scenario"
)

func main() {
	cfg, err := scenariocmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scenariocmd.Run(ctx, cfg, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}

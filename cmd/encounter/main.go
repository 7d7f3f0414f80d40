package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	encountercmd "github.com/JakeHR99/Stryder-TTRPG/internal/cmd/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/config"
)

func main() {
	cfg, err := encountercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := encountercmd.Run(ctx, cfg); err != nil {
		config.Exitf("encounter: %v", err)
	}
}

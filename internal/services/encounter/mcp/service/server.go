// Package service exposes encounter intents and projections as MCP tools.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
)

const (
	serverName    = "stryder-encounter"
	serverVersion = "0.1.0"
)

// Config wires the tools to an encounter process. Projector may be nil on a
// relay, which has no state of its own.
type Config struct {
	Gateway   Submitter
	Projector Projector
	NewID     id.Generator
}

// Server holds the MCP tool bindings.
type Server struct {
	mcpServer *mcp.Server
}

// New registers every encounter tool.
func New(cfg Config) (*Server, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, StartTurnTool(), TurnHandler(cfg.Gateway, gateway.KindStartTurn, cfg.NewID))
	mcp.AddTool(mcpServer, EndTurnTool(), TurnHandler(cfg.Gateway, gateway.KindEndTurn, cfg.NewID))
	mcp.AddTool(mcpServer, SubmitIntentTool(), SubmitIntentHandler(cfg.Gateway, cfg.NewID))
	mcp.AddTool(mcpServer, ProjectionTool(), ProjectionHandler(cfg.Projector))

	return &Server{mcpServer: mcpServer}, nil
}

// RunStdio serves the tools on stdin/stdout until ctx ends.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

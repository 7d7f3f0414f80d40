package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/timeouts"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/channel"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/gateway"
	mcpservice "github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/mcp/service"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// HealthService is the gRPC health service name of the encounter server.
const HealthService = "stryder.encounter"

// Config configures a Server.
type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	DBPath       string
	Mode         gateway.Mode
	AuthorityURL string
	TokenSecret  string
	// Policy is the default policy of new encounters.
	Policy           encounter.Policy
	IntentsPerSecond float64
	Locale           string
	// MCPStdio serves the MCP tools on stdin/stdout alongside the listeners.
	MCPStdio bool
}

// Server hosts one encounter process, authority or relay.
type Server struct {
	log          zerolog.Logger
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	hub          *channel.Hub
	client       *channel.Client
	gateway      *gateway.Gateway
	service      *Service
	mcp          *mcpservice.Server
	stores       Stores
	unsubscribe  []func()
}

// New opens the stores, wires the channel and binds both listeners.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Server, error) {
	if cfg.Mode == gateway.ModeAuthority && strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, errors.New("token secret is required on the authority")
	}
	s := &Server{log: log, hub: channel.NewHub(log, 0)}

	var err error
	switch cfg.Mode {
	case gateway.ModeAuthority:
		err = s.wireAuthority(cfg)
	case gateway.ModeRelay:
		err = s.wireRelay(ctx, cfg)
	default:
		err = fmt.Errorf("gateway mode %q is not supported", cfg.Mode)
	}
	if err == nil && cfg.MCPStdio {
		err = s.wireMCP()
	}
	if err != nil {
		s.close()
		return nil, err
	}

	s.httpListener, err = net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	s.grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           newHTTPHandler(s.service, s.gateway, s.hub, cfg.Locale, log),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	return s, nil
}

func (s *Server) wireAuthority(cfg Config) error {
	_, events, err := encounter.NewRegistries()
	if err != nil {
		return fmt.Errorf("build registries: %w", err)
	}
	s.stores, err = OpenStores(cfg.DBPath, events)
	if err != nil {
		return err
	}
	policy := cfg.Policy
	s.service, err = NewService(ServiceConfig{
		Stores:        s.stores,
		Authority:     engine.StaticAuthority(true),
		Bus:           notify.NewBus(s.log),
		Logger:        s.log,
		Locale:        cfg.Locale,
		DefaultPolicy: &policy,
	})
	if err != nil {
		return err
	}
	receiver, err := gateway.NewReceiver(gateway.ReceiverConfig{
		Executor:         s.service,
		Commands:         s.service.Commands(),
		Verifier:         gateway.TokenVerifier{Secret: []byte(cfg.TokenSecret)},
		Publisher:        s.service.Bus(),
		Logger:           s.log,
		IntentsPerSecond: cfg.IntentsPerSecond,
		Locale:           cfg.Locale,
	})
	if err != nil {
		return err
	}
	s.gateway, err = gateway.NewAuthority(receiver)
	if err != nil {
		return err
	}
	s.unsubscribe = append(s.unsubscribe,
		receiver.Listen(s.hub),
		s.service.Bus().Subscribe(func(ctx context.Context, n notify.Notification) {
			if err := s.hub.Send(ctx, channel.TopicNotifications, n); err != nil {
				s.log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("broadcast notification")
			}
		}),
	)
	return nil
}

func (s *Server) wireRelay(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.AuthorityURL) == "" {
		return errors.New("authority url is required in relay mode")
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCDial)
	defer cancel()
	client, err := channel.Dial(dialCtx, cfg.AuthorityURL, "", s.log)
	if err != nil {
		return err
	}
	s.client = client
	s.gateway, err = gateway.NewRelay(client)
	if err != nil {
		return err
	}
	s.unsubscribe = append(s.unsubscribe,
		client.OnReceive(channel.TopicNotifications, func(ctx context.Context, payload json.RawMessage) {
			if err := s.hub.Send(ctx, channel.TopicNotifications, payload); err != nil {
				s.log.Warn().Err(err).Msg("relay notification")
			}
		}),
		s.hub.OnReceive(channel.TopicIntents, func(ctx context.Context, payload json.RawMessage) {
			var intent gateway.Intent
			if err := json.Unmarshal(payload, &intent); err != nil {
				s.log.Warn().Err(err).Msg("drop undecodable intent")
				return
			}
			if _, err := s.gateway.Submit(ctx, intent); err != nil {
				s.log.Warn().Err(err).Str("intent_id", intent.ID).Msg("relay intent")
			}
		}),
	)
	return nil
}

func (s *Server) wireMCP() error {
	mcpCfg := mcpservice.Config{Gateway: s.gateway}
	if s.service != nil {
		mcpCfg.Projector = s.service
	}
	var err error
	s.mcp, err = mcpservice.New(mcpCfg)
	return err
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Service returns the command path, nil on a relay.
func (s *Server) Service() *Service {
	return s.service
}

// Gateway returns the intent gateway.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

// Run creates and serves a server until ctx ends.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	srv, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve runs both listeners and blocks until one fails or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.close()

	s.log.Info().Str("http_addr", s.HTTPAddr()).Str("grpc_addr", s.GRPCAddr()).Str("mode", string(s.gateway.Mode())).Msg("encounter server listening")
	serveErr := make(chan error, 2)
	go func() {
		serveErr <- s.grpcServer.Serve(s.grpcListener)
	}()
	go func() {
		serveErr <- s.httpServer.Serve(s.httpListener)
	}()
	if s.mcp != nil {
		go func() {
			if err := s.mcp.RunStdio(ctx); err != nil {
				s.log.Warn().Err(err).Msg("mcp stdio stopped")
			}
		}()
	}

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}

	var first error
	select {
	case <-ctx.Done():
	case first = <-serveErr:
	}
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("http shutdown")
	}
	return handleErr(first)
}

func (s *Server) close() {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}
	if s.httpListener != nil && s.httpServer == nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil && s.grpcServer == nil {
		_ = s.grpcListener.Close()
	}
	if err := s.stores.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close stores")
	}
	s.stores = Stores{}
}

// Package grpc holds client helpers for the encounter gRPC health endpoint.
package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = time.Second
	checkTimeout   = time.Second
)

// NewClient creates a plaintext client for addr with the otel stats handler.
// The connection is established lazily.
func NewClient(addr string) (*gogrpc.ClientConn, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("gRPC address is required")
	}
	return gogrpc.NewClient(addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
}

// WaitForHealth blocks until the health check of service reports SERVING or
// the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, log zerolog.Logger) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := initialBackoff
	for {
		callCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		response, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			log.Debug().Str("health_service", service).Msg("gRPC health is SERVING")
			return nil
		}
		event := log.Debug().Str("health_service", service).Dur("backoff", backoff)
		if err != nil {
			event.Err(err).Msg("waiting for gRPC health")
		} else {
			event.Str("status", response.GetStatus().String()).Msg("waiting for gRPC health")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Probe connects to addr and waits up to timeout for service to report
// SERVING.
func Probe(ctx context.Context, addr, service string, timeout time.Duration, log zerolog.Logger) error {
	conn, err := NewClient(addr)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return WaitForHealth(ctx, conn, service, log)
}

package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const testService = "stryder.encounter"

func TestWaitForHealthServing(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	conn := newTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, testService, zerolog.Nop()); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	addr, setStatus := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	conn := newTestClient(t, addr)

	go func() {
		time.Sleep(200 * time.Millisecond)
		setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, testService, zerolog.Nop()); err != nil {
		t.Fatalf("wait for health after transition: %v", err)
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	conn := newTestClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, conn, testService, zerolog.Nop()); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, testService, zerolog.Nop()); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func TestProbe(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	if err := Probe(context.Background(), addr, testService, 2*time.Second, zerolog.Nop()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := Probe(context.Background(), " ", testService, time.Second, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestProbeTimesOutWhenNotServing(t *testing.T) {
	addr, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	start := time.Now()
	if err := Probe(context.Background(), addr, testService, 150*time.Millisecond, zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected timeout to bound the probe, took %v", elapsed)
	}
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (string, func(grpc_health_v1.HealthCheckResponse_ServingStatus)) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	grpcServer := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(testService, status)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	t.Cleanup(func() {
		grpcServer.GracefulStop()
		_ = listener.Close()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
		}
	})

	setStatus := func(next grpc_health_v1.HealthCheckResponse_ServingStatus) {
		healthServer.SetServingStatus(testService, next)
	}
	return listener.Addr().String(), setStatus
}

func newTestClient(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()
	conn, err := NewClient(addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

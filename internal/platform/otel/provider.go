// Package otel wires OpenTelemetry tracing for encounter processes.
package otel

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Settings controls whether and where spans are exported.
type Settings struct {
	Enabled  string  `env:"STRYDER_OTEL_ENABLED"`
	Endpoint string  `env:"STRYDER_OTEL_ENDPOINT"`
	Ratio    float64 `env:"STRYDER_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

func (s Settings) active() bool {
	if strings.EqualFold(strings.TrimSpace(s.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(s.Endpoint) != ""
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when STRYDER_OTEL_ENDPOINT is empty or
// STRYDER_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and no global provider is registered.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	var settings Settings
	if err := config.ParseEnv(&settings); err != nil {
		return noop, err
	}
	return SetupWithSettings(ctx, serviceName, settings)
}

// SetupWithSettings is Setup with explicit settings.
func SetupWithSettings(ctx context.Context, serviceName string, settings Settings) (func(context.Context) error, error) {
	if !settings.active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(settings.Endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if settings.Ratio > 0 && settings.Ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.Ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func noop(context.Context) error { return nil }

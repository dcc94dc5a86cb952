// Package observability provides OpenTelemetry integration for distributed
// tracing.
//
// # Datadog Agent Mode
//
// Traces go to a local Datadog Agent over OTLP HTTP rather than straight to
// the Datadog API. The agent buffers and retries locally, handles
// authentication (no DD_API_KEY in the app), and accepts the standard OTLP
// receiver configuration:
//
//	otlp_config:
//	  receiver:
//	    protocols:
//	      http:
//	        endpoint: "localhost:4318"
//	  traces:
//	    enabled: true
//	    span_name_as_resource_name: true
//
// Tracing is strictly best-effort. A missing or unreachable agent downgrades
// to disabled tracing with a warning; it never fails startup or shutdown.
//
// Config file (~/.mirage/config.yaml):
//
//	datadog:
//	  agent_host: "localhost:4318"
//	  environment: "dev"
//	  service_name: "mirage"
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for Datadog OTEL setup.
type Config struct {
	// AgentHost is the Datadog Agent OTLP endpoint (default: localhost:4318)
	AgentHost string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in Datadog APM
	ServiceName string
}

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// DefaultServiceName tags spans when no service name is configured.
const DefaultServiceName = "mirage"

// SetupDatadog installs a global tracer provider exporting to the local
// Datadog Agent via OTLP HTTP.
//
// Returns a shutdown function that flushes pending spans. Export failures
// during shutdown are logged, not returned: tracing must never take the
// process down with it.
func SetupDatadog(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// The agent handles authentication and forwarding to the Datadog
	// backend; localhost doesn't need TLS.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Warn("failed to create datadog exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Environment),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	slog.Debug("datadog tracing enabled",
		"agent", agentHost,
		"service", serviceName,
		"environment", cfg.Environment,
	)

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("trace flush failed on shutdown", "error", err)
		}
		return nil
	}, nil
}

// Package telemetry configures OpenTelemetry tracing for the CLI.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
)

// ServiceName is the tracer and service name
const ServiceName = "tutor-cloudflared"

const defaultEndpoint = "localhost:4317"

// Options selects the exporters. Zero values fall back to the environment.
type Options struct {
	// Exporter is "none", "console", "otlp" or "both" (OTEL_EXPORTER).
	Exporter string

	// Endpoint is the OTLP gRPC endpoint (OTEL_ENDPOINT).
	Endpoint string

	// Insecure disables TLS to the OTLP endpoint (OTEL_INSECURE, default true).
	Insecure *bool

	// Console receives pretty-printed spans; stderr when nil.
	Console io.Writer
}

// OptionsFromEnv reads OTEL_EXPORTER, OTEL_ENDPOINT and OTEL_INSECURE.
func OptionsFromEnv() Options {
	opts := Options{
		Exporter: os.Getenv("OTEL_EXPORTER"),
		Endpoint: os.Getenv("OTEL_ENDPOINT"),
	}
	if v, err := strconv.ParseBool(os.Getenv("OTEL_INSECURE")); err == nil {
		opts.Insecure = &v
	}
	return opts
}

// Setup installs a global tracer provider. Spans are always recorded; they
// are only exported when an exporter is selected.
func Setup(ctx context.Context, opts Options) (trace.Tracer, func(context.Context) error, error) {
	if opts.Exporter == "" {
		opts.Exporter = "none"
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(config.PluginVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporters []sdktrace.SpanExporter
	switch opts.Exporter {
	case "none":
	case "console":
		exp, err := consoleExporter(opts)
		if err != nil {
			return nil, nil, err
		}
		exporters = append(exporters, exp)
	case "otlp":
		exp, err := otlpExporter(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		exporters = append(exporters, exp)
	case "both":
		console, err := consoleExporter(opts)
		if err != nil {
			return nil, nil, err
		}
		otlp, err := otlpExporter(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		exporters = append(exporters, console, otlp)
	default:
		return nil, nil, fmt.Errorf("unknown OTEL_EXPORTER %q: use none, console, otlp or both", opts.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	for _, exporter := range exporters {
		tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	}

	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}
	return tp.Tracer(ServiceName), shutdown, nil
}

func consoleExporter(opts Options) (sdktrace.SpanExporter, error) {
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(opts.Console),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create console exporter: %w", err)
	}
	return exp, nil
}

func otlpExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure == nil || *opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}

	exp, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exp, nil
}

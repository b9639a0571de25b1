package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestSetup_None(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := tracer.Start(context.Background(), "test")
	span.End()
}

func TestSetup_Console(t *testing.T) {
	var buf bytes.Buffer
	tracer, shutdown, err := Setup(context.Background(), Options{Exporter: "console", Console: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, span := tracer.Start(context.Background(), "doctor.Run")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "doctor.Run") {
		t.Errorf("console exporter output missing span name:\n%s", buf.String())
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, _, err := Setup(context.Background(), Options{Exporter: "zipkin"}); err == nil {
		t.Error("Setup() should reject unknown exporters")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER", "otlp")
	t.Setenv("OTEL_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_INSECURE", "false")

	opts := OptionsFromEnv()
	if opts.Exporter != "otlp" || opts.Endpoint != "collector:4317" {
		t.Errorf("OptionsFromEnv() = %+v", opts)
	}
	if opts.Insecure == nil || *opts.Insecure {
		t.Errorf("Insecure = %v, want false", opts.Insecure)
	}
}

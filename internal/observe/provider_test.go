package observe

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Not parallel: InitProvider replaces the global providers.

func restoreGlobals(t *testing.T) {
	t.Helper()
	mp, tp := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
	})
}

func TestInitProvider_ExportsMetricsAndSpans(t *testing.T) {
	restoreGlobals(t)
	reg := prometheus.NewRegistry()
	spans := tracetest.NewInMemoryExporter()

	tel, err := InitProvider(context.Background(), ProviderConfig{
		ServiceVersion: "test",
		Registry:       reg,
		TraceExporter:  spans,
	})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	if tel.Registry != reg {
		t.Error("Registry not used")
	}

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordAgentStep(context.Background(), "web_agent")
	_, span := StartSpan(context.Background(), "agent.run")
	span.End()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "agentkit_agent_steps") {
			found = true
		}
	}
	if !found {
		t.Error("agent steps counter not exported to the registry")
	}

	// The in-memory exporter forgets its spans on shutdown, so flush first.
	if err := tel.tracers.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	got := spans.GetSpans()
	if len(got) != 1 || got[0].Name != "agent.run" {
		t.Fatalf("exported spans = %d, want one agent.run", len(got))
	}
	res := got[0].Resource
	if res.SchemaURL() != semconv.SchemaURL {
		t.Errorf("resource schema = %q, want %q", res.SchemaURL(), semconv.SchemaURL)
	}
	if v, ok := res.Set().Value(semconv.ServiceNameKey); !ok || v.AsString() != "agentkit" {
		t.Errorf("service.name = %q, want agentkit", v.AsString())
	}
	if v, _ := res.Set().Value(semconv.ServiceVersionKey); v.AsString() != "test" {
		t.Errorf("service.version = %q, want test", v.AsString())
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

// The default SDK resource and ours must agree on the semantic convention
// schema, otherwise merging them fails and serve cannot start.
func TestInitProvider_ServeConfig(t *testing.T) {
	restoreGlobals(t)

	tel, err := InitProvider(context.Background(), ProviderConfig{
		ServiceName:    "agentkit",
		ServiceVersion: "dev",
	})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestInitProvider_DefaultRegistry(t *testing.T) {
	restoreGlobals(t)

	tel, err := InitProvider(context.Background(), ProviderConfig{})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	families, err := tel.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("default registry lacks the Go runtime collector")
	}
}

func TestInitProvider_RejectsBadSampleRatio(t *testing.T) {
	restoreGlobals(t)
	if _, err := InitProvider(context.Background(), ProviderConfig{SampleRatio: 1.5}); err == nil {
		t.Fatal("expected error for sample ratio above 1")
	}
}

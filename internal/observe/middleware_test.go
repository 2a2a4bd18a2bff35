package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Not parallel: the tests swap the global tracer provider.

// ── helpers ───────────────────────────────────────────────────────────────────

type harness struct {
	metrics *Metrics
	reader  *sdkmetric.ManualReader
	spans   *tracetest.InMemoryExporter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	return &harness{metrics: m, reader: reader, spans: exp}
}

// agentMux mimics the chat API routes.
func agentMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/agents/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"output":"ok"}`)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *harness) serve(method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	Middleware(h.metrics)(agentMux()).ServeHTTP(rec, req)
	return rec
}

func (h *harness) durationPoints(t *testing.T) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "agentkit.http.request.duration")
	if met == nil {
		t.Fatal("agentkit.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric data is %T, want histogram", met.Data)
	}
	return hist.DataPoints
}

func attrValue(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.Emit()
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestMiddleware_CorrelationID(t *testing.T) {
	h := newHarness(t)

	rec := h.serve("POST", "/v1/agents/web_agent/runs", nil)

	cid := rec.Header().Get("X-Correlation-ID")
	if len(cid) != 32 {
		t.Errorf("X-Correlation-ID = %q, want a 32 char trace ID", cid)
	}
	if rec.Header().Get("traceparent") == "" {
		t.Error("traceparent not injected into the response")
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	h := newHarness(t)
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	rec := h.serve("POST", "/v1/agents/web_agent/runs", map[string]string{
		"traceparent": "00-" + traceID + "-00f067aa0ba902b7-01",
	})

	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, traceID)
	}
}

func TestMiddleware_SpanNamedAfterRoute(t *testing.T) {
	h := newHarness(t)

	h.serve("POST", "/v1/agents/mocktail_maker/runs", nil)

	spans := h.spans.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if got, want := spans[0].Name, "POST /v1/agents/{name}/runs"; got != want {
		t.Errorf("span name = %q, want %q", got, want)
	}
	var status int64
	for _, kv := range spans[0].Attributes {
		if kv.Key == "http.response.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	if status != http.StatusOK {
		t.Errorf("http.response.status_code = %d, want 200", status)
	}
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	h := newHarness(t)

	rec := h.serve("POST", "/v1/agents/broken/runs", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	spans := h.spans.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code.String() != "Error" {
		t.Errorf("span status = %+v, want Error", spans)
	}
}

func TestMiddleware_DurationLabelledByRoute(t *testing.T) {
	h := newHarness(t)

	h.serve("POST", "/v1/agents/a/runs", nil)
	h.serve("POST", "/v1/agents/b/runs", nil)
	h.serve("GET", "/nope", nil)

	byRoute := map[string]uint64{}
	for _, dp := range h.durationPoints(t) {
		byRoute[attrValue(dp.Attributes, "route")+" "+attrValue(dp.Attributes, "code")] += dp.Count
	}
	if got := byRoute["POST /v1/agents/{name}/runs 200"]; got != 2 {
		t.Errorf("run route count = %d, want 2 (points: %v)", got, byRoute)
	}
	if got := byRoute[unmatchedRoute+" 404"]; got != 1 {
		t.Errorf("unmatched count = %d, want 1 (points: %v)", got, byRoute)
	}
}

func TestResponseRecorder_CountsBytes(t *testing.T) {
	t.Parallel()
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _ = rec.Write([]byte("hello "))
	_, _ = rec.Write([]byte("agent"))
	if rec.bytes != 11 {
		t.Errorf("bytes = %d, want 11", rec.bytes)
	}
	if rec.Unwrap() == nil {
		t.Error("Unwrap returned nil")
	}
}

package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ltejedor/building-ai-agents"

// Tracer returns the agentkit tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span on [Tracer]. The caller must end it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the trace ID of the span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Run identifies the agent run a context belongs to.
type Run struct {
	Agent string
	ID    string

	// ParentID is the run of the manager that delegated this one, if any.
	ParentID string
}

type runKey struct{}

// WithRun marks ctx as belonging to run id of agent. If ctx already carries
// a run, it becomes the parent.
func WithRun(ctx context.Context, agent, id string) context.Context {
	r := Run{Agent: agent, ID: id}
	if parent, ok := RunFromContext(ctx); ok {
		r.ParentID = parent.ID
	}
	return context.WithValue(ctx, runKey{}, r)
}

// RunFromContext returns the run stored by [WithRun].
func RunFromContext(ctx context.Context) (Run, bool) {
	r, ok := ctx.Value(runKey{}).(Run)
	return r, ok
}

// Logger returns the default logger with trace_id and span_id from the span
// in ctx, and agent, run_id and parent_run_id from the run in ctx.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if r, ok := RunFromContext(ctx); ok {
		l = l.With(slog.String("agent", r.Agent), slog.String("run_id", r.ID))
		if r.ParentID != "" {
			l = l.With(slog.String("parent_run_id", r.ParentID))
		}
	}
	return l
}

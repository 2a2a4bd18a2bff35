package resilience

import (
	"context"

	"github.com/ltejedor/building-ai-agents/internal/observe"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that fails over across several model
// backends, each behind its own circuit breaker.
type LLMFallback struct {
	group *Group[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback returns a provider preferring primary. Member failures are
// counted on the agentkit.provider.errors metric unless cfg.OnFailure is
// already set.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	if cfg.OnFailure == nil {
		metrics := observe.DefaultMetrics()
		cfg.OnFailure = func(ctx context.Context, member string, _ error) {
			metrics.RecordProviderError(ctx, member, "llm")
		}
	}
	return &LLMFallback{group: NewGroup(primary, primaryName, cfg)}
}

// AddFallback registers provider to be tried after those already added.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.Add(name, provider)
}

// Names returns the backend names in trial order.
func (f *LLMFallback) Names() []string { return f.group.Names() }

// States reports the breaker state of each backend.
func (f *LLMFallback) States() map[string]State { return f.group.States() }

// Complete implements llm.Provider.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(ctx, f.group, func(ctx context.Context, p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// StreamCompletion implements llm.Provider. Only opening the stream fails
// over; errors reported inside an established stream reach the caller.
func (f *LLMFallback) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return Do(ctx, f.group, func(ctx context.Context, p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// CountTokens implements llm.Provider using the primary's counter.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	_, p := f.group.Primary()
	return p.CountTokens(messages)
}

// Capabilities implements llm.Provider. Tool calling is reported only when
// every backend supports it. The context window is the smallest one a
// backend reports; zero means unknown and is ignored.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	_, p := f.group.Primary()
	caps := p.Capabilities()
	for _, m := range f.group.members[1:] {
		c := m.value.Capabilities()
		caps.SupportsToolCalling = caps.SupportsToolCalling && c.SupportsToolCalling
		if c.ContextWindow > 0 && (caps.ContextWindow == 0 || c.ContextWindow < caps.ContextWindow) {
			caps.ContextWindow = c.ContextWindow
		}
	}
	return caps
}

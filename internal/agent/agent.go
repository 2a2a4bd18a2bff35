// Package agent implements tool-calling agents on top of an [llm.Provider]
// and an [mcp.Host].
//
// An agent relays between the model and the host: the model decides which
// tools to call through its native function calling, the host executes them,
// and the results go back to the model until it answers in plain text or the
// step limit is reached.
//
// Agents can manage other agents: [AsTool] exposes an agent as a builtin tool
// so that a manager can delegate sub-tasks to it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
	"github.com/ltejedor/building-ai-agents/internal/observe"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// DefaultMaxSteps is used when Config.MaxSteps is zero.
const DefaultMaxSteps = 10

// ErrMaxSteps is returned when the model is still calling tools after the
// configured number of steps.
var ErrMaxSteps = errors.New("step limit reached without a final answer")

// Agent answers tasks, calling tools as the model requests.
//
// Implementations must be safe for concurrent use. Concurrent Run calls on
// the same agent are serialised so the conversation stays coherent.
type Agent interface {
	// Name returns the agent's unique name.
	Name() string

	// Description says what the agent is good at. Managers show it to their
	// model when the agent is exposed as a tool.
	Description() string

	// Run appends task to the conversation and returns the model's final
	// answer.
	Run(ctx context.Context, task string) (string, error)

	// Reset forgets the conversation history.
	Reset()
}

// Config holds the dependencies of an agent built by [New].
type Config struct {
	// Name must not be empty.
	Name string

	Description string

	// Instructions are sent as the system prompt of every completion.
	Instructions string

	// Provider must not be nil.
	Provider llm.Provider

	// Host executes tool calls. Nil means the agent has no tools.
	Host mcp.Host

	// Tier limits the tools offered to the model by expected latency.
	Tier mcp.BudgetTier

	// TierSelector, when set, picks the tier per task instead of Tier.
	TierSelector TierSelector

	// MaxSteps caps completions per run. Zero selects DefaultMaxSteps.
	MaxSteps int

	// Temperature is forwarded to the provider. Zero keeps its default.
	Temperature float64

	// Metrics defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// TierSelector chooses a budget tier for each task. See package tier.
type TierSelector interface {
	Select(task string) mcp.BudgetTier
	RecordTurn()
	SetQueueDepth(n int)
	Reset()
}

// toolAgent is the concrete [Agent] returned by [New].
type toolAgent struct {
	name         string
	description  string
	instructions string
	provider     llm.Provider
	host         mcp.Host
	tier         mcp.BudgetTier
	selector     TierSelector
	maxSteps     int
	temperature  float64
	metrics      *observe.Metrics

	// waiting counts Run calls blocked on mu.
	waiting atomic.Int32

	mu       sync.Mutex
	messages []llm.Message
}

var _ Agent = (*toolAgent)(nil)

// New validates cfg and returns an agent.
//
// Errors are prefixed with "agent: ".
func New(cfg Config) (Agent, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent: Name must not be empty")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: %q: Provider must not be nil", cfg.Name)
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("agent: %q: MaxSteps must not be negative", cfg.Name)
	}

	a := &toolAgent{
		name:         cfg.Name,
		description:  cfg.Description,
		instructions: cfg.Instructions,
		provider:     cfg.Provider,
		host:         cfg.Host,
		tier:         cfg.Tier,
		selector:     cfg.TierSelector,
		maxSteps:     cfg.MaxSteps,
		temperature:  cfg.Temperature,
		metrics:      cfg.Metrics,
	}
	if a.maxSteps == 0 {
		a.maxSteps = DefaultMaxSteps
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a, nil
}

// Name implements [Agent].
func (a *toolAgent) Name() string { return a.name }

// Description implements [Agent].
func (a *toolAgent) Description() string { return a.description }

// Reset implements [Agent].
func (a *toolAgent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	if a.selector != nil {
		a.selector.Reset()
	}
}

// Run implements [Agent]. A failed run leaves the history as it was before
// the call.
func (a *toolAgent) Run(ctx context.Context, task string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("agent: %q: %w", a.name, err)
	}

	a.queueDepth(a.waiting.Add(1))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queueDepth(a.waiting.Add(-1))

	// We may have waited for another run.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("agent: %q: %w", a.name, err)
	}

	runID := uuid.NewString()
	ctx = observe.WithRun(ctx, a.name, runID)
	run, _ := observe.RunFromContext(ctx)
	ctx, span := observe.StartSpan(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent", a.name),
		attribute.String("run_id", runID),
		attribute.String("parent_run_id", run.ParentID),
	))
	defer span.End()

	a.metrics.ActiveRuns.Add(ctx, 1)
	defer a.metrics.ActiveRuns.Add(ctx, -1)

	start := time.Now()
	out, history, err := a.loop(ctx, task)
	a.metrics.RecordAgentRun(ctx, a.name, observe.Status(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	a.messages = history
	if a.selector != nil {
		a.selector.RecordTurn()
	}
	return out, nil
}

func (a *toolAgent) queueDepth(n int32) {
	if a.selector != nil {
		a.selector.SetQueueDepth(int(n))
	}
}

// tierFor returns the budget tier for task.
func (a *toolAgent) tierFor(task string) mcp.BudgetTier {
	if a.selector == nil {
		return a.tier
	}
	return a.selector.Select(task)
}

// loop runs the completion/tool cycle on a copy of the history.
func (a *toolAgent) loop(ctx context.Context, task string) (string, []llm.Message, error) {
	log := observe.Logger(ctx)

	history := make([]llm.Message, len(a.messages), len(a.messages)+1)
	copy(history, a.messages)
	history = append(history, llm.Message{Role: llm.RoleUser, Content: task})

	var defs []llm.ToolDefinition
	if a.host != nil && a.provider.Capabilities().SupportsToolCalling {
		tier := a.tierFor(task)
		defs = a.host.AvailableTools(tier)
		log.Debug("agent: tools offered", "tier", tier.String(), "count", len(defs))
	}
	offered := make(map[string]bool, len(defs))
	for _, d := range defs {
		offered[d.Name] = true
	}

	for step := 1; step <= a.maxSteps; step++ {
		a.metrics.RecordAgentStep(ctx, a.name)

		resp, err := a.complete(ctx, llm.CompletionRequest{
			SystemPrompt: a.instructions,
			Messages:     history,
			Tools:        defs,
			Temperature:  a.temperature,
		})
		if err != nil {
			return "", nil, fmt.Errorf("agent: %q: step %d: %w", a.name, step, err)
		}

		calls := withIDs(resp.ToolCalls)
		history = append(history, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			Name:      a.name,
			ToolCalls: calls,
		})
		if len(calls) == 0 {
			log.Debug("agent: final answer", "steps", step)
			return resp.Content, history, nil
		}

		for _, tc := range calls {
			log.Debug("agent: tool call", "tool", tc.Name, "step", step)
			history = append(history, llm.Message{
				Role:       llm.RoleTool,
				Name:       tc.Name,
				ToolCallID: tc.ID,
				Content:    a.callTool(ctx, log, offered, tc),
			})
		}
	}

	return "", nil, fmt.Errorf("agent: %q: %w after %d steps", a.name, ErrMaxSteps, a.maxSteps)
}

func (a *toolAgent) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := observe.StartSpan(ctx, "llm.complete")
	defer span.End()

	start := time.Now()
	resp, err := a.provider.Complete(ctx, req)
	a.metrics.RecordLLMCall(ctx, a.name, time.Since(start).Seconds())
	a.metrics.RecordProviderRequest(ctx, a.name, "llm", observe.Status(err))
	if err != nil {
		a.metrics.RecordProviderError(ctx, a.name, "llm")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("provider returned no response")
	}
	return resp, nil
}

// callTool executes tc and renders the outcome as tool message content.
// Failures are reported to the model rather than aborting the run.
func (a *toolAgent) callTool(ctx context.Context, log *slog.Logger, offered map[string]bool, tc llm.ToolCall) string {
	if !offered[tc.Name] {
		log.Warn("agent: model called unknown tool", "tool", tc.Name)
		return fmt.Sprintf("Error: unknown tool %q.", tc.Name)
	}
	res, err := a.host.ExecuteTool(ctx, tc.Name, tc.Arguments)
	if err != nil {
		log.Warn("agent: tool call failed", "tool", tc.Name, "err", err)
		return "Error: " + err.Error()
	}
	if res.IsError {
		return "Error: " + res.Content
	}
	return res.Content
}

// withIDs copies calls, giving an ID to every call that lacks one so each
// tool message can reference its call.
func withIDs(calls []llm.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, len(calls))
	for i, tc := range calls {
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		out[i] = tc
	}
	return out
}

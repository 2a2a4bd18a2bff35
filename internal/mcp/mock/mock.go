// Package mock provides a scripted [mcp.Host] for agent tests. It offers a
// fixed tool list and answers tool calls without any MCP server behind it.
//
//	h := &mock.Host{
//		AvailableToolsResult: []llm.ToolDefinition{{Name: "drink_generator"}},
//		ExecuteToolFunc: func(name, args string) (*mcp.ToolResult, error) {
//			return &mcp.ToolResult{Content: "Sunset Glow: orange juice, lime, mint"}, nil
//		},
//	}
//	// run an agent against h, then
//	if h.CallCount("ExecuteTool") != 1 { ... }
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// Call is one recorded method call. Args excludes the context.
type Call struct {
	Method string
	Args   []any
}

// Host is safe for concurrent use. The zero value offers no tools and
// answers every call with an empty result.
type Host struct {
	// AvailableToolsResult is offered for every budget tier.
	AvailableToolsResult []llm.ToolDefinition

	// ExecuteToolFunc answers tool calls per name. When nil, ExecuteToolErr
	// or else a copy of ExecuteToolResult is returned.
	ExecuteToolFunc   func(name, args string) (*mcp.ToolResult, error)
	ExecuteToolResult *mcp.ToolResult
	ExecuteToolErr    error

	RegisterServerErr error
	CalibrateErr      error
	CloseErr          error

	mu    sync.Mutex
	calls []Call
}

var _ mcp.Host = (*Host)(nil)

func (h *Host) record(method string, args ...any) {
	h.calls = append(h.calls, Call{Method: method, Args: args})
}

// Calls returns the recorded calls in order.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.calls)
}

// CallCount counts recorded calls of method.
func (h *Host) CallCount(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

func (h *Host) RegisterServer(_ context.Context, cfg mcp.ServerConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("RegisterServer", cfg)
	return h.RegisterServerErr
}

// AvailableTools records tier and returns a copy of AvailableToolsResult,
// never nil.
func (h *Host) AvailableTools(tier mcp.BudgetTier) []llm.ToolDefinition {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("AvailableTools", tier)
	out := slices.Clone(h.AvailableToolsResult)
	if out == nil {
		out = []llm.ToolDefinition{}
	}
	return out
}

func (h *Host) ExecuteTool(_ context.Context, name string, args string) (*mcp.ToolResult, error) {
	h.mu.Lock()
	h.record("ExecuteTool", name, args)
	fn, res, err := h.ExecuteToolFunc, h.ExecuteToolResult, h.ExecuteToolErr
	h.mu.Unlock()

	switch {
	case fn != nil:
		return fn(name, args)
	case err != nil:
		return nil, err
	case res == nil:
		return &mcp.ToolResult{}, nil
	}
	cp := *res
	return &cp, nil
}

func (h *Host) Calibrate(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("Calibrate")
	return h.CalibrateErr
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("Close")
	return h.CloseErr
}

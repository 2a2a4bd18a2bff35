package mcphost

import (
	"context"
	"fmt"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
	"github.com/ltejedor/building-ai-agents/pkg/ident"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// builtinServerName is the pseudo server name used for in-process tools.
const builtinServerName = "__builtin__"

// BuiltinTool is a tool implemented as a Go function that runs in-process.
//
// ExecuteTool calls Handler directly without a network or subprocess round
// trip. Builtins are otherwise treated like MCP tools: same budget tiers,
// calibration, and rolling-window metrics.
type BuiltinTool struct {
	// Definition is presented to the model. Its Name is sanitized on
	// registration.
	Definition llm.ToolDefinition

	// Handler receives a JSON object string. A non-nil error marks the
	// result as a tool error; the message is shown to the model.
	Handler func(ctx context.Context, args string) (string, error)

	// DeclaredP50 is the estimated median latency in milliseconds, used for
	// the initial tier before calibration.
	DeclaredP50 int64

	// DeclaredMax is the estimated worst-case latency in milliseconds.
	DeclaredMax int64
}

// RegisterBuiltin registers tools that are called in-process. A tool whose
// sanitized name is already taken replaces the earlier one.
func (h *Host) RegisterBuiltin(tools ...BuiltinTool) error {
	entries := make([]toolEntry, 0, len(tools))
	for _, tool := range tools {
		if tool.Definition.Name == "" {
			return fmt.Errorf("mcp host: builtin tool must have a non-empty name")
		}
		if tool.Handler == nil {
			return fmt.Errorf("mcp host: builtin tool %q must have a non-nil handler", tool.Definition.Name)
		}

		def := tool.Definition
		def.Name = ident.Sanitize(def.Name)
		if def.Parameters == nil {
			def.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		if def.EstimatedDurationMs == 0 {
			def.EstimatedDurationMs = int(tool.DeclaredP50)
		}
		if def.MaxDurationMs == 0 {
			def.MaxDurationMs = int(tool.DeclaredMax)
		}

		entries = append(entries, toolEntry{
			def:           def,
			remoteName:    tool.Definition.Name,
			serverName:    builtinServerName,
			declaredP50Ms: tool.DeclaredP50,
			declaredMaxMs: tool.DeclaredMax,
			tier:          tierFromDeclaredP50(tool.DeclaredP50),
			measurements:  newRollingWindow(defaultWindowSize),
			builtinFn:     tool.Handler,
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		h.putLocked(e)
	}
	return nil
}

// tierFromDeclaredP50 maps a declared P50 latency to a BudgetTier using the
// same thresholds as [tierFromMeasuredP50].
func tierFromDeclaredP50(p50Ms int64) mcp.BudgetTier {
	return tierFromMeasuredP50(p50Ms)
}

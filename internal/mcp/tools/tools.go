// Package tools defines the shared [Tool] type used by the builtin toolsets
// (fileio, mixology, browser). Each sub-package exports a constructor that
// returns a slice of [Tool] values ready for registration with the MCP host.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ltejedor/building-ai-agents/internal/mcp/mcphost"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// Tool is a builtin tool together with its model-facing schema.
type Tool struct {
	// Definition is the tool's schema including name, description, and JSON
	// Schema parameters.
	Definition llm.ToolDefinition

	// Handler executes the tool with JSON-encoded args. A returned error is
	// shown to the model as a tool error. Handlers must be safe for
	// concurrent use and respect ctx.
	Handler func(ctx context.Context, args string) (string, error)

	// DeclaredP50 and DeclaredMax are latency estimates in milliseconds used
	// for the initial budget tier.
	DeclaredP50 int64
	DeclaredMax int64

	// SideEffects marks tools that change state outside the process. They
	// are skipped during latency calibration.
	SideEffects bool
}

// Registrar is the subset of the MCP host that accepts builtin tools.
type Registrar interface {
	RegisterBuiltin(tools ...mcphost.BuiltinTool) error
}

// Register adds ts to r.
func Register(r Registrar, ts ...Tool) error {
	builtins := make([]mcphost.BuiltinTool, len(ts))
	for i, t := range ts {
		builtins[i] = mcphost.BuiltinTool{
			Definition:  t.Definition,
			Handler:     t.Handler,
			DeclaredP50: t.DeclaredP50,
			DeclaredMax: t.DeclaredMax,
		}
	}
	return r.RegisterBuiltin(builtins...)
}

// DecodeArgs unmarshals a tool's JSON arguments into v. An empty string is
// treated as "{}".
func DecodeArgs(tool, args string, v any) error {
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", tool, err)
	}
	return nil
}

// Object builds a JSON Schema object with the given properties and required
// keys.
func Object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// String builds a JSON Schema string property.
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

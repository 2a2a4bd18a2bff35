package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ltejedor/building-ai-agents/internal/mcp/mcphost"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tools"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

type taskArgs struct {
	Task string `json:"task"`
}

// AsTool exposes a as a builtin tool named after the agent. The tool takes
// {"task": string} and returns the agent's answer.
func AsTool(a Agent) mcphost.BuiltinTool {
	desc := a.Description()
	if desc == "" {
		desc = "Delegates a task to the " + a.Name() + " agent."
	}
	return mcphost.BuiltinTool{
		Definition: llm.ToolDefinition{
			Name:        a.Name(),
			Description: desc,
			Parameters: tools.Object(map[string]any{
				"task": tools.String("The task for this agent, with all the context it needs."),
			}, "task"),
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var t taskArgs
			if err := tools.DecodeArgs(a.Name(), args, &t); err != nil {
				return "", err
			}
			if strings.TrimSpace(t.Task) == "" {
				return "", fmt.Errorf("%s: task must not be empty", a.Name())
			}
			return a.Run(ctx, t.Task)
		},
		DeclaredP50: 5_000,
		DeclaredMax: 120_000,
	}
}

// Command agentkit runs tool-calling agents backed by MCP servers and
// builtin toolsets.
//
// Usage:
//
//	agentkit chat                       # REPL against the first agent
//	agentkit run -a web_agent "Find the Go release notes"
//	agentkit serve                      # JSON API, /healthz, /readyz, /metrics
//	agentkit tools                      # tool names each agent sees
//	agentkit mocktail Sunset Glow       # compose a recipe offline
//	agentkit speak "Hello there"        # Rime text-to-speech to agent-talk.mp3
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ltejedor/building-ai-agents/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	if err := newRootCmd(reg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agentkit: %v\n", err)
		return 1
	}
	return 0
}

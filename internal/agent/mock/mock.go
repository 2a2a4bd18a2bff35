// Package mock provides an in-memory mock implementation of [agent.Agent] for
// use in unit tests.
//
// The mock is safe for concurrent use, records Run calls, and exposes
// exported fields for configuring return values.
//
// Example:
//
//	a := &mock.Agent{NameResult: "mocktail_maker", RunResult: "Sunset Glow: ..."}
//	out, err := a.Run(ctx, "Make me a Sunset Glow")
package mock

import (
	"context"
	"sync"

	"github.com/ltejedor/building-ai-agents/internal/agent"
)

// Agent is a mock implementation of [agent.Agent].
type Agent struct {
	mu sync.Mutex

	// NameResult is returned by [Agent.Name].
	NameResult string

	// DescriptionResult is returned by [Agent.Description].
	DescriptionResult string

	// RunResult is returned by [Agent.Run] when RunErr is nil.
	RunResult string

	// RunErr is returned by [Agent.Run] when non-nil.
	RunErr error

	// RunFunc, when set, takes precedence over RunResult and RunErr.
	RunFunc func(ctx context.Context, task string) (string, error)

	tasks      []string
	resetCount int
}

var _ agent.Agent = (*Agent)(nil)

// Name implements [agent.Agent].
func (a *Agent) Name() string { return a.NameResult }

// Description implements [agent.Agent].
func (a *Agent) Description() string { return a.DescriptionResult }

// Run implements [agent.Agent].
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	a.mu.Lock()
	a.tasks = append(a.tasks, task)
	fn := a.RunFunc
	a.mu.Unlock()

	if fn != nil {
		return fn(ctx, task)
	}
	if a.RunErr != nil {
		return "", a.RunErr
	}
	return a.RunResult, nil
}

// Reset implements [agent.Agent].
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetCount++
}

// Tasks returns a copy of the tasks passed to Run, in order.
func (a *Agent) Tasks() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tasks...)
}

// ResetCount returns how many times Reset was called.
func (a *Agent) ResetCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resetCount
}

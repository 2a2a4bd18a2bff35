package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every member of a [Group] failed or was
// skipped by its breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the breaker created for each [Group] member.
// CircuitBreaker.Name is replaced by the member name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig

	// OnFailure, if set, is called for every member failure that made the
	// group move on, excluding skips by an open breaker.
	OnFailure func(ctx context.Context, member string, err error)
}

type member[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Group holds a primary and zero or more fallbacks of the same type and
// tries them in order. Members must all be added before the group is used
// concurrently.
type Group[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewGroup returns a group whose first member is primary.
func NewGroup[T any](primary T, primaryName string, cfg FallbackConfig) *Group[T] {
	g := &Group[T]{cfg: cfg}
	g.Add(primaryName, primary)
	return g
}

// Add appends a fallback. Fallbacks are tried in the order they are added.
func (g *Group[T]) Add(name string, value T) {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	g.members = append(g.members, member[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Primary returns the first member.
func (g *Group[T]) Primary() (string, T) {
	return g.members[0].name, g.members[0].value
}

// Names returns member names in trial order.
func (g *Group[T]) Names() []string {
	out := make([]string, len(g.members))
	for i, m := range g.members {
		out[i] = m.name
	}
	return out
}

// States returns the breaker state of every member, keyed by name.
func (g *Group[T]) States() map[string]State {
	out := make(map[string]State, len(g.members))
	for _, m := range g.members {
		out[m.name] = m.breaker.State()
	}
	return out
}

// Do calls fn against each member in order and returns the first success.
// It stops early and returns ctx's error once ctx is done. Otherwise, if no
// member succeeds, the error wraps [ErrAllFailed] and every member error.
func Do[T, R any](ctx context.Context, g *Group[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range g.members {
		m := &g.members[i]
		var result R
		err := m.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			result, callErr = fn(ctx, m.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", m.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", m.name, "err", err)
			if g.cfg.OnFailure != nil {
				g.cfg.OnFailure(ctx, m.name, err)
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

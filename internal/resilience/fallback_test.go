package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

type backend struct {
	name string
	err  error
}

func call(_ context.Context, b *backend) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.name, nil
}

func TestDo_PrimarySuccess(t *testing.T) {
	t.Parallel()
	g := NewGroup(&backend{name: "primary"}, "primary", FallbackConfig{})
	g.Add("secondary", &backend{name: "secondary"})

	got, err := Do(context.Background(), g, call)
	if err != nil || got != "primary" {
		t.Fatalf("Do = %q, %v", got, err)
	}
}

func TestDo_Failover(t *testing.T) {
	t.Parallel()
	var failed []string
	g := NewGroup(&backend{err: errTest}, "primary", FallbackConfig{
		OnFailure: func(_ context.Context, member string, _ error) { failed = append(failed, member) },
	})
	g.Add("secondary", &backend{name: "secondary"})

	got, err := Do(context.Background(), g, call)
	if err != nil || got != "secondary" {
		t.Fatalf("Do = %q, %v", got, err)
	}
	if !slices.Equal(failed, []string{"primary"}) {
		t.Errorf("OnFailure members = %v", failed)
	}
}

func TestDo_AllFail(t *testing.T) {
	t.Parallel()
	errB := errors.New("b down")
	g := NewGroup(&backend{err: errTest}, "a", FallbackConfig{})
	g.Add("b", &backend{err: errB})

	_, err := Do(context.Background(), g, call)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both member errors", err)
	}
}

func TestDo_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	primary := &backend{err: errTest}
	g := NewGroup(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	g.Add("secondary", &backend{name: "secondary"})

	ctx := context.Background()
	_, _ = Do(ctx, g, call)
	if g.States()["primary"] != StateOpen {
		t.Fatalf("primary state = %v, want open", g.States()["primary"])
	}

	calls := 0
	got, err := Do(ctx, g, func(ctx context.Context, b *backend) (string, error) {
		calls++
		return call(ctx, b)
	})
	if err != nil || got != "secondary" {
		t.Fatalf("Do = %q, %v", got, err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (primary skipped)", calls)
	}
}

func TestDo_StopsOnCancel(t *testing.T) {
	t.Parallel()
	g := NewGroup(&backend{name: "primary"}, "primary", FallbackConfig{})
	g.Add("secondary", &backend{name: "secondary"})

	ctx, cancel := context.WithCancel(context.Background())
	var tried []string
	_, err := Do(ctx, g, func(ctx context.Context, b *backend) (string, error) {
		tried = append(tried, b.name)
		cancel()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !slices.Equal(tried, []string{"primary"}) {
		t.Errorf("tried = %v, want only primary", tried)
	}
	if g.States()["primary"] != StateClosed {
		t.Errorf("cancel tripped the breaker")
	}
}

func TestGroup_Names(t *testing.T) {
	t.Parallel()
	g := NewGroup(1, "one", FallbackConfig{})
	g.Add("two", 2)
	g.Add("three", 3)
	if got := g.Names(); !slices.Equal(got, []string{"one", "two", "three"}) {
		t.Errorf("Names = %v", got)
	}
	name, v := g.Primary()
	if name != "one" || v != 1 {
		t.Errorf("Primary = %q, %d", name, v)
	}
}

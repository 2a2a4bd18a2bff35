package repl

import (
	"context"
	"errors"
	"strings"
	"testing"

	agentmock "github.com/ltejedor/building-ai-agents/internal/agent/mock"
)

func run(t *testing.T, a *agentmock.Agent, input string, opts Options) (string, error) {
	t.Helper()
	var out strings.Builder
	err := Run(context.Background(), a, strings.NewReader(input), &out, opts)
	return out.String(), err
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("output does not contain %q:\n%s", substr, s)
	}
}

func TestRun_TaskAndExit(t *testing.T) {
	t.Parallel()

	a := &agentmock.Agent{NameResult: "mocktail_maker", RunResult: "Sunset Glow recipe"}
	out, err := run(t, a, "  Make a Sunset Glow  \nexit\nnever read\n", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if tasks := a.Tasks(); len(tasks) != 1 || tasks[0] != "Make a Sunset Glow" {
		t.Errorf("tasks = %q, want one trimmed task", tasks)
	}
	assertContains(t, out, "Enter task (or 'exit' to quit): ")
	assertContains(t, out, "\nAgent response:\nSunset Glow recipe\n")
}

func TestRun_ExitIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"exit", "EXIT", "Quit", "quit"} {
		a := &agentmock.Agent{}
		if _, err := run(t, a, word+"\nhello\n", Options{}); err != nil {
			t.Fatalf("%s: %v", word, err)
		}
		if len(a.Tasks()) != 0 {
			t.Errorf("%s: tasks ran after exit: %v", word, a.Tasks())
		}
	}
}

func TestRun_SkipsBlankLines(t *testing.T) {
	t.Parallel()

	a := &agentmock.Agent{RunResult: "ok"}
	if _, err := run(t, a, "\n   \n\t\nfirst\n\nsecond\n", Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tasks := a.Tasks(); len(tasks) != 2 || tasks[0] != "first" || tasks[1] != "second" {
		t.Errorf("tasks = %q", tasks)
	}
}

func TestRun_ErrorsDoNotStopLoop(t *testing.T) {
	t.Parallel()

	calls := 0
	a := &agentmock.Agent{RunFunc: func(_ context.Context, task string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("model unavailable")
		}
		return "recovered", nil
	}}
	out, err := run(t, a, "one\ntwo\n", Options{Label: "Mocktail"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, out, "Error: model unavailable\n")
	assertContains(t, out, "Mocktail response:\nrecovered")
}

func TestRun_ResetCommand(t *testing.T) {
	t.Parallel()

	a := &agentmock.Agent{RunResult: "ok"}
	out, err := run(t, a, "hello\n/new\nagain\n", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.ResetCount() != 1 {
		t.Errorf("ResetCount = %d, want 1", a.ResetCount())
	}
	if len(a.Tasks()) != 2 {
		t.Errorf("reset command was sent as a task: %v", a.Tasks())
	}
	assertContains(t, out, "Conversation cleared.")
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	a := &agentmock.Agent{RunFunc: func(ctx context.Context, _ string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}

	var out strings.Builder
	err := Run(ctx, a, strings.NewReader("first\nsecond\n"), &out, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(a.Tasks()) != 1 {
		t.Errorf("tasks after cancel = %v", a.Tasks())
	}
}

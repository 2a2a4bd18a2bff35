package app_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ltejedor/building-ai-agents/internal/app"
	"github.com/ltejedor/building-ai-agents/internal/config"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
	llmmock "github.com/ltejedor/building-ai-agents/pkg/provider/llm/mock"
	ttsmock "github.com/ltejedor/building-ai-agents/pkg/provider/tts/mock"
)

// testConfig returns a config with a mocktail agent, a file agent and a
// manager that delegates to both.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "mock"}},
		Workspace: t.TempDir(),
		Agents: []config.AgentConfig{
			{
				Name:        "manager",
				Description: "Plans and delegates.",
				Managed:     []string{"mocktail-maker", "file agent"},
			},
			{
				Name:         "mocktail-maker",
				Description:  "Invents mocktails.",
				Instructions: "You make mocktails.",
				Toolsets:     []string{config.ToolsetMixology},
			},
			{
				Name:     "file agent",
				Toolsets: []string{config.ToolsetFileIO},
			},
		},
	}
}

func toolProvider(responses ...*llm.CompletionResponse) *llmmock.Provider {
	return &llmmock.Provider{
		CompleteResponses: responses,
		ModelCapabilities: llm.ModelCapabilities{SupportsToolCalling: true},
	}
}

func newApp(t *testing.T, cfg *config.Config, p *app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, p, opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func toolNames(defs []llm.ToolDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	slices.Sort(out)
	return out
}

// ─── New ─────────────────────────────────────────────────────────────────────

func TestNew_NoAgents(t *testing.T) {
	t.Parallel()
	a := newApp(t, &config.Config{}, nil)
	if got := a.Agents(); len(got) != 0 {
		t.Errorf("Agents() = %d, want 0", len(got))
	}
	if err := a.Ready(context.Background()); err != nil {
		t.Errorf("Ready() = %v", err)
	}
}

func TestNew_AgentsWithoutLLM(t *testing.T) {
	t.Parallel()
	_, err := app.New(context.Background(), testConfig(t), &app.Providers{})
	if err == nil || !strings.Contains(err.Error(), "no LLM provider") {
		t.Fatalf("err = %v, want missing LLM error", err)
	}
}

func TestNew_AgentsInConfigOrder(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig(t), &app.Providers{LLM: toolProvider()})

	var names []string
	for _, ag := range a.Agents() {
		names = append(names, ag.Name())
	}
	want := []string{"manager", "mocktail-maker", "file agent"}
	if !slices.Equal(names, want) {
		t.Errorf("Agents() = %v, want %v", names, want)
	}

	ag, err := a.Agent("mocktail-maker")
	if err != nil {
		t.Fatalf("Agent() error: %v", err)
	}
	if ag.Description() != "Invents mocktails." {
		t.Errorf("Description() = %q", ag.Description())
	}
	if _, err := a.Agent("bartender"); !errors.Is(err, app.ErrUnknownAgent) {
		t.Errorf("Agent(bartender) err = %v, want ErrUnknownAgent", err)
	}
}

func TestTools_PerAgent(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig(t), &app.Providers{LLM: toolProvider()})

	tests := []struct {
		agent string
		want  []string
	}{
		{"manager", []string{"file_agent", "mocktail_maker"}},
		{"mocktail-maker", []string{"drink_generator", "get_available_ingredients"}},
		{"file agent", []string{"create_file", "read_file"}},
	}
	for _, tt := range tests {
		defs, err := a.Tools(tt.agent)
		if err != nil {
			t.Fatalf("Tools(%q): %v", tt.agent, err)
		}
		if got := toolNames(defs); !slices.Equal(got, tt.want) {
			t.Errorf("Tools(%q) = %v, want %v", tt.agent, got, tt.want)
		}
	}

	if _, err := a.Tools("nobody"); !errors.Is(err, app.ErrUnknownAgent) {
		t.Errorf("Tools(nobody) err = %v", err)
	}
}

func TestAutoTierAgentOffersTools(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Agents[1].BudgetTier = config.BudgetTierAuto
	p := toolProvider(&llm.CompletionResponse{Content: "Cheers!"})
	a := newApp(t, cfg, &app.Providers{LLM: p})

	ag, err := a.Agent("mocktail-maker")
	if err != nil {
		t.Fatalf("Agent: %v", err)
	}
	if _, err := ag.Run(context.Background(), "Make me a Sunset Glow"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete calls = %d, want 1", len(calls))
	}
	if got := toolNames(calls[0].Req.Tools); !slices.Equal(got, []string{"drink_generator", "get_available_ingredients"}) {
		t.Errorf("offered tools = %v", got)
	}
}

func TestManagerDelegatesToManagedAgent(t *testing.T) {
	t.Parallel()
	provider := toolProvider(
		&llm.CompletionResponse{ToolCalls: []llm.ToolCall{{
			ID: "call_1", Name: "mocktail_maker", Arguments: `{"task":"Invent a Sunset Glow"}`,
		}}},
		&llm.CompletionResponse{Content: "Sunset Glow: orange juice, grenadine, soda."},
		&llm.CompletionResponse{Content: "Here is your Sunset Glow."},
	)
	a := newApp(t, testConfig(t), &app.Providers{LLM: provider})

	manager, err := a.Agent("manager")
	if err != nil {
		t.Fatal(err)
	}
	out, err := manager.Run(context.Background(), "Make me a mocktail")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out != "Here is your Sunset Glow." {
		t.Errorf("output = %q", out)
	}

	calls := provider.Calls()
	if len(calls) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(calls))
	}
	inner := calls[1].Req
	if inner.SystemPrompt != "You make mocktails." {
		t.Errorf("managed agent system prompt = %q", inner.SystemPrompt)
	}
	if last := inner.Messages[len(inner.Messages)-1]; last.Content != "Invent a Sunset Glow" {
		t.Errorf("managed agent task = %q", last.Content)
	}
	final := calls[2].Req.Messages
	if tool := final[len(final)-1]; tool.Role != llm.RoleTool || !strings.Contains(tool.Content, "Sunset Glow") {
		t.Errorf("manager did not see the managed agent's answer: %+v", tool)
	}
}

func TestNew_CustomIngredientCatalog(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Mocktail.Ingredients = []string{"yuzu", "tonic"}
	provider := toolProvider(
		&llm.CompletionResponse{ToolCalls: []llm.ToolCall{{ID: "1", Name: "get_available_ingredients"}}},
		&llm.CompletionResponse{Content: "done"},
	)
	a := newApp(t, cfg, &app.Providers{LLM: provider})

	ag, _ := a.Agent("mocktail-maker")
	if _, err := ag.Run(context.Background(), "What do we have?"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	msgs := provider.Calls()[1].Req.Messages
	got := msgs[len(msgs)-1].Content
	if !strings.Contains(got, "yuzu") || !strings.Contains(got, "tonic") {
		t.Errorf("ingredients = %q, want configured catalog", got)
	}
}

// ─── required_env ────────────────────────────────────────────────────────────

func notionConfig(t *testing.T, env map[string]string) *config.Config {
	cfg := testConfig(t)
	cfg.MCP.Servers = []config.MCPServerConfig{{
		Name:        "notion",
		Command:     "/nonexistent/agentkit-test-mcp-server",
		Env:         env,
		RequiredEnv: []string{"NOTION_TOKEN"},
	}}
	cfg.Agents[0].Servers = []string{"notion"}
	return cfg
}

func noEnv(string) (string, bool) { return "", false }

func TestNew_MissingRequiredEnv(t *testing.T) {
	t.Parallel()
	_, err := app.New(context.Background(), notionConfig(t, nil),
		&app.Providers{LLM: toolProvider()}, app.WithEnvLookup(noEnv))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "NOTION_TOKEN") {
		t.Errorf("err = %v, want mention of NOTION_TOKEN", err)
	}
}

func TestNew_RequiredEnvFromProcessThenConnectFails(t *testing.T) {
	t.Parallel()
	lookup := func(name string) (string, bool) {
		if name == "NOTION_TOKEN" {
			return "ntn_test", true
		}
		return "", false
	}
	_, err := app.New(context.Background(), notionConfig(t, nil),
		&app.Providers{LLM: toolProvider()}, app.WithEnvLookup(lookup))
	if err == nil {
		t.Fatal("expected connect error for missing server binary")
	}
	if strings.Contains(err.Error(), "requires environment variable") {
		t.Errorf("required_env should be satisfied, got %v", err)
	}
	if !strings.Contains(err.Error(), `"notion"`) {
		t.Errorf("err = %v, want server name", err)
	}
}

func TestNew_RequiredEnvFromServerEnv(t *testing.T) {
	t.Parallel()
	_, err := app.New(context.Background(), notionConfig(t, map[string]string{"NOTION_TOKEN": "x"}),
		&app.Providers{LLM: toolProvider()}, app.WithEnvLookup(noEnv))
	if err != nil && strings.Contains(err.Error(), "requires environment variable") {
		t.Errorf("env entry should satisfy required_env, got %v", err)
	}
}

// ─── Calibration, health, shutdown ───────────────────────────────────────────

func TestNew_CalibrateKeepsTools(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MCP.Calibrate = true
	a := newApp(t, cfg, &app.Providers{LLM: toolProvider()})

	defs, err := a.Tools("file agent")
	if err != nil {
		t.Fatal(err)
	}
	if got := toolNames(defs); !slices.Equal(got, []string{"create_file", "read_file"}) {
		t.Errorf("tools after calibration = %v", got)
	}
}

func TestHealthCheckers(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig(t), &app.Providers{LLM: toolProvider()})

	checkers := a.HealthCheckers()
	if len(checkers) != 3 {
		t.Fatalf("checkers = %d, want 3", len(checkers))
	}
	if checkers[0].Name != "agent:manager" {
		t.Errorf("checker[0] = %q", checkers[0].Name)
	}
	for _, c := range checkers {
		if err := c.Check(context.Background()); err != nil {
			t.Errorf("%s: %v", c.Name, err)
		}
	}
}

func TestTTS(t *testing.T) {
	t.Parallel()
	speech := &ttsmock.Provider{}
	a := newApp(t, &config.Config{}, &app.Providers{TTS: speech})
	if a.TTS() != speech {
		t.Error("TTS() did not return the configured provider")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()
	a, err := app.New(context.Background(), testConfig(t), &app.Providers{LLM: toolProvider()})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestShutdown_ExpiredContext(t *testing.T) {
	t.Parallel()
	a, err := app.New(context.Background(), testConfig(t), &app.Providers{LLM: toolProvider()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Shutdown err = %v, want context.Canceled", err)
	}
}

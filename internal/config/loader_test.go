package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── ExpandEnv ─────────────────────────────────────────────────────────────────

func TestExpandEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant",
		"NOTION_TOKEN":      "ntn_123",
		"HOME":              "/home/me",
		"MCP_TOKEN":         "tok",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{
		Providers: ProvidersConfig{
			LLM: ProviderEntry{Name: "anthropic", APIKey: "${ANTHROPIC_API_KEY}"},
			TTS: ProviderEntry{Name: "rime", APIKey: "${RIME_API_KEY}", Options: map[string]any{"speaker": "${HOME}", "n": 3}},
		},
		MCP: MCPConfig{Servers: []MCPServerConfig{{
			Name:    "notion",
			Command: "npx",
			Args:    []string{"--dir=${HOME}/notes"},
			Env:     map[string]string{"NOTION_TOKEN": "${NOTION_TOKEN}"},
			Auth:    &MCPAuthConfig{Token: "Bearer ${MCP_TOKEN}"},
		}}},
		Workspace: "${HOME}/workspace",
	}
	ExpandEnv(cfg, lookup)

	if cfg.Providers.LLM.APIKey != "sk-ant" {
		t.Errorf("llm api_key = %q", cfg.Providers.LLM.APIKey)
	}
	if cfg.Providers.TTS.APIKey != "" {
		t.Errorf("unset var should expand to empty, got %q", cfg.Providers.TTS.APIKey)
	}
	if cfg.Providers.TTS.Options["speaker"] != "/home/me" || cfg.Providers.TTS.Options["n"] != 3 {
		t.Errorf("options = %v", cfg.Providers.TTS.Options)
	}
	srv := cfg.MCP.Servers[0]
	if srv.Args[0] != "--dir=/home/me/notes" {
		t.Errorf("args = %v", srv.Args)
	}
	if srv.Env["NOTION_TOKEN"] != "ntn_123" {
		t.Errorf("env = %v", srv.Env)
	}
	if srv.Auth.Token != "Bearer tok" {
		t.Errorf("token = %q", srv.Auth.Token)
	}
	if cfg.Workspace != "/home/me/workspace" {
		t.Errorf("workspace = %q", cfg.Workspace)
	}
}

func TestExpandEnv_LeavesPlainDollarAlone(t *testing.T) {
	t.Parallel()
	cfg := &Config{Providers: ProvidersConfig{LLM: ProviderEntry{APIKey: "pa$$word"}}}
	ExpandEnv(cfg, func(string) (string, bool) { return "x", true })
	if cfg.Providers.LLM.APIKey != "pa$$word" {
		t.Errorf("api_key = %q", cfg.Providers.LLM.APIKey)
	}
}

// ── Validate ──────────────────────────────────────────────────────────────────

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{LogLevel: LogInfo},
		Providers: ProvidersConfig{LLM: ProviderEntry{Name: "anthropic"}},
		MCP: MCPConfig{Servers: []MCPServerConfig{
			{Name: "notion", Command: "npx -y @notionhq/notion-mcp-server"},
		}},
		Agents: []AgentConfig{
			{Name: "mocktail_maker", Toolsets: []string{ToolsetMixology}},
			{Name: "manager", Servers: []string{"notion"}, Managed: []string{"mocktail_maker"}},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AutoTier(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Agents[1].BudgetTier = BudgetTierAuto
	if err := Validate(cfg); err != nil {
		t.Fatalf("auto tier should be valid: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "server.log_level"},
		{"missing llm", func(c *Config) { c.Providers.LLM.Name = "" }, "providers.llm.name is required"},
		{"fallback without name", func(c *Config) { c.Providers.LLMFallbacks = []ProviderEntry{{}} }, "llm_fallbacks[0].name"},
		{"server without name", func(c *Config) { c.MCP.Servers[0].Name = ""; c.Agents[1].Servers = nil }, "mcp.servers[0].name is required"},
		{"duplicate server", func(c *Config) { c.MCP.Servers = append(c.MCP.Servers, c.MCP.Servers[0]) }, "duplicate"},
		{"bad transport", func(c *Config) { c.MCP.Servers[0].Transport = "carrier-pigeon" }, "transport"},
		{"stdio without command", func(c *Config) { c.MCP.Servers[0].Command = "" }, "command is required"},
		{"http without url", func(c *Config) {
			c.MCP.Servers[0].Transport = "streamable-http"
			c.MCP.Servers[0].Command = ""
		}, "url is required"},
		{"agent without name", func(c *Config) { c.Agents = append(c.Agents, AgentConfig{}) }, "agents[2].name is required"},
		{"duplicate agent", func(c *Config) { c.Agents = append(c.Agents, AgentConfig{Name: "manager"}) }, "duplicate of agents[1]"},
		{"negative max steps", func(c *Config) { c.Agents[0].MaxSteps = -1 }, "max_steps"},
		{"bad budget tier", func(c *Config) { c.Agents[0].BudgetTier = "instant" }, "budget_tier"},
		{"unknown server", func(c *Config) { c.Agents[0].Servers = []string{"github"} }, `unknown mcp server "github"`},
		{"unknown toolset", func(c *Config) { c.Agents[0].Toolsets = []string{"dice"} }, `unknown toolset "dice"`},
		{"unknown managed", func(c *Config) { c.Agents[1].Managed = []string{"ghost"} }, `unknown agent "ghost"`},
		{"self managed", func(c *Config) { c.Agents[1].Managed = []string{"manager"} }, "cannot manage itself"},
		{"cycle", func(c *Config) { c.Agents[0].Managed = []string{"manager"} }, "cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.LogLevel = "loud"
	cfg.Agents[0].BudgetTier = "instant"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "log_level") || !strings.Contains(msg, "budget_tier") {
		t.Errorf("expected both failures, got %q", msg)
	}
}

func TestValidate_NoAgentsNeedsNoLLM(t *testing.T) {
	t.Parallel()
	if err := Validate(&Config{}); err != nil {
		t.Errorf("empty config should be valid: %v", err)
	}
}

// ── AgentOrder ────────────────────────────────────────────────────────────────

func names(agents []AgentConfig) []string {
	out := make([]string, len(agents))
	for i, a := range agents {
		out[i] = a.Name
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestAgentOrder_ManagedFirst(t *testing.T) {
	t.Parallel()
	agents := []AgentConfig{
		{Name: "boss", Managed: []string{"middle", "web"}},
		{Name: "middle", Managed: []string{"leaf"}},
		{Name: "leaf"},
		{Name: "web"},
	}
	got, err := AgentOrder(agents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := names(got)
	if len(order) != 4 {
		t.Fatalf("order = %v", order)
	}
	for _, pair := range [][2]string{{"leaf", "middle"}, {"middle", "boss"}, {"web", "boss"}} {
		if indexOf(order, pair[0]) > indexOf(order, pair[1]) {
			t.Errorf("%s must come before %s in %v", pair[0], pair[1], order)
		}
	}
}

func TestAgentOrder_Cycle(t *testing.T) {
	t.Parallel()
	agents := []AgentConfig{
		{Name: "a", Managed: []string{"b"}},
		{Name: "b", Managed: []string{"c"}},
		{Name: "c", Managed: []string{"a"}},
	}
	_, err := AgentOrder(agents)
	if !errors.Is(err, ErrManagedCycle) {
		t.Fatalf("err = %v, want ErrManagedCycle", err)
	}
}

func TestAgentOrder_IgnoresUnknownAndSelf(t *testing.T) {
	t.Parallel()
	agents := []AgentConfig{{Name: "a", Managed: []string{"a", "ghost"}}}
	got, err := AgentOrder(agents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "a" {
		t.Errorf("got %v", names(got))
	}
}

// ── Load ──────────────────────────────────────────────────────────────────────

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "agentkit.yaml")
	content := "providers:\n  llm:\n    name: ollama\n    model: llama3\nagents:\n  - name: helper\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.Name != "ollama" || len(cfg.Agents) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_ExpandsProcessEnv(t *testing.T) {
	t.Setenv("AGENTKIT_TEST_MODEL", "gpt-4o-mini")
	path := filepath.Join(t.TempDir(), "agentkit.yaml")
	content := "providers:\n  llm:\n    name: openai\n    model: ${AGENTKIT_TEST_MODEL}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.Providers.LLM.Model)
	}
}

// Package config provides the configuration schema, loader, hot-reload
// watcher, and provider registry for agentkit.
package config

import (
	"github.com/ltejedor/building-ai-agents/internal/mcp"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Builtin toolset names accepted in agents[].toolsets.
const (
	ToolsetFileIO   = "fileio"
	ToolsetMixology = "mixology"
	ToolsetBrowser  = "browser"
)

// KnownToolsets lists every builtin toolset name.
var KnownToolsets = []string{ToolsetFileIO, ToolsetMixology, ToolsetBrowser}

// Defaults applied by [LoadFromReader].
const (
	DefaultListenAddr = ":8080"
	DefaultWorkspace  = "workspace"
)

// Config is the root configuration structure for agentkit.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	MCP       MCPConfig       `yaml:"mcp"`
	Agents    []AgentConfig   `yaml:"agents"`
	Browser   BrowserConfig   `yaml:"browser"`
	Mocktail  MocktailConfig  `yaml:"mocktail"`

	// Workspace is the directory the fileio toolset may read and write.
	Workspace string `yaml:"workspace"`
}

// ServerConfig holds network and logging settings for `agentkit serve`.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use. Each entry
// selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallbacks are tried in order when LLM fails or its circuit is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`

	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "anthropic",
	// "openai-compatible", "rime").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "Qwen/Qwen2.5-72B-Instruct").
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered above, e.g. the
	// Rime "speaker".
	Options map[string]any `yaml:"options"`
}

// MCPConfig holds the Model Context Protocol servers agents may use.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`

	// Calibrate probes every side-effect-free tool after connecting and
	// re-tiers it from measured latency.
	Calibrate bool `yaml:"calibrate"`
}

// MCPServerConfig describes how to connect to a single MCP tool server.
type MCPServerConfig struct {
	// Name is unique and referenced from agents[].servers.
	Name string `yaml:"name"`

	// Transport is "stdio" (default) or "streamable-http" ("http" is an alias).
	Transport string `yaml:"transport"`

	// Command is the executable, optionally with arguments, launched for
	// stdio servers (e.g., "npx -y @notionhq/notion-mcp-server").
	Command string `yaml:"command"`

	// Args are appended after any arguments embedded in Command.
	Args []string `yaml:"args"`

	// Dir is the working directory of the stdio server process.
	Dir string `yaml:"dir"`

	// URL is the endpoint of a streamable-http server.
	URL string `yaml:"url"`

	// Env holds additional environment variables for the stdio subprocess.
	Env map[string]string `yaml:"env"`

	// RequiredEnv names variables that must be set (in Env or the process
	// environment) before the server is started, e.g. RIME_API_KEY.
	RequiredEnv []string `yaml:"required_env"`

	// InheritEnv passes the parent environment to the subprocess. Defaults
	// to true.
	InheritEnv *bool `yaml:"inherit_env"`

	// Auth configures authentication for streamable-http servers.
	Auth *MCPAuthConfig `yaml:"auth"`
}

// MCPAuthConfig configures authentication for HTTP-based MCP servers.
type MCPAuthConfig struct {
	// Token is a static bearer token sent on every request.
	Token string `yaml:"token"`
}

// TransportValue returns the parsed transport, defaulting to stdio.
func (s MCPServerConfig) TransportValue() (mcp.Transport, bool) {
	if s.Transport == "" {
		return mcp.TransportStdio, true
	}
	return mcp.ParseTransport(s.Transport)
}

// HostConfig converts s into the MCP host's connection description.
func (s MCPServerConfig) HostConfig() mcp.ServerConfig {
	transport, _ := s.TransportValue()
	out := mcp.ServerConfig{
		Name:       s.Name,
		Transport:  transport,
		Command:    s.Command,
		Args:       s.Args,
		Dir:        s.Dir,
		URL:        s.URL,
		Env:        s.Env,
		InheritEnv: s.InheritEnv == nil || *s.InheritEnv,
	}
	if s.Auth != nil {
		out.Token = s.Auth.Token
	}
	return out
}

// AgentConfig describes one agent.
type AgentConfig struct {
	// Name is unique. Managers call this agent through a tool of the same
	// (sanitized) name.
	Name string `yaml:"name"`

	// Description tells managers what this agent is for.
	Description string `yaml:"description"`

	// Instructions become the system prompt.
	Instructions string `yaml:"instructions"`

	// MaxSteps caps model round trips per task. 0 selects the default.
	MaxSteps int `yaml:"max_steps"`

	// Temperature is forwarded to the model. 0 keeps the provider default.
	Temperature float64 `yaml:"temperature"`

	// BudgetTier is "fast", "standard", "deep" (default) or "auto". Auto
	// picks a tier per task from the task text.
	BudgetTier string `yaml:"budget_tier"`

	// Servers lists mcp.servers[].name entries this agent connects to.
	Servers []string `yaml:"servers"`

	// Toolsets lists builtin toolsets: fileio, mixology, browser.
	Toolsets []string `yaml:"toolsets"`

	// Managed lists other agents this one can delegate to.
	Managed []string `yaml:"managed"`
}

// BudgetTierAuto selects the tier per task.
const BudgetTierAuto = "auto"

// AutoTier reports whether the agent picks its tier per task.
func (a AgentConfig) AutoTier() bool { return a.BudgetTier == BudgetTierAuto }

// Tier returns the parsed budget tier. Auto agents report deep, the widest
// tool set they may be offered.
func (a AgentConfig) Tier() mcp.BudgetTier {
	t, _ := mcp.ParseBudgetTier(a.BudgetTier)
	return t
}

// BrowserConfig configures the Chrome instance behind the browser toolset.
type BrowserConfig struct {
	// Headless defaults to true.
	Headless *bool `yaml:"headless"`

	// Bin is the Chrome binary. Empty lets go-rod find or download one.
	Bin string `yaml:"bin"`

	// StartURL is opened before the first navigation.
	StartURL string `yaml:"start_url"`
}

// IsHeadless reports the effective headless setting.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// MocktailConfig configures the mixology toolset.
type MocktailConfig struct {
	// Ingredients replaces the stock catalog when non-empty.
	Ingredients []string `yaml:"ingredients"`
}

// Agent returns the agent named name.
func (c *Config) Agent(name string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// MCPServer returns the MCP server named name.
func (c *Config) MCPServer(name string) (MCPServerConfig, bool) {
	for _, s := range c.MCP.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return MCPServerConfig{}, false
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-compatible"},
	"tts": {"rime"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the environment, applies defaults, and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ExpandEnv(cfg, os.LookupEnv)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Workspace == "" {
		cfg.Workspace = DefaultWorkspace
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references in the string fields of cfg that
// commonly carry secrets or paths. Unset variables expand to the empty
// string and are logged.
func ExpandEnv(cfg *Config, lookup func(string) (string, bool)) {
	expand := func(s string) string {
		return envRef.ReplaceAllStringFunc(s, func(ref string) string {
			name := envRef.FindStringSubmatch(ref)[1]
			v, ok := lookup(name)
			if !ok {
				slog.Warn("config: environment variable is not set", "var", name)
			}
			return v
		})
	}
	expandEntry := func(e *ProviderEntry) {
		e.APIKey = expand(e.APIKey)
		e.BaseURL = expand(e.BaseURL)
		e.Model = expand(e.Model)
		for k, v := range e.Options {
			if s, ok := v.(string); ok {
				e.Options[k] = expand(s)
			}
		}
	}

	expandEntry(&cfg.Providers.LLM)
	for i := range cfg.Providers.LLMFallbacks {
		expandEntry(&cfg.Providers.LLMFallbacks[i])
	}
	expandEntry(&cfg.Providers.TTS)

	for i := range cfg.MCP.Servers {
		s := &cfg.MCP.Servers[i]
		s.Command = expand(s.Command)
		s.Dir = expand(s.Dir)
		s.URL = expand(s.URL)
		for j := range s.Args {
			s.Args[j] = expand(s.Args[j])
		}
		for k, v := range s.Env {
			s.Env[k] = expand(v)
		}
		if s.Auth != nil {
			s.Auth.Token = expand(s.Auth.Token)
		}
	}

	cfg.Workspace = expand(cfg.Workspace)
	cfg.Browser.Bin = expand(cfg.Browser.Bin)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
		}
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("tts", cfg.Providers.TTS.Name)
	if len(cfg.Agents) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required when agents are configured"))
	}

	// MCP servers
	serverIdx := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := serverIdx[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			serverIdx[srv.Name] = i
		}
		transport, ok := srv.TransportValue()
		if !ok {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
			continue
		}
		if transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	// Agents
	agentIdx := make(map[string]int, len(cfg.Agents))
	for i, a := range cfg.Agents {
		if a.Name == "" {
			continue
		}
		if prev, ok := agentIdx[a.Name]; ok {
			errs = append(errs, fmt.Errorf("agents[%d].name %q is a duplicate of agents[%d]", i, a.Name, prev))
			continue
		}
		agentIdx[a.Name] = i
	}
	for i, a := range cfg.Agents {
		prefix := fmt.Sprintf("agents[%d]", i)
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if a.MaxSteps < 0 {
			errs = append(errs, fmt.Errorf("%s.max_steps %d must not be negative", prefix, a.MaxSteps))
		}
		if _, ok := mcp.ParseBudgetTier(a.BudgetTier); !ok && !a.AutoTier() {
			errs = append(errs, fmt.Errorf("%s.budget_tier %q is invalid; valid values: fast, standard, deep, auto", prefix, a.BudgetTier))
		}
		for _, s := range a.Servers {
			if _, ok := serverIdx[s]; !ok {
				errs = append(errs, fmt.Errorf("%s.servers: unknown mcp server %q", prefix, s))
			}
		}
		for _, ts := range a.Toolsets {
			if !slices.Contains(KnownToolsets, ts) {
				errs = append(errs, fmt.Errorf("%s.toolsets: unknown toolset %q; valid values: fileio, mixology, browser", prefix, ts))
			}
		}
		for _, m := range a.Managed {
			if m == a.Name {
				errs = append(errs, fmt.Errorf("%s.managed: agent %q cannot manage itself", prefix, m))
			} else if _, ok := agentIdx[m]; !ok {
				errs = append(errs, fmt.Errorf("%s.managed: unknown agent %q", prefix, m))
			}
		}
	}
	if _, err := AgentOrder(cfg.Agents); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ErrManagedCycle is returned by [AgentOrder] when agents manage each other
// in a loop.
var ErrManagedCycle = errors.New("config: managed agents form a cycle")

// AgentOrder returns agents sorted so that every managed agent comes before
// its managers. Unknown and self references are ignored; [Validate] reports
// them.
func AgentOrder(agents []AgentConfig) ([]AgentConfig, error) {
	byName := make(map[string]AgentConfig, len(agents))
	for _, a := range agents {
		if _, dup := byName[a.Name]; !dup {
			byName[a.Name] = a
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(agents))
	out := make([]AgentConfig, 0, len(byName))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %v", ErrManagedCycle, append(path, name))
		}
		state[name] = visiting
		for _, m := range byName[name].Managed {
			if _, ok := byName[m]; !ok || m == name {
				continue
			}
			if err := visit(m, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		out = append(out, byName[name])
		return nil
	}

	for _, a := range agents {
		if err := visit(a.Name, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

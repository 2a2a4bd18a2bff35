// Package app wires configured agents, their MCP servers and their builtin
// toolsets into a running agentkit instance.
//
// New builds everything synchronously and Shutdown tears it down in reverse
// order. Every agent gets its own MCP host so that its tool list contains
// exactly the servers, toolsets and managed agents its config names.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ltejedor/building-ai-agents/internal/agent"
	"github.com/ltejedor/building-ai-agents/internal/config"
	"github.com/ltejedor/building-ai-agents/internal/health"
	"github.com/ltejedor/building-ai-agents/internal/mcp/mcphost"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tier"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tools"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tools/browser"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tools/fileio"
	"github.com/ltejedor/building-ai-agents/internal/mcp/tools/mixology"
	"github.com/ltejedor/building-ai-agents/internal/observe"
	"github.com/ltejedor/building-ai-agents/pkg/ident"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
	"github.com/ltejedor/building-ai-agents/pkg/provider/tts"
)

// ErrUnknownAgent is returned when a caller names an agent that is not
// configured.
var ErrUnknownAgent = errors.New("app: unknown agent")

// Providers holds one value per provider slot. Nil means not configured.
// Populated by the CLI from the config registry.
type Providers struct {
	LLM llm.Provider
	TTS tts.Provider
}

// App owns the agents and everything they depend on.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics
	lookupEnv func(string) (string, bool)

	hosts   map[string]*mcphost.Host
	agents  map[string]agent.Agent
	order   []string
	browser *browser.Manager

	// sideEffects holds, per agent, the sanitized names of builtin tools
	// that change state outside the process.
	sideEffects map[string][]string

	// closers run in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics records to m instead of observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithEnvLookup replaces os.LookupEnv for required_env checks.
func WithEnvLookup(fn func(string) (string, bool)) Option {
	return func(a *App) { a.lookupEnv = fn }
}

// WithBrowser supplies the browser used by the browser toolset. The App
// closes it on Shutdown.
func WithBrowser(m *browser.Manager) Option {
	return func(a *App) { a.browser = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App from cfg. It connects every agent's MCP servers
// concurrently, registers builtin toolsets, and builds agents so that
// managed agents exist before their managers. On error everything created
// so far is closed.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		metrics:   observe.DefaultMetrics(),
		lookupEnv: os.LookupEnv,
		hosts:     make(map[string]*mcphost.Host, len(cfg.Agents)),
		agents:    make(map[string]agent.Agent, len(cfg.Agents)),

		sideEffects: make(map[string][]string),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.init(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if len(a.cfg.Agents) > 0 && a.providers.LLM == nil {
		return errors.New("app: agents are configured but no LLM provider is available")
	}
	if err := a.checkRequiredEnv(); err != nil {
		return err
	}

	for _, ac := range a.cfg.Agents {
		host := mcphost.New(
			mcphost.WithMetrics(a.metrics),
			mcphost.WithLogger(slog.Default().With("agent", ac.Name)),
		)
		a.hosts[ac.Name] = host
		a.closers = append(a.closers, host.Close)
	}

	// ── 1. MCP servers ───────────────────────────────────────────────────
	if err := a.connectServers(ctx); err != nil {
		return err
	}

	// ── 2. Builtin toolsets ──────────────────────────────────────────────
	for _, ac := range a.cfg.Agents {
		if err := a.registerToolsets(ac); err != nil {
			return fmt.Errorf("app: agent %q: %w", ac.Name, err)
		}
	}

	// ── 3. Agents, managed first ─────────────────────────────────────────
	ordered, err := config.AgentOrder(a.cfg.Agents)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	for _, ac := range ordered {
		if err := a.buildAgent(ac); err != nil {
			return err
		}
	}
	for _, ac := range a.cfg.Agents {
		a.order = append(a.order, ac.Name)
	}

	// ── 4. Optional calibration ──────────────────────────────────────────
	if a.cfg.MCP.Calibrate {
		a.calibrate(ctx)
	}
	return nil
}

// checkRequiredEnv verifies every server's required_env before any process
// is started, reporting all missing variables at once.
func (a *App) checkRequiredEnv() error {
	var errs []error
	for _, srv := range a.cfg.MCP.Servers {
		for _, name := range srv.RequiredEnv {
			if v, ok := srv.Env[name]; ok && v != "" {
				continue
			}
			if v, ok := a.lookupEnv(name); ok && v != "" {
				continue
			}
			errs = append(errs, fmt.Errorf("mcp server %q requires environment variable %s", srv.Name, name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("app: %w", errors.Join(errs...))
	}
	return nil
}

// connectServers registers every (agent, server) pair concurrently.
func (a *App) connectServers(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ac := range a.cfg.Agents {
		host := a.hosts[ac.Name]
		for _, name := range ac.Servers {
			srv, ok := a.cfg.MCPServer(name)
			if !ok {
				return fmt.Errorf("app: agent %q: unknown mcp server %q", ac.Name, name)
			}
			g.Go(func() error {
				if err := host.RegisterServer(gctx, srv.HostConfig()); err != nil {
					return fmt.Errorf("app: agent %q: connect mcp server %q: %w", ac.Name, name, err)
				}
				slog.Info("connected MCP server", "agent", ac.Name, "server", name)
				return nil
			})
		}
	}
	return g.Wait()
}

func (a *App) registerToolsets(ac config.AgentConfig) error {
	host := a.hosts[ac.Name]
	for _, ts := range ac.Toolsets {
		var set []tools.Tool
		switch ts {
		case config.ToolsetFileIO:
			fs, err := fileio.NewTools(a.cfg.Workspace)
			if err != nil {
				return err
			}
			set = fs
		case config.ToolsetMixology:
			var opts []mixology.Option
			if len(a.cfg.Mocktail.Ingredients) > 0 {
				opts = append(opts, mixology.WithCatalog(a.cfg.Mocktail.Ingredients))
			}
			set = mixology.NewTools(opts...)
		case config.ToolsetBrowser:
			set = browser.NewTools(a.sharedBrowser())
		default:
			return fmt.Errorf("unknown toolset %q", ts)
		}
		if err := tools.Register(host, set...); err != nil {
			return fmt.Errorf("register toolset %q: %w", ts, err)
		}
		for _, t := range set {
			if t.SideEffects {
				a.sideEffects[ac.Name] = append(a.sideEffects[ac.Name], ident.Sanitize(t.Definition.Name))
			}
		}
		slog.Debug("registered toolset", "agent", ac.Name, "toolset", ts, "tools", len(set))
	}
	return nil
}

// sharedBrowser returns the single browser every browser toolset drives.
// Chrome is only launched on the first navigation.
func (a *App) sharedBrowser() *browser.Manager {
	if a.browser == nil {
		a.browser = browser.New(
			browser.WithHeadless(a.cfg.Browser.IsHeadless()),
			browser.WithBin(a.cfg.Browser.Bin),
			browser.WithStartURL(a.cfg.Browser.StartURL),
		)
	}
	return a.browser
}

func (a *App) buildAgent(ac config.AgentConfig) error {
	host := a.hosts[ac.Name]
	for _, m := range ac.Managed {
		managed, ok := a.agents[m]
		if !ok {
			return fmt.Errorf("app: agent %q: managed agent %q is not built", ac.Name, m)
		}
		if err := host.RegisterBuiltin(agent.AsTool(managed)); err != nil {
			return fmt.Errorf("app: agent %q: register managed agent %q: %w", ac.Name, m, err)
		}
	}

	var selector agent.TierSelector
	if ac.AutoTier() {
		selector = tier.NewSelector()
	}

	ag, err := agent.New(agent.Config{
		Name:         ac.Name,
		Description:  ac.Description,
		Instructions: ac.Instructions,
		Provider:     a.providers.LLM,
		Host:         host,
		Tier:         ac.Tier(),
		TierSelector: selector,
		MaxSteps:     ac.MaxSteps,
		Temperature:  ac.Temperature,
		Metrics:      a.metrics,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.agents[ac.Name] = ag
	slog.Info("loaded agent",
		"agent", ac.Name,
		"tier", tierLabel(ac),
		"tools", len(host.AvailableTools(ac.Tier())),
		"managed", ac.Managed,
	)
	return nil
}

func tierLabel(ac config.AgentConfig) string {
	if ac.AutoTier() {
		return config.BudgetTierAuto
	}
	return ac.Tier().String()
}

// calibrate re-tiers every host's tools from measured latency. Tools that
// change state and managed agents are never probed. Failures are logged and
// leave the declared tiers in place.
func (a *App) calibrate(ctx context.Context) {
	for _, ac := range a.cfg.Agents {
		skip := slices.Clone(a.sideEffects[ac.Name])
		for _, m := range ac.Managed {
			skip = append(skip, ident.Sanitize(m))
		}
		if err := a.hosts[ac.Name].CalibrateExcept(ctx, skip...); err != nil {
			slog.Warn("MCP calibration failed, using declared latencies", "agent", ac.Name, "err", err)
		}
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Agent returns the agent named name.
func (a *App) Agent(name string) (agent.Agent, error) {
	ag, ok := a.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return ag, nil
}

// Agents returns all agents in config order.
func (a *App) Agents() []agent.Agent {
	out := make([]agent.Agent, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.agents[name])
	}
	return out
}

// Tools returns the tool definitions offered to the named agent's model.
func (a *App) Tools(name string) ([]llm.ToolDefinition, error) {
	host, ok := a.hosts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	ac, _ := a.cfg.Agent(name)
	return host.AvailableTools(ac.Tier()), nil
}

// TTS returns the configured speech provider, or nil.
func (a *App) TTS() tts.Provider { return a.providers.TTS }

// Ready pings every connected MCP server of every agent.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	for _, name := range a.order {
		host := a.hosts[name]
		for _, srv := range host.Servers() {
			if err := host.Ping(ctx, srv); err != nil {
				errs = append(errs, fmt.Errorf("agent %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// HealthCheckers returns one readiness check per agent, named
// "agent:<name>", that pings the agent's MCP servers.
func (a *App) HealthCheckers() []health.Checker {
	out := make([]health.Checker, 0, len(a.order))
	for _, name := range a.order {
		host := a.hosts[name]
		out = append(out, health.Checker{
			Name: "agent:" + name,
			Check: func(ctx context.Context) error {
				var errs []error
				for _, srv := range host.Servers() {
					errs = append(errs, host.Ping(ctx, srv))
				}
				return errors.Join(errs...)
			},
		})
	}
	return out
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown closes the browser and every MCP host in reverse creation order.
// If ctx expires first the remaining closers are skipped and ctx's error is
// returned. Calls after the first are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		closers := slices.Clone(a.closers)
		if a.browser != nil {
			closers = append(closers, a.browser.Close)
		}
		slog.Debug("shutting down", "closers", len(closers))

		for i := len(closers) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = err
				return
			}
			if err := closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Debug("shutdown complete")
	})
	return shutdownErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ltejedor/building-ai-agents/internal/agent"
	"github.com/ltejedor/building-ai-agents/internal/app"
	"github.com/ltejedor/building-ai-agents/internal/config"
)

const (
	defaultConfigPath = "agentkit.yaml"
	shutdownTimeout   = 15 * time.Second
)

// rootOptions holds the persistent flags and state shared by subcommands.
type rootOptions struct {
	configPath string
	logLevel   string

	// level backs the default logger so serve can change it on reload.
	level    *slog.LevelVar
	registry *config.Registry
}

func newRootCmd(reg *config.Registry) *cobra.Command {
	o := &rootOptions{registry: reg, level: new(slog.LevelVar)}

	cmd := &cobra.Command{
		Use:           "agentkit",
		Short:         "Run tool-calling agents backed by MCP servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if o.logLevel != "" {
				lvl, err := parseLevel(config.LogLevel(o.logLevel))
				if err != nil {
					return err
				}
				o.level.Set(lvl)
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), o.level))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides server.log_level")

	cmd.AddCommand(
		newChatCmd(o),
		newRunCmd(o),
		newServeCmd(o),
		newToolsCmd(o),
		newMocktailCmd(o),
		newSpeakCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// newLogger builds the process logger: text on w, filtered by level.
func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLevel maps a config log level onto slog. Empty means info.
func parseLevel(l config.LogLevel) (slog.Level, error) {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug, nil
	case config.LogInfo, "":
		return slog.LevelInfo, nil
	case config.LogWarn:
		return slog.LevelWarn, nil
	case config.LogError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q; valid values: debug, info, warn, error", l)
	}
}

// loadConfig reads the config file and applies server.log_level unless
// --log-level was given.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", o.configPath)
		}
		return nil, err
	}
	if o.logLevel == "" {
		o.applyLogLevel(cfg.Server.LogLevel)
	}
	return cfg, nil
}

func (o *rootOptions) applyLogLevel(l config.LogLevel) {
	if lvl, err := parseLevel(l); err == nil {
		o.level.Set(lvl)
	}
}

// buildApp loads the config, creates providers and wires the agents. The
// caller must call shutdownApp.
func (o *rootOptions) buildApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	providers, err := buildProviders(cfg, o.registry)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, providers)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func shutdownApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		slog.Warn("shutdown error", "err", err)
	}
}

// pickAgent returns the named agent, or the first configured one when name
// is empty.
func pickAgent(a *app.App, name string) (agent.Agent, error) {
	if name != "" {
		return a.Agent(name)
	}
	agents := a.Agents()
	if len(agents) == 0 {
		return nil, errors.New("no agents configured")
	}
	return agents[0], nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agentkit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ltejedor/building-ai-agents/internal/chatapi"
	"github.com/ltejedor/building-ai-agents/internal/config"
	"github.com/ltejedor/building-ai-agents/internal/health"
	"github.com/ltejedor/building-ai-agents/internal/observe"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		listenAddr string
		runTimeout time.Duration
		noWatch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agents over HTTP",
		Long: "Serves the JSON agent API under /v1, liveness and readiness probes at\n" +
			"/healthz and /readyz, and Prometheus metrics at /metrics. The config\n" +
			"file is watched: log level changes apply immediately, agent and MCP\n" +
			"server changes need a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
				ServiceName:    "agentkit",
				ServiceVersion: version,
			})
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := tel.Shutdown(sctx); err != nil {
					slog.Warn("telemetry shutdown error", "err", err)
				}
			}()

			a, cfg, err := o.buildApp(ctx)
			if err != nil {
				return err
			}
			defer shutdownApp(a)

			if listenAddr == "" {
				listenAddr = cfg.Server.ListenAddr
			}

			mux := http.NewServeMux()
			chatapi.New(a, chatapi.WithRunTimeout(runTimeout)).Register(mux)
			health.New(version, a.HealthCheckers()...).Register(mux)
			mux.Handle("GET /metrics", promhttp.HandlerFor(tel.Registry, promhttp.HandlerOpts{}))

			srv := &http.Server{
				Addr:              listenAddr,
				Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)

			if !noWatch {
				w, err := config.NewWatcher(o.configPath, o.onConfigChange)
				if err != nil {
					return fmt.Errorf("watch config: %w", err)
				}
				g.Go(func() error { return w.Run(gctx) })
			}

			g.Go(func() error {
				slog.Info("agentkit serving", "addr", listenAddr, "agents", len(a.Agents()))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default: server.listen_addr)")
	cmd.Flags().DurationVar(&runTimeout, "run-timeout", 5*time.Minute, "upper bound for a single agent run")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the config file for changes")
	return cmd
}

// onConfigChange hot-applies what can change at runtime and flags the rest.
func (o *rootOptions) onConfigChange(_, _ *config.Config, d config.ConfigDiff) {
	if d.LogLevelChanged && o.logLevel == "" {
		o.applyLogLevel(d.NewLogLevel)
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.AgentsChanged || d.ServersChanged {
		names := make([]string, 0, len(d.AgentChanges))
		for _, c := range d.AgentChanges {
			names = append(names, c.Name)
		}
		slog.Warn("config changed; restart to apply",
			"agents", names,
			"servers_changed", d.ServersChanged,
		)
	}
}

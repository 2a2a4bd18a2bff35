// Package mcphost provides a concrete implementation of the [mcp.Host] interface.
//
// It connects to MCP servers via stdio or streamable-HTTP transports using the
// official MCP Go SDK (github.com/modelcontextprotocol/go-sdk), keeps a
// concurrent-safe in-memory tool registry, enforces latency-based budget tiers,
// and calibrates tool performance through rolling-window percentiles.
//
// Every tool is exposed to the model under a sanitized name (see
// [ident.Sanitize]); calls are forwarded to the server under the name the
// server reported.
//
// Typical usage:
//
//	h := mcphost.New(mcphost.WithLogger(logger))
//
//	err := h.RegisterServer(ctx, mcp.ServerConfig{
//	    Name:       "notion",
//	    Transport:  mcp.TransportStdio,
//	    Command:    "npx -y @notionhq/notion-mcp-server",
//	    InheritEnv: true,
//	    Env:        map[string]string{"OPENAPI_MCP_HEADERS": headers},
//	})
//
//	h.RegisterBuiltin(mcphost.BuiltinTool{
//	    Definition: llm.ToolDefinition{Name: "create_file", ...},
//	    Handler:    createFile,
//	})
//
//	tools := h.AvailableTools(mcp.BudgetDeep)
//	result, err := h.ExecuteTool(ctx, "API_post_search", `{"query":"roadmap"}`)
//
//	h.Close()
package mcphost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
	"github.com/ltejedor/building-ai-agents/internal/observe"
	"github.com/ltejedor/building-ai-agents/pkg/ident"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// defaultWindowSize is the default capacity of each tool's rolling window.
const defaultWindowSize = 100

// toolEntry holds all metadata for a single registered tool.
type toolEntry struct {
	def        llm.ToolDefinition // def.Name is the sanitized name
	remoteName string             // name as reported by the server
	serverName string

	declaredP50Ms int64
	declaredMaxMs int64
	measuredP50Ms int64
	measuredP99Ms int64
	callCount     int64
	errorCount    int64
	tier          mcp.BudgetTier
	degraded      bool // health-demoted by one tier
	measurements  *rollingWindow

	// sideEffects is set for server tools not annotated as read-only.
	// Calibration never probes them.
	sideEffects bool

	// builtinFn is non-nil for in-process tools registered via RegisterBuiltin.
	builtinFn func(ctx context.Context, args string) (string, error)
}

// record adds one call outcome and reassigns the tier from the measured P50.
// An error rate above 30% bumps the tier by one level.
func (e *toolEntry) record(durationMs int64, isError bool) {
	e.measurements.Record(durationMs, isError)
	e.callCount++
	if isError {
		e.errorCount++
	}
	e.measuredP50Ms = e.measurements.P50()
	e.measuredP99Ms = e.measurements.P99()

	tier := tierFromMeasuredP50(e.measuredP50Ms)
	e.degraded = e.measurements.ErrorRate() > 0.3
	if e.degraded && tier < mcp.BudgetDeep {
		tier++
	}
	e.tier = tier
}

// serverConn holds a live connection to an external MCP server.
type serverConn struct {
	session *mcpsdk.ClientSession
	cfg     mcp.ServerConfig
}

// Host is a concrete implementation of [mcp.Host].
//
// The zero value is not usable; create instances with [New].
type Host struct {
	mu      sync.RWMutex
	tools   map[string]toolEntry  // key: sanitized tool name
	servers map[string]serverConn // key: server name

	// client is reused across all server connections.
	client *mcpsdk.Client

	enforcer BudgetEnforcer
	logger   *slog.Logger
	metrics  *observe.Metrics
}

var _ mcp.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for registration and collision warnings.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithMetrics records tool calls and server connections to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

// WithClientInfo overrides the implementation name and version announced to
// MCP servers during the handshake.
func WithClientInfo(name, version string) Option {
	return func(h *Host) {
		h.client = mcpsdk.NewClient(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	}
}

// New creates and returns a ready-to-use Host.
func New(opts ...Option) *Host {
	h := &Host{
		tools:   make(map[string]toolEntry),
		servers: make(map[string]serverConn),
		client: mcpsdk.NewClient(
			&mcpsdk.Implementation{Name: "agentkit", Version: "1.0.0"},
			nil,
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterServer connects to the MCP server described by cfg and imports its
// tool catalogue. If a server with the same Name is already registered, the
// old connection is closed and its tools are replaced.
func (h *Host) RegisterServer(ctx context.Context, cfg mcp.ServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("mcp host: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return fmt.Errorf("mcp host: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp host: failed to connect to server %q: %w", cfg.Name, err)
	}

	var discovered []mcpsdk.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcp host: failed to list tools for server %q: %w", cfg.Name, err)
		}
		discovered = append(discovered, *tool)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	replaced := false
	if old, ok := h.servers[cfg.Name]; ok {
		_ = old.session.Close()
		for name, t := range h.tools {
			if t.serverName == cfg.Name {
				delete(h.tools, name)
			}
		}
		replaced = true
	}
	h.servers[cfg.Name] = serverConn{session: session, cfg: cfg}
	if h.metrics != nil && !replaced {
		h.metrics.ConnectedServers.Add(ctx, 1)
	}

	for _, t := range discovered {
		h.putLocked(buildToolEntry(t, cfg.Name))
	}

	h.logger.Info("mcp server registered",
		"server", cfg.Name,
		"transport", string(cfg.Transport),
		"tools", len(discovered),
	)
	return nil
}

// putLocked stores e under its sanitized name, warning when it displaces a
// different tool. Callers hold h.mu.
func (h *Host) putLocked(e toolEntry) {
	if prev, ok := h.tools[e.def.Name]; ok &&
		(prev.serverName != e.serverName || prev.remoteName != e.remoteName) {
		h.logger.Warn("mcp host: tool name collision, later tool wins",
			"tool", e.def.Name,
			"previous_server", prev.serverName,
			"previous_name", prev.remoteName,
			"server", e.serverName,
			"name", e.remoteName,
		)
	}
	if e.remoteName != e.def.Name {
		h.logger.Debug("mcp host: tool name sanitized", "server", e.serverName, "from", e.remoteName, "to", e.def.Name)
	}
	h.tools[e.def.Name] = e
}

// newTransport builds the SDK transport for cfg.
func newTransport(cfg mcp.ServerConfig) (mcpsdk.Transport, error) {
	switch cfg.Transport {
	case mcp.TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return nil, fmt.Errorf("mcp host: stdio server %q requires a non-empty Command", cfg.Name)
		}
		// The session owns the process; it must outlive the registration ctx.
		cmd := exec.Command(executable, append(args, cfg.Args...)...)
		cmd.Dir = cfg.Dir
		cmd.Env = buildEnv(cfg.InheritEnv, os.Environ(), cfg.Env)
		return &mcpsdk.CommandTransport{Command: cmd}, nil

	case mcp.TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcp host: streamable-http server %q requires a non-empty URL", cfg.Name)
		}
		t := &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
		if cfg.Token != "" {
			t.HTTPClient = &http.Client{Transport: &bearerTransport{token: cfg.Token, base: http.DefaultTransport}}
		}
		return t, nil
	}
	return nil, fmt.Errorf("mcp host: unknown transport %q for server %q", cfg.Transport, cfg.Name)
}

// buildEnv returns the child environment. The result is never nil, so a
// server started without inherit gets an empty environment plus extra.
func buildEnv(inherit bool, parent []string, extra map[string]string) []string {
	env := make([]string, 0, len(parent)+len(extra))
	if inherit {
		env = append(env, parent...)
	}
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// bearerTransport adds an Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// buildToolEntry converts an SDK Tool into an internal toolEntry.
func buildToolEntry(t mcpsdk.Tool, serverName string) toolEntry {
	p50, maxMs := extractLatencyHints(t)

	def := llm.ToolDefinition{
		Name:                ident.Sanitize(t.Name),
		Description:         t.Description,
		Parameters:          schemaToMap(t.InputSchema),
		EstimatedDurationMs: int(p50),
		MaxDurationMs:       int(maxMs),
	}

	return toolEntry{
		def:           def,
		remoteName:    t.Name,
		serverName:    serverName,
		declaredP50Ms: p50,
		declaredMaxMs: maxMs,
		tier:          tierFromDeclaredP50(p50),
		measurements:  newRollingWindow(defaultWindowSize),
		sideEffects:   t.Annotations == nil || !t.Annotations.ReadOnlyHint,
	}
}

// extractLatencyHints reads estimated_duration_ms and max_duration_ms from a
// "_metadata" schema property or from JSON embedded in the description.
func extractLatencyHints(t mcpsdk.Tool) (p50Ms, maxMs int64) {
	if schema := schemaToMap(t.InputSchema); schema != nil {
		if props, ok := schema["properties"].(map[string]any); ok {
			if meta, ok := props["_metadata"].(map[string]any); ok {
				p50Ms = extractInt64(meta, "estimated_duration_ms")
				maxMs = extractInt64(meta, "max_duration_ms")
			}
		}
	}
	if p50Ms == 0 {
		p50Ms, maxMs = parseLatencyFromDescription(t.Description)
	}
	return p50Ms, maxMs
}

func extractInt64(m map[string]any, key string) int64 {
	switch n := m[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func parseLatencyFromDescription(desc string) (int64, int64) {
	start := strings.Index(desc, "{")
	end := strings.LastIndex(desc, "}")
	if start < 0 || end < start {
		return 0, 0
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(desc[start:end+1]), &m); err != nil {
		return 0, 0
	}
	return extractInt64(m, "estimated_duration_ms"), extractInt64(m, "max_duration_ms")
}

// schemaToMap converts any schema value to a map[string]any.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// AvailableTools returns all tools whose tier is ≤ tier, fastest first.
func (h *Host) AvailableTools(tier mcp.BudgetTier) []llm.ToolDefinition {
	h.mu.RLock()
	entries := slices.Collect(maps.Values(h.tools))
	h.mu.RUnlock()

	return h.enforcer.FilterTools(entries, tier)
}

// ExecuteTool calls the tool exposed as name with JSON-encoded args.
//
// A non-nil *ToolResult is returned even when [mcp.ToolResult.IsError] is set.
// A Go error is returned only for unknown tools and transport failures.
func (h *Host) ExecuteTool(ctx context.Context, name string, args string) (*mcp.ToolResult, error) {
	h.mu.RLock()
	entry, ok := h.tools[name]
	h.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("mcp host: tool %q not found", name)
	}

	ctx, span := observe.StartSpan(ctx, "mcp.tool "+name,
		trace.WithAttributes(
			attribute.String("tool.name", name),
			attribute.String("tool.server", entry.serverName),
		),
	)
	defer span.End()

	start := time.Now()

	var result *mcp.ToolResult
	var execErr error
	if entry.builtinFn != nil {
		result, execErr = h.executeBuiltin(ctx, entry, args)
	} else {
		result, execErr = h.executeMCPTool(ctx, entry, args)
	}

	elapsed := time.Since(start)
	isError := execErr != nil || (result != nil && result.IsError)
	h.recordAndUpdateTier(name, elapsed.Milliseconds(), isError)

	if h.metrics != nil {
		status := "ok"
		if isError {
			status = "error"
		}
		h.metrics.RecordToolCall(ctx, name, status, elapsed.Seconds())
	}

	if execErr != nil {
		span.RecordError(execErr)
		return nil, execErr
	}
	result.DurationMs = elapsed.Milliseconds()
	return result, nil
}

func (h *Host) executeBuiltin(ctx context.Context, entry toolEntry, args string) (*mcp.ToolResult, error) {
	output, err := entry.builtinFn(ctx, args)
	if err != nil {
		return &mcp.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &mcp.ToolResult{Content: output}, nil
}

// executeMCPTool forwards the call to the owning server under its remote name.
func (h *Host) executeMCPTool(ctx context.Context, entry toolEntry, args string) (*mcp.ToolResult, error) {
	h.mu.RLock()
	conn, ok := h.servers[entry.serverName]
	h.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("mcp host: server %q not found for tool %q", entry.serverName, entry.def.Name)
	}

	var argsMap map[string]any
	if trimmed := strings.TrimSpace(args); trimmed != "" && trimmed != "{}" {
		if err := json.Unmarshal([]byte(trimmed), &argsMap); err != nil {
			return nil, fmt.Errorf("mcp host: invalid args JSON for tool %q: %w", entry.def.Name, err)
		}
	}

	callResult, err := conn.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      entry.remoteName,
		Arguments: argsMap,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp host: call to tool %q failed: %w", entry.def.Name, err)
	}

	var sb strings.Builder
	for _, c := range callResult.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}

	return &mcp.ToolResult{
		Content: sb.String(),
		IsError: callResult.IsError,
	}, nil
}

func (h *Host) recordAndUpdateTier(name string, durationMs int64, isError bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.tools[name]
	if !ok {
		return
	}
	entry.record(durationMs, isError)
	h.tools[name] = entry
}

// tierFromMeasuredP50 maps a measured P50 latency to a BudgetTier.
func tierFromMeasuredP50(p50Ms int64) mcp.BudgetTier {
	switch {
	case p50Ms <= int64(mcp.BudgetFast.MaxLatencyMs()):
		return mcp.BudgetFast
	case p50Ms <= int64(mcp.BudgetStandard.MaxLatencyMs()):
		return mcp.BudgetStandard
	default:
		return mcp.BudgetDeep
	}
}

// Health returns a snapshot of every tool's measured performance, sorted by
// name.
func (h *Host) Health() []mcp.ToolHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]mcp.ToolHealth, 0, len(h.tools))
	for _, name := range slices.Sorted(maps.Keys(h.tools)) {
		e := h.tools[name]
		out = append(out, mcp.ToolHealth{
			Name:          name,
			Server:        e.serverName,
			MeasuredP50Ms: e.measuredP50Ms,
			MeasuredP99Ms: e.measuredP99Ms,
			CallCount:     int(e.callCount),
			ErrorRate:     e.measurements.ErrorRate(),
			Tier:          e.tier,
		})
	}
	return out
}

// Servers returns the names of the connected MCP servers, sorted.
func (h *Host) Servers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.servers))
}

// Ping checks that the named server still answers.
func (h *Host) Ping(ctx context.Context, server string) error {
	h.mu.RLock()
	conn, ok := h.servers[server]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("mcp host: server %q not registered", server)
	}
	if err := conn.session.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mcp host: ping %q: %w", server, err)
	}
	return nil
}

// Close shuts down all server connections and releases associated resources.
// After Close returns the Host must not be used again.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for name, conn := range h.servers {
		if err := conn.session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcp host: error closing server %q: %w", name, err)
		}
		if h.metrics != nil {
			h.metrics.ConnectedServers.Add(context.Background(), -1)
		}
		delete(h.servers, name)
	}
	h.tools = make(map[string]toolEntry)
	return firstErr
}

// splitCommand splits a command string into executable and arguments.
// e.g. "npx -y @notionhq/notion-mcp-server" → ("npx", ["-y", "@notionhq/notion-mcp-server"]).
func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// Package mcp defines the interface for a Model Context Protocol (MCP) host.
//
// The MCP host connects to one or more MCP servers, keeps a catalogue of the
// tools they expose (each bucketed into a [BudgetTier]), executes tool calls
// on behalf of agents, and calibrates tool latency.
//
// Tool names reported by servers are not guaranteed to be valid function
// identifiers for every model API. Hosts expose each tool under a sanitized
// name (see package ident) and translate back to the server's own name when
// calling it.
//
// Lifecycle:
//
//  1. Call [Host.RegisterServer] for each MCP server to connect to.
//  2. Optionally call [Host.Calibrate] to measure real tool latencies.
//  3. Use [Host.AvailableTools] to enumerate tools valid for a budget tier.
//  4. Use [Host.ExecuteTool] to run tools on behalf of agents.
//  5. Call [Host.Close] to release all connections.
//
// All methods must be safe for concurrent use.
package mcp

import (
	"context"

	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	// Name identifies the server within a [Host]. Used in logs and errors.
	Name string

	// Transport selects stdio or streamable-http.
	Transport Transport

	// Command is the executable, optionally followed by whitespace-separated
	// arguments, e.g. "npx -y @notionhq/notion-mcp-server". stdio only.
	Command string

	// Args are appended after any arguments embedded in Command. Use Args
	// for values containing spaces.
	Args []string

	// Dir is the working directory of the server process. Empty means the
	// current directory.
	Dir string

	// URL is the endpoint for streamable-http, e.g.
	// "https://mcp.example.com/mcp".
	URL string

	// Env holds extra environment variables for the server process.
	Env map[string]string

	// InheritEnv passes the parent environment to the server process before
	// Env is applied. npx-launched servers usually need PATH and HOME.
	InheritEnv bool

	// Token is sent as a bearer token on every streamable-http request.
	Token string
}

// ToolResult holds the outcome of a single tool execution.
type ToolResult struct {
	// Content is the tool's textual output, ready for insertion into the
	// model context.
	Content string

	// IsError marks an application-level failure reported by the tool itself.
	// Transport failures are returned as Go errors instead.
	IsError bool

	// DurationMs is the wall-clock time of the call.
	DurationMs int64
}

// ToolHealth captures the measured runtime performance of a single tool.
type ToolHealth struct {
	// Name is the sanitized tool name.
	Name string

	// Server is the name of the server exposing the tool.
	Server string

	MeasuredP50Ms int64
	MeasuredP99Ms int64
	CallCount     int
	ErrorRate     float64
	Tier          BudgetTier
}

// Host manages connections to MCP servers, routes tool calls, and tracks
// per-tool performance.
type Host interface {
	// RegisterServer connects to the server described by cfg and imports its
	// tools. Registering an existing Name replaces the old connection.
	RegisterServer(ctx context.Context, cfg ServerConfig) error

	// AvailableTools returns all tools whose tier is ≤ tier, fastest first.
	AvailableTools(tier BudgetTier) []llm.ToolDefinition

	// ExecuteTool calls the tool exposed as name with JSON-encoded args. A
	// non-nil *ToolResult is returned even when the tool reports an error; a
	// Go error signals an unknown tool or a transport failure.
	ExecuteTool(ctx context.Context, name string, args string) (*ToolResult, error)

	// Calibrate probes every registered tool concurrently and reassigns tiers
	// from the measured latency.
	Calibrate(ctx context.Context) error

	// Close shuts down all server connections. The Host must not be used
	// afterwards.
	Close() error
}

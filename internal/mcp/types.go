package mcp

// Transport selects the connection mechanism for an MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ParseTransport maps a configuration value to a Transport. "http" is
// accepted as an alias of streamable-http.
func ParseTransport(s string) (Transport, bool) {
	switch s {
	case "stdio":
		return TransportStdio, true
	case "streamable-http", "http":
		return TransportStreamableHTTP, true
	default:
		return "", false
	}
}

// BudgetTier controls which tools an agent may see, by expected latency.
// Interactive agents use BudgetFast; batch runs usually allow BudgetDeep.
type BudgetTier int

const (
	// BudgetFast allows only tools with ≤ 500ms estimated latency.
	BudgetFast BudgetTier = iota

	// BudgetStandard allows tools with ≤ 1500ms estimated latency.
	BudgetStandard

	// BudgetDeep allows all tools regardless of latency.
	BudgetDeep
)

// ParseBudgetTier maps "fast", "standard" or "deep" to a BudgetTier. The
// empty string selects BudgetDeep.
func ParseBudgetTier(s string) (BudgetTier, bool) {
	switch s {
	case "fast":
		return BudgetFast, true
	case "standard":
		return BudgetStandard, true
	case "deep", "":
		return BudgetDeep, true
	default:
		return BudgetDeep, false
	}
}

// String returns the human-readable name of the budget tier.
func (t BudgetTier) String() string {
	switch t {
	case BudgetFast:
		return "FAST"
	case BudgetStandard:
		return "STANDARD"
	case BudgetDeep:
		return "DEEP"
	default:
		return "UNKNOWN"
	}
}

// MaxLatencyMs returns the maximum parallel tool latency for this tier.
func (t BudgetTier) MaxLatencyMs() int {
	switch t {
	case BudgetFast:
		return 500
	case BudgetStandard:
		return 1500
	case BudgetDeep:
		return 30000
	default:
		return 500
	}
}

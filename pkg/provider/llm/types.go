package llm

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single entry in a conversation history.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant, or RoleTool.
	Role string

	Content string

	// Name is an optional participant name.
	Name string

	// ToolCalls holds the invocations requested by an assistant message.
	ToolCalls []ToolCall

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	// ID is provider-assigned and echoed back in the tool result message.
	ID string

	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments string
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	// Name must be a valid identifier; see package ident.
	Name string

	Description string

	// Parameters is the JSON Schema of the argument object.
	Parameters map[string]any

	// EstimatedDurationMs is the declared p50 latency used for budget tiers.
	EstimatedDurationMs int

	// MaxDurationMs is the declared worst case latency.
	MaxDurationMs int
}

// ModelCapabilities describes what a model supports.
type ModelCapabilities struct {
	ContextWindow       int
	MaxOutputTokens     int
	SupportsToolCalling bool
	SupportsVision      bool
	SupportsStreaming   bool
}

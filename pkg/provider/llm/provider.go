// Package llm defines the Provider interface for the language models that
// drive agentkit agents.
//
// A provider wraps a remote or local model API (Anthropic, OpenAI, a Hugging
// Face inference endpoint, a local Ollama instance) and exposes completions
// with native function calling. Agents only ever talk to this interface, so
// swapping the model behind an agent is a configuration change.
//
// Implementors must be safe for concurrent use. Channels returned by
// StreamCompletion must be closed by the implementation when the stream ends
// or when the supplied context is cancelled.
package llm

import "context"

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// CompletionRequest carries everything the model needs to produce a reply.
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history.
	Messages []Message

	// Tools is the set of functions offered to the model. Providers whose
	// model lacks tool calling ignore it; callers should consult
	// Capabilities().SupportsToolCalling first.
	Tools []ToolDefinition

	// Temperature in [0.0, 2.0]. Zero leaves the provider default.
	Temperature float64

	// MaxTokens caps completion tokens. Zero leaves the provider default.
	MaxTokens int

	// SystemPrompt is injected before the history. Providers without a
	// dedicated system field prepend it as a "system" message.
	SystemPrompt string
}

// Chunk is a fragment emitted by a streaming completion.
type Chunk struct {
	// Text is the incremental text of this chunk.
	Text string

	// FinishReason is set on the final chunk: "stop", "length",
	// "tool_calls", or "error" when the stream failed after it started.
	FinishReason string

	// ToolCalls holds the accumulated tool calls, set on the final chunk.
	ToolCalls []ToolCall
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the assistant's text. Empty when the model only calls tools.
	Content string

	// ToolCalls lists the tool invocations requested by the model. The caller
	// executes them and appends the results to the conversation.
	ToolCalls []ToolCall

	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// StreamCompletion sends req and returns a channel of chunks that the
	// implementation closes when generation ends or ctx is cancelled.
	// Errors after the stream has started arrive as a Chunk with
	// FinishReason "error". The returned channel is never nil when the error
	// is nil. Callers must drain it.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)

	// Complete sends req and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the context-window cost of messages. The
	// estimate should not undercount.
	CountTokens(messages []Message) (int, error)

	// Capabilities describes the underlying model. Constant for the lifetime
	// of the provider.
	Capabilities() ModelCapabilities
}

// EstimateTokens is the rough four-characters-per-token approximation shared
// by providers that have no tokenizer endpoint, plus a fixed per-message
// overhead for role and formatting tokens.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
		total += 4
	}
	return total
}

package openai

import (
	"testing"
	"time"

	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// ── convertMessage ────────────────────────────────────────────────────────────

func TestConvertMessage_System(t *testing.T) {
	param, err := convertMessage(llm.Message{Role: llm.RoleSystem, Content: "You are helpful."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
}

func TestConvertMessage_User(t *testing.T) {
	param, err := convertMessage(llm.Message{Role: llm.RoleUser, Content: "Create a file called notes.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	msg := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "create_file", Arguments: `{"path":"notes.txt","content":"hi"}`},
		},
	}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
	if len(param.OfAssistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(param.OfAssistant.ToolCalls))
	}
	tc := param.OfAssistant.ToolCalls[0]
	if tc.ID != "call_1" {
		t.Errorf("expected ID call_1, got %s", tc.ID)
	}
	if tc.Function.Name != "create_file" {
		t.Errorf("expected function name create_file, got %s", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"path":"notes.txt","content":"hi"}` {
		t.Errorf("unexpected arguments: %s", tc.Function.Arguments)
	}
}

func TestConvertMessage_Tool(t *testing.T) {
	param, err := convertMessage(llm.Message{Role: llm.RoleTool, Content: "File created at notes.txt", ToolCallID: "call_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfTool == nil {
		t.Fatal("expected OfTool to be set")
	}
	if param.OfTool.ToolCallID != "call_1" {
		t.Errorf("expected ToolCallID call_1, got %s", param.OfTool.ToolCallID)
	}
}

func TestConvertMessage_UnknownRole(t *testing.T) {
	if _, err := convertMessage(llm.Message{Role: "narrator", Content: "test"}); err == nil {
		t.Fatal("expected error for unknown role, got nil")
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

func TestBuildParams_PrependsSystemPrompt(t *testing.T) {
	p := &Provider{model: "Qwen/Qwen2.5-72B-Instruct"}
	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Be brief.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
		Tools:        []llm.ToolDefinition{{Name: "read_file", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params.Messages) != 2 || params.Messages[0].OfSystem == nil {
		t.Fatalf("expected system message first, got %d messages", len(params.Messages))
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "read_file" {
		t.Errorf("unexpected tools: %+v", params.Tools)
	}
}

func TestBuildParams_RejectsUnknownRole(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	_, err := p.buildParams(llm.CompletionRequest{Messages: []llm.Message{{Role: "bogus"}}})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

// ── modelCapabilities ─────────────────────────────────────────────────────────

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model       string
		wantContext int
		wantVision  bool
		wantTools   bool
	}{
		{"gpt-4o-mini", 128_000, true, true},
		{"gpt-4o", 128_000, true, true},
		{"gpt-3.5-turbo", 16_385, false, true},
		{"o1-mini", 128_000, false, false},
		{"Qwen/Qwen2.5-Coder-32B-Instruct", 32_768, false, true},
		{"my-custom-model", 128_000, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := modelCapabilities(tt.model)
			if caps.ContextWindow != tt.wantContext {
				t.Errorf("ContextWindow = %d, want %d", caps.ContextWindow, tt.wantContext)
			}
			if caps.SupportsVision != tt.wantVision {
				t.Errorf("SupportsVision = %v, want %v", caps.SupportsVision, tt.wantVision)
			}
			if caps.SupportsToolCalling != tt.wantTools {
				t.Errorf("SupportsToolCalling = %v, want %v", caps.SupportsToolCalling, tt.wantTools)
			}
			if caps.MaxOutputTokens <= 0 {
				t.Error("expected positive MaxOutputTokens")
			}
		})
	}
}

// ── CountTokens ───────────────────────────────────────────────────────────────

func TestCountTokens_Estimation(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	count, err := p.CountTokens([]llm.Message{{Role: llm.RoleUser, Content: "Hello world"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 11 chars → 3 tokens + 4 overhead.
	if count != 7 {
		t.Errorf("expected 7 tokens, got %d", count)
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestNew_MissingModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_Options(t *testing.T) {
	p, err := New("hf_test", "Qwen/Qwen2.5-72B-Instruct",
		WithBaseURL(HuggingFaceRouterURL),
		WithOrganization("org-123"),
		WithTimeout(30*time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error with valid options: %v", err)
	}
	if p.Model() != "Qwen/Qwen2.5-72B-Instruct" {
		t.Errorf("Model() = %q", p.Model())
	}
}

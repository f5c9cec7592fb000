// Package llm provides chat-completion access for the conversational agent.
//
// Defines a Provider interface and an OpenAI implementation. The interface
// allows swapping model vendors without changing the agent loop.
package llm

import (
	"context"
	"encoding/json"
)

// Message is one entry of the conversation context sent to the model.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a callable tool advertised to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Completion is the model's reply: assistant text, tool invocations, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider produces chat completions.
type Provider interface {
	// Complete sends the conversation context and available tools to the
	// model and returns its reply. A reply may carry tool calls, text,
	// or both.
	Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error)
}

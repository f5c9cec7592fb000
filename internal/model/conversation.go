package model

import (
	"encoding/json"
	"time"
)

// Role tags a conversation turn with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one persisted message in a conversation. Turns are append-only:
// once written they are never updated or deleted by this service.
type Turn struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversation_id"`
	UserID         int64           `json:"user_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	// ToolCalls is present only on assistant turns that invoked tools;
	// it is stored as an opaque JSON blob on the turn, not as rows.
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConversationSummary is the per-conversation metadata returned by the
// conversation listing endpoint.
type ConversationSummary struct {
	ConversationID int64     `json:"conversation_id"`
	LastMessage    string    `json:"last_message"`
	LastRole       Role      `json:"last_role"`
	TurnCount      int       `json:"turn_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToolCallRecord is one entry of an assistant turn's tool-call log: the tool
// name, the arguments it ran with, and the normalized result envelope.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    ToolResult     `json:"result"`
}

// ToolResult is the uniform envelope returned by every tool execution.
// Message is always human-readable and safe to hand back to the model or
// include directly in the assistant's reply. Operation-specific payload
// fields (task_id, tasks, ...) ride in Extra and are flattened on marshal.
type ToolResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Extra   map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the top-level object alongside success and
// message, matching the wire shape the model sees as a tool result.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["success"] = r.Success
	out["message"] = r.Message
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON: success and message are lifted out and
// every other field lands in Extra.
func (r *ToolResult) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["success"].(bool); ok {
		r.Success = v
	}
	if v, ok := raw["message"].(string); ok {
		r.Message = v
	}
	delete(raw, "success")
	delete(raw, "message")
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

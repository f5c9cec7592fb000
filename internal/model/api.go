package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxChatMessageLen bounds the inbound chat message body.
const MaxChatMessageLen = 10000

// ValidateChatMessage enforces the 1..10000 non-whitespace contract on an
// inbound chat message.
func ValidateChatMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("message must not be empty")
	}
	if len(msg) > MaxChatMessageLen {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxChatMessageLen)
	}
	return nil
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Machine-readable error codes.
const (
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternalError = "internal_error"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthTokenResponse is returned by successful login.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ChatRequest is the body of POST /v1/chat. A null conversation_id starts a
// new conversation.
type ChatRequest struct {
	ConversationID *int64 `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatResponse is the outcome of one full chat exchange.
type ChatResponse struct {
	ConversationID   int64            `json:"conversation_id"`
	UserMessage      string           `json:"user_message"`
	AssistantMessage string           `json:"assistant_message"`
	ToolCalls        []ToolCallRecord `json:"tool_calls,omitempty"`
}

// UnreadCountResponse is returned by GET /v1/notifications/unread-count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Postgres  string `json:"postgres"`
	SSEBroker string `json:"sse_broker,omitempty"`
	Uptime    int64  `json:"uptime_seconds"`
}

// Package llm defines the completion-backend interface and the chat message
// types the orchestrator builds context with.
//
// The companion never uses tool calls: each turn sends the system prompt plus
// the rolling conversation window and expects a single text reply.
package llm

import "context"

// Role is the role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Messages is the full context, oldest first, system prompt included.
	Messages []Message
	// MaxTokens caps the response length. 0 = provider default.
	MaxTokens int
}

// CompletionResponse is the backend's reply.
type CompletionResponse struct {
	// Content is the assistant text produced.
	Content string
	// Usage holds token count information.
	Usage TokenUsage
}

// TokenUsage reports token consumption for observability.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the interface every completion backend implements. A failed or
// timed-out call is recoverable: the orchestrator falls back to a fixed
// message and never crashes on provider errors.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

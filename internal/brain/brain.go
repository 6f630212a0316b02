// Package brain defines the language-model client capability used by
// the agent loop, with vendor-specific adapters behind one interface.
package brain

import (
	"context"
)

// Brain is the interface for a language-model completion service.
// Implementations make a single request/response call; they never
// retry internally.
type Brain interface {
	// Complete submits a conversation plus tool declarations and
	// returns the model's decision: direct text, tool calls, or both.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Ping checks that the service is reachable and configured.
	Ping(ctx context.Context) error

	// Provider returns the vendor name ("openai", "gemini").
	Provider() string
}

// Request contains all context for one completion call.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
}

// Response contains the model's decision.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// Message represents a conversation message handed to the model.
type Message struct {
	Role       string // "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that invoked tools
	ToolCallID string     // set on tool result messages
	ToolName   string     // set on tool result messages
}

// ToolSpec describes a callable operation for the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  *ParamSchema
}

// ParamSchema defines the JSON Schema for tool parameters.
type ParamSchema struct {
	Type       string
	Properties map[string]*ParamProp
	Required   []string
}

// ParamProp defines a single parameter property.
type ParamProp struct {
	Type        string
	Description string
	Default     any
}

// ToolCall represents a request from the model to execute a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Package llm defines the interface to the generative reasoning service
// and the error taxonomy the pipeline's retry policy is built on.
package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/linnemanlabs/go-core/xerrors"
)

// Provider is the interface for any LLM backend.
type Provider interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Request represents one call to the reasoning service, including the
// conversation history and the tools the caller permits for this call.
type Request struct {
	MaxTokens int
	System    string
	Messages  []Message
	Tools     []ToolDef
}

// Response represents the output of one reasoning call.
type Response struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
	Model      string
}

// ToolDef is the wire format for tool definitions offered to the model.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopEnd     StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// Message is a single conversation message from the user or the assistant.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one block of message content: text, a tool call, or a
// tool result.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// Usage holds token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Error taxonomy. Providers wrap their failures in exactly one of these
// so the stage runner can decide what is retryable.
var (
	// ErrRateLimited marks an upstream rate limit. Retryable.
	ErrRateLimited = xerrors.New("llm: rate limited")

	// ErrUnavailable marks a transient upstream service failure. Retryable.
	ErrUnavailable = xerrors.New("llm: service unavailable")

	// ErrAuth marks a credential or permission failure. Never retried:
	// it indicates misconfiguration, not incident-specific noise.
	ErrAuth = xerrors.New("llm: authentication failed")
)

// IsTransient reports whether err is one of the retryable failure kinds.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

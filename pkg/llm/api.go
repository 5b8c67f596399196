// Package llm provides interfaces and types for model provider client implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

// DefaultMaxTokens is used when neither the caller nor the model registry sets a limit.
const DefaultMaxTokens = 1000

// ErrStreamingUnsupported is returned by Stream on clients without streaming capability.
// It is a configuration rejection, not a transient failure.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped, as reported by the provider
}

// StreamChunk represents a chunk of streamed completion response.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// Capabilities declares optional features a provider client supports.
type Capabilities struct {
	Streaming bool
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Established name across providers
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks. Clients without
	// streaming capability return ErrStreamingUnsupported.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName returns the provider-side model name for this client.
	GetModelName() string

	// Capabilities reports the optional features of this client.
	Capabilities() Capabilities
}

// NewCompletionRequest creates a completion request from an optional system prompt and a user prompt.
func NewCompletionRequest(systemPrompt, prompt string, maxTokens int) CompletionRequest {
	messages := make([]CompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, NewSystemMessage(systemPrompt))
	}
	messages = append(messages, NewUserMessage(prompt))
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return CompletionRequest{
		Messages:  messages,
		MaxTokens: maxTokens,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// SplitSystem separates system messages from the conversation, joining them with blank lines.
// Providers that take the system prompt as a separate parameter use this.
func SplitSystem(messages []CompletionMessage) (system string, rest []CompletionMessage) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

// Collect drains a stream, forwarding each non-empty chunk to onChunk, and returns the
// accumulated text. On a chunk error the text delivered so far is returned with the error.
func Collect(ctx context.Context, stream <-chan StreamChunk, onChunk func(string)) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), fmt.Errorf("stream interrupted: %w", ctx.Err())
		case chunk, ok := <-stream:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Error != nil {
				return sb.String(), chunk.Error
			}
			if chunk.Content != "" {
				sb.WriteString(chunk.Content)
				if onChunk != nil {
					onChunk(chunk.Content)
				}
			}
			if chunk.Done {
				return sb.String(), nil
			}
		}
	}
}

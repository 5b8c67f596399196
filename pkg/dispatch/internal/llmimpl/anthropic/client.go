// Package anthropic provides the Claude client for the dispatch layer.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

const providerName = "anthropic"

// ClaudeClient wraps the Anthropic Messages API.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClientWithModel creates a Claude client for a specific API model.
func NewClaudeClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeClient{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

// ensureAlternation extracts system messages and merges consecutive user turns,
// since the Messages API requires strict user/assistant alternation starting with user.
func ensureAlternation(messages []llm.CompletionMessage) (systemPrompt string, alternating []llm.CompletionMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	systemPrompt, rest := llm.SplitSystem(messages)
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	var merged []llm.CompletionMessage
	for i := range rest {
		msg := rest[i]
		if n := len(merged); n > 0 && merged[n-1].Role == msg.Role {
			merged[n-1].Content += "\n\n" + msg.Content
			continue
		}
		merged = append(merged, msg)
	}

	if merged[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	return systemPrompt, merged, nil
}

func (c *ClaudeClient) buildParams(in llm.CompletionRequest) (anthropic.MessageNewParams, error) {
	systemPrompt, messages, err := ensureAlternation(in.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeModelUnavailable, err, "message conversion error")
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(in.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if in.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(in.Temperature))
	}

	for i := range messages {
		block := anthropic.NewTextBlock(messages[i].Content)
		switch messages[i].Role {
		case llm.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	return params, nil
}

// Complete implements llm.LLMClient.
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := c.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	var sb strings.Builder
	for i := range resp.Content {
		block := resp.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	return llm.CompletionResponse{
		Content:    sb.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// Stream implements llm.LLMClient using server-sent message events.
func (c *ClaudeClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	params, err := c.buildParams(in)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	out := make(chan llm.StreamChunk)

	go func() {
		defer close(out)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			select {
			case out <- llm.StreamChunk{Content: delta.Text}:
			case <-ctx.Done():
				return
			}
		}

		final := llm.StreamChunk{Done: true}
		if err := stream.Err(); err != nil {
			final = llm.StreamChunk{Error: classifyError(err)}
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// GetModelName returns the model name.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// Capabilities reports streaming support.
func (c *ClaudeClient) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true}
}

// classifyError maps SDK errors onto the normalized categories.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(providerName, apiErr.StatusCode, err)
	}
	return llmerrors.Classify(providerName, err)
}

// Package openai provides the chat-completions client used for OpenAI and
// OpenAI-compatible endpoints such as Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

// Client wraps the Chat Completions API.
type Client struct {
	client   openai.Client
	model    string
	provider string
}

// NewClient creates a client for model. A non-empty baseURL points the client at an
// OpenAI-compatible endpoint; provider names that endpoint in classified errors.
func NewClient(provider, apiKey, baseURL, model string, opts ...option.RequestOption) llm.LLMClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &Client{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		provider: provider,
	}
}

func convertMessages(messages []llm.CompletionMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return result, nil
}

func (c *Client) buildParams(in llm.CompletionRequest) (openai.ChatCompletionNewParams, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeModelUnavailable, err, "message conversion error")
	}
	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(in.MaxTokens)),
	}
	if in.Temperature > 0 {
		params.Temperature = openai.Float(float64(in.Temperature))
	}
	return params, nil
}

// Complete implements llm.LLMClient.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := c.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, c.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeServer, "response contained no choices")
	}

	return llm.CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		StopReason: resp.Choices[0].FinishReason,
	}, nil
}

// Stream implements llm.LLMClient.
func (c *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	params, err := c.buildParams(in)
	if err != nil {
		return nil, err
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	out := make(chan llm.StreamChunk)

	go func() {
		defer close(out)
		defer stream.Close()

		for stream.Next() {
			ck := stream.Current()
			for i := range ck.Choices {
				text := ck.Choices[i].Delta.Content
				if text == "" {
					continue
				}
				select {
				case out <- llm.StreamChunk{Content: text}:
				case <-ctx.Done():
					return
				}
			}
		}

		final := llm.StreamChunk{Done: true}
		if err := stream.Err(); err != nil {
			final = llm.StreamChunk{Error: c.classifyError(err)}
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// GetModelName returns the model name.
func (c *Client) GetModelName() string {
	return c.model
}

// Capabilities reports streaming support.
func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true}
}

func (c *Client) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(c.provider, apiErr.StatusCode, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, err.Error())
	}
	return llmerrors.Classify(c.provider, err)
}

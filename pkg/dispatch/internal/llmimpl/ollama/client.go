// Package ollama provides the client for locally hosted Ollama models.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

const (
	providerName = "ollama"
	defaultHost  = "http://localhost:11434"
)

// Client wraps the Ollama chat API.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewOllamaClientWithModel creates a client for model served at hostURL.
// An unparsable hostURL falls back to the local default.
func NewOllamaClientWithModel(hostURL, model string) llm.LLMClient {
	parsedURL, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsedURL, _ = url.Parse(defaultHost)
	}

	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		hostURL: parsedURL.String(),
	}
}

func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}
	result := make([]api.Message, 0, len(messages))
	for i := range messages {
		result = append(result, api.Message{
			Role:    string(messages[i].Role),
			Content: messages[i].Content,
		})
	}
	return result, nil
}

func (o *Client) buildRequest(in llm.CompletionRequest, stream bool) (*api.ChatRequest, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeModelUnavailable, err, "message conversion error")
	}
	options := map[string]any{
		"num_predict": in.MaxTokens,
	}
	if in.Temperature > 0 {
		options["temperature"] = in.Temperature
	}
	return &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, nil
}

// Complete implements llm.LLMClient.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	req, err := o.buildRequest(in, false)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: getStopReason(&response),
	}, nil
}

// Stream implements llm.LLMClient. The chat callback runs on a goroutine that
// forwards each partial message as a chunk.
func (o *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	req, err := o.buildRequest(in, true)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)

		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case out <- llm.StreamChunk{Content: resp.Message.Content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		final := llm.StreamChunk{Done: true}
		if err != nil {
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
func (o *Client) GetModelName() string {
	return o.model
}

// Capabilities reports streaming support.
func (o *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{Streaming: true}
}

func getStopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

func classifyError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llmerrors.FromStatus(providerName, statusErr.StatusCode, err)
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) {
		return llmerrors.FromStatus(providerName, statusErrPtr.StatusCode, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeModelUnavailable, err, err.Error())
	}
	return llmerrors.Classify(providerName, err)
}

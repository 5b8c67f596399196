package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
	"debatearena/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	operationComplete = "complete"
	operationStream   = "stream"
)

// UsageExtractor extracts token usage from a request and the response text.
type UsageExtractor func(req llm.CompletionRequest, content string) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken.
func DefaultUsageExtractor(req llm.CompletionRequest, content string) (promptTokens, completionTokens int) {
	var sb strings.Builder
	for i := range req.Messages {
		sb.WriteString(req.Messages[i].Content)
		sb.WriteString("\n")
	}
	return utils.CountTokens(sb.String()), utils.CountTokens(content)
}

// Middleware returns a middleware that records latency, token usage and
// failures for every call. Streams are recorded when they finish.
func Middleware(recorder Recorder, usageExtractor UsageExtractor) llm.Middleware {
	if recorder == nil {
		recorder = Nop()
	}
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		model := next.GetModelName()

		return llm.WrapClient(next,
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp.Content)
				}
				recorder.ObserveRequest(model, operationComplete, promptTokens, completionTokens,
					err == nil, ErrorLabel(err), time.Since(start))

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				in, err := next.Stream(ctx, req)
				if err != nil {
					recorder.ObserveRequest(model, operationStream, 0, 0, false, ErrorLabel(err), time.Since(start))
					return nil, err //nolint:wrapcheck // Middleware should pass through errors unchanged
				}

				out := make(chan llm.StreamChunk)
				go func() {
					defer close(out)
					var sb strings.Builder
					var streamErr error
					for chunk := range in {
						sb.WriteString(chunk.Content)
						if chunk.Error != nil {
							streamErr = chunk.Error
						}
						select {
						case out <- chunk:
						case <-ctx.Done():
							streamErr = ctx.Err()
						}
						if streamErr != nil || chunk.Done {
							break
						}
					}

					var promptTokens, completionTokens int
					if streamErr == nil {
						promptTokens, completionTokens = usageExtractor(req, sb.String())
					}
					recorder.ObserveRequest(model, operationStream, promptTokens, completionTokens,
						streamErr == nil, ErrorLabel(streamErr), time.Since(start))
				}()
				return out, nil
			},
		)
	}
}

// ErrorLabel maps an error to its metrics label.
func ErrorLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, llm.ErrStreamingUnsupported):
		return "streaming_unsupported"
	default:
		return llmerrors.TypeOf(err).String()
	}
}

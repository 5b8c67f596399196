package retry

import (
	"context"
	"errors"
	"fmt"

	"debatearena/pkg/llm"
)

// ExhaustedError is returned when every attempt failed with a retryable error.
// It unwraps to the last error, so llmerrors.TypeOf still reports its category.
type ExhaustedError struct {
	Err      error
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. It is the single bounded loop shared by Complete and Stream.
func Do[T any](ctx context.Context, policy *Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	maxAttempts := policy.Config.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.ShouldRetry(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := policy.CalculateDelay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, delay)
		}
		if waitErr := policy.wait(ctx, delay); waitErr != nil {
			return zero, fmt.Errorf("retry cancelled: %w", errors.Join(waitErr, lastErr))
		}
	}

	return zero, &ExhaustedError{Err: lastErr, Attempts: maxAttempts}
}

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// Stream retries cover establishing the stream only; mid-stream failures are
// delivered on the channel for the caller to handle.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(next,
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				return Do(ctx, policy, func(ctx context.Context) (llm.CompletionResponse, error) {
					return next.Complete(ctx, req)
				})
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				if !next.Capabilities().Streaming {
					return nil, llm.ErrStreamingUnsupported
				}
				return Do(ctx, policy, func(ctx context.Context) (<-chan llm.StreamChunk, error) {
					return next.Stream(ctx, req)
				})
			},
		)
	}
}

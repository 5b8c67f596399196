// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
	"debatearena/pkg/logx"
)

// maxLoggedPromptChars bounds prompt text in debug lines.
const maxLoggedPromptChars = 400

// Middleware returns a middleware that tags each call with a request id and
// logs its outcome. Failures are logged with the sanitized prompt; request
// and response bodies only appear with DEBUG_DOMAINS including "llm".
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm-middleware")
	}

	return func(next llm.LLMClient) llm.LLMClient {
		model := next.GetModelName()

		return llm.WrapClient(next,
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				ctx = withRequestID(ctx)
				logx.Debug(ctx, "llm", "complete %s max_tokens=%d prompt=%q",
					model, req.MaxTokens, llmerrors.SanitizePrompt(lastUserMessage(req), maxLoggedPromptChars))

				start := time.Now()
				resp, err := next.Complete(ctx, req)
				if err != nil {
					logFailure(ctx, logger, model, "complete", req, err)
					return resp, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				}

				if resp.Content == "" {
					logger.Warn("Empty response from %s (stop reason %q, request %s)", model, resp.StopReason, logx.RequestID(ctx))
				}
				logx.Debug(ctx, "llm", "complete %s ok in %dms (%d chars, stop %s)",
					model, time.Since(start).Milliseconds(), len(resp.Content), resp.StopReason)
				return resp, nil
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				ctx = withRequestID(ctx)
				logx.Debug(ctx, "llm", "stream %s max_tokens=%d", model, req.MaxTokens)

				ch, err := next.Stream(ctx, req)
				if err != nil && !errors.Is(err, llm.ErrStreamingUnsupported) {
					logFailure(ctx, logger, model, "stream", req, err)
				}
				return ch, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
			},
		)
	}
}

func withRequestID(ctx context.Context) context.Context {
	if logx.RequestID(ctx) != "" {
		return ctx
	}
	return logx.WithRequestID(ctx, uuid.NewString())
}

func logFailure(ctx context.Context, logger *logx.Logger, model, op string, req llm.CompletionRequest, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Info("%s %s cancelled (request %s)", op, model, logx.RequestID(ctx))
		return
	}
	logger.Warn("%s %s failed (request %s, %s): %v", op, model, logx.RequestID(ctx), llmerrors.TypeOf(err), err)
	logx.Debug(ctx, "llm", "failed prompt: %s", llmerrors.SanitizePrompt(lastUserMessage(req), maxLoggedPromptChars))
}

func lastUserMessage(req llm.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

package llm

import (
	"context"
)

// Middleware represents a function that wraps an LLMClient with additional behavior.
// Middleware functions are composed using Chain() to create a processing pipeline.
type Middleware func(next LLMClient) LLMClient

// clientFunc adapts plain functions to the LLMClient interface. Metadata
// calls are delegated to the wrapped client.
type clientFunc struct {
	next     LLMClient
	complete func(context.Context, CompletionRequest) (CompletionResponse, error)
	stream   func(context.Context, CompletionRequest) (<-chan StreamChunk, error)
}

func (f clientFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.complete(ctx, req)
}

func (f clientFunc) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return f.stream(ctx, req)
}

func (f clientFunc) GetModelName() string {
	return f.next.GetModelName()
}

func (f clientFunc) Capabilities() Capabilities {
	return f.next.Capabilities()
}

// WrapClient creates a new LLMClient around next using the provided function implementations.
// A nil function passes the call straight through to next.
func WrapClient(
	next LLMClient,
	complete func(context.Context, CompletionRequest) (CompletionResponse, error),
	stream func(context.Context, CompletionRequest) (<-chan StreamChunk, error),
) LLMClient {
	if complete == nil {
		complete = next.Complete
	}
	if stream == nil {
		stream = next.Stream
	}
	return clientFunc{
		next:     next,
		complete: complete,
		stream:   stream,
	}
}

// Chain composes multiple middlewares around a base LLMClient.
// Middlewares are applied in order, with earlier middlewares being outermost.
//
// For example: Chain(client, mw1, mw2, mw3) creates the call stack:
//
//	mw1 -> mw2 -> mw3 -> client
func Chain(base LLMClient, middlewares ...Middleware) LLMClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}

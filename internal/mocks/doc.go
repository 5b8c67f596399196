// Package mocks provides shared mock implementations for testing.
//
// MockLLMClient implements llm.LLMClient with scripted Complete and Stream
// behavior and records every request it receives:
//
//	client := mocks.NewMockLLMClient()
//	client.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
//	    return llm.CompletionResponse{Content: "test response"}, nil
//	})
package mocks

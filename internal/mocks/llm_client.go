package mocks

import (
	"context"
	"sync"

	"debatearena/pkg/llm"
)

// MockLLMClient implements llm.LLMClient for testing. Complete and Stream
// delegate to CompleteFunc and StreamFunc and every request is recorded.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error)

	CompleteCalls []llm.CompletionRequest
	StreamCalls   []llm.CompletionRequest

	modelName string
	streaming bool
	mu        sync.Mutex
}

// NewMockLLMClient returns a streaming-capable mock that answers "Mock response".
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{modelName: "mock-model", streaming: true}
	m.RespondWith("Mock response")
	m.StreamContent("Mock response", 5)
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

// Stream implements llm.LLMClient. A mock with streaming disabled fails with
// llm.ErrStreamingUnsupported before StreamFunc is consulted.
func (m *MockLLMClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, req)
	fn, streaming := m.StreamFunc, m.streaming
	m.mu.Unlock()
	if !streaming {
		return nil, llm.ErrStreamingUnsupported
	}
	return fn(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelName
}

// Capabilities implements llm.LLMClient.
func (m *MockLLMClient) Capabilities() llm.Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return llm.Capabilities{Streaming: m.streaming}
}

// SetModelName sets the name reported by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelName = name
}

// SetStreaming sets the streaming capability.
func (m *MockLLMClient) SetStreaming(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaming = enabled
}

// OnComplete replaces the Complete handler.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = fn
}

// OnStream replaces the Stream handler.
func (m *MockLLMClient) OnStream(fn func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamFunc = fn
}

// RespondWith makes Complete return content.
func (m *MockLLMClient) RespondWith(content string) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: content, StopReason: "end_turn"}, nil
	})
}

// StreamContent makes Stream deliver content in chunkSize-byte pieces.
func (m *MockLLMClient) StreamContent(content string, chunkSize int) {
	m.OnStream(func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		ch := make(chan llm.StreamChunk, len(content)/chunkSize+2)
		for i := 0; i < len(content); i += chunkSize {
			ch <- llm.StreamChunk{Content: content[i:min(i+chunkSize, len(content))]}
		}
		ch <- llm.StreamChunk{Done: true}
		close(ch)
		return ch, nil
	})
}

// FailCompleteWith makes Complete return err.
func (m *MockLLMClient) FailCompleteWith(err error) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, err
	})
}

// StreamWithError delivers content and then fails the stream with err.
func (m *MockLLMClient) StreamWithError(content string, err error) {
	m.OnStream(func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		ch := make(chan llm.StreamChunk, 2)
		ch <- llm.StreamChunk{Content: content}
		ch <- llm.StreamChunk{Error: err}
		close(ch)
		return ch, nil
	})
}

// GetCompleteCallCount returns the number of Complete calls.
func (m *MockLLMClient) GetCompleteCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// GetStreamCallCount returns the number of Stream calls.
func (m *MockLLMClient) GetStreamCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StreamCalls)
}

// LastCompleteCall returns the most recent Complete request, or nil.
func (m *MockLLMClient) LastCompleteCall() *llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CompleteCalls) == 0 {
		return nil
	}
	return &m.CompleteCalls[len(m.CompleteCalls)-1]
}

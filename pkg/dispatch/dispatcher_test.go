package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatearena/internal/mocks"
	"debatearena/pkg/config"
	"debatearena/pkg/llm"
	"debatearena/pkg/llm/middleware/metrics"
	"debatearena/pkg/llm/middleware/retry"
	"debatearena/pkg/llmerrors"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Models = map[string]config.ModelInfo{
		"test-debater": {
			Provider:     config.ProviderAnthropic,
			DisplayName:  "Test Debater",
			SystemPrompt: "registry system prompt",
			MaxTokens:    777,
			Debater:      true,
		},
		"test-judge": {
			Provider: config.ProviderOpenAI,
			Judge:    true,
		},
	}
	return cfg
}

// instantPolicy retries without sleeping.
func instantPolicy() *retry.Policy {
	p := retry.NewPolicy(retry.DefaultConfig, nil)
	p.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return p
}

// counterSum adds up every series of the named counter in reg.
func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// newTestService returns a service whose factory hands out one mock per model id.
func newTestService(t *testing.T, opts ...Option) (*Service, func(modelID string) *mocks.MockLLMClient) {
	t.Helper()
	var mu sync.Mutex
	clients := map[string]*mocks.MockLLMClient{}
	get := func(modelID string) *mocks.MockLLMClient {
		mu.Lock()
		defer mu.Unlock()
		m, ok := clients[modelID]
		if !ok {
			m = mocks.NewMockLLMClient()
			m.SetModelName(modelID)
			clients[modelID] = m
		}
		return m
	}
	factory := func(info config.ModelInfo, _ *config.Config) (llm.LLMClient, error) {
		return get(info.ID), nil
	}
	base := []Option{WithClientFactory(factory), WithRetryPolicy(instantPolicy())}
	return NewService(testConfig(), append(base, opts...)...), get
}

func TestGenerateResponseUsesRegistryDefaults(t *testing.T) {
	svc, get := newTestService(t)
	get("test-debater").RespondWith("an argument")

	text, err := svc.GenerateResponse(context.Background(), "test-debater", "make your case", Options{})
	require.NoError(t, err)
	assert.Equal(t, "an argument", text)

	call := get("test-debater").LastCompleteCall()
	require.NotNil(t, call)
	assert.Equal(t, 777, call.MaxTokens)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, llm.RoleSystem, call.Messages[0].Role)
	assert.Equal(t, "registry system prompt", call.Messages[0].Content)
	assert.Equal(t, "make your case", call.Messages[1].Content)
}

func TestGenerateResponseOptionsOverride(t *testing.T) {
	svc, get := newTestService(t)

	_, err := svc.GenerateResponse(context.Background(), "test-judge", "judge this", Options{SystemPrompt: "custom", MaxTokens: 3000})
	require.NoError(t, err)

	call := get("test-judge").LastCompleteCall()
	require.NotNil(t, call)
	assert.Equal(t, 3000, call.MaxTokens)
	assert.Equal(t, "custom", call.Messages[0].Content)
}

func TestGenerateResponseDefaultMaxTokens(t *testing.T) {
	svc, get := newTestService(t)

	_, err := svc.GenerateResponse(context.Background(), "test-judge", "judge this", Options{})
	require.NoError(t, err)

	call := get("test-judge").LastCompleteCall()
	require.NotNil(t, call)
	assert.Equal(t, llm.DefaultMaxTokens, call.MaxTokens)
	require.Len(t, call.Messages, 1)
}

func TestGenerateResponseUnknownModel(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GenerateResponse(context.Background(), "no-such-model", "hi", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotConfigured))
	assert.True(t, IsConfigError(err))
}

func TestGenerateResponseRetriesTransientFailures(t *testing.T) {
	svc, get := newTestService(t)
	mock := get("test-debater")

	calls := 0
	mock.OnComplete(func(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
		calls++
		if calls < 3 {
			return llm.CompletionResponse{}, llmerrors.FromStatus("anthropic", 529, nil)
		}
		return llm.CompletionResponse{Content: "recovered"}, nil
	})

	text, err := svc.GenerateResponse(context.Background(), "test-debater", "hi", Options{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, mock.GetCompleteCallCount())
}

func TestGenerateResponseExhaustsRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	svc, get := newTestService(t, WithRecorder(recorder))
	mock := get("test-debater")
	mock.FailCompleteWith(llmerrors.FromStatus("anthropic", 429, nil))

	_, err := svc.GenerateResponse(context.Background(), "test-debater", "hi", Options{})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeRateLimit))

	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, 4, mock.GetCompleteCallCount())
	assert.Equal(t, 3.0, counterSum(t, reg, "debatearena_llm_retries_total"))
}

func TestGenerateResponseAuthNotRetried(t *testing.T) {
	svc, get := newTestService(t)
	mock := get("test-debater")
	mock.FailCompleteWith(llmerrors.FromStatus("anthropic", 401, nil))

	_, err := svc.GenerateResponse(context.Background(), "test-debater", "hi", Options{})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Equal(t, 1, mock.GetCompleteCallCount())
}

func TestClientsAreCached(t *testing.T) {
	built := 0
	factory := func(info config.ModelInfo, _ *config.Config) (llm.LLMClient, error) {
		built++
		return mocks.NewMockLLMClient(), nil
	}
	svc := NewService(testConfig(), WithClientFactory(factory), WithRetryPolicy(instantPolicy()))

	for i := 0; i < 3; i++ {
		_, err := svc.GenerateResponse(context.Background(), "test-debater", "hi", Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, built)
}

func TestStreamResponse(t *testing.T) {
	svc, get := newTestService(t)
	get("test-debater").StreamContent("Hello streaming world", 4)

	var chunks []string
	text, err := svc.StreamResponse(context.Background(), "test-debater", "hi", Options{}, func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello streaming world", text)
	assert.Equal(t, text, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)
}

func TestStreamResponseUnsupported(t *testing.T) {
	svc, get := newTestService(t)
	get("test-debater").SetStreaming(false)

	_, err := svc.StreamResponse(context.Background(), "test-debater", "hi", Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrStreamingUnsupported))
	assert.Equal(t, 0, get("test-debater").GetCompleteCallCount())
}

func TestStreamResponseFallsBackMidStream(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	svc, get := newTestService(t, WithRecorder(recorder))
	mock := get("test-debater")
	mock.StreamWithError("Hello ", io.ErrUnexpectedEOF)
	mock.RespondWith("Hello complete answer")

	var chunks []string
	text, err := svc.StreamResponse(context.Background(), "test-debater", "hi", Options{}, func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello complete answer", text)
	assert.Equal(t, []string{"Hello ", "complete answer"}, chunks)
	assert.Equal(t, 1, mock.GetCompleteCallCount())
	assert.Equal(t, 1.0, counterSum(t, reg, "debatearena_stream_fallbacks_total"))
}

func TestStreamResponseFallbackDivergentText(t *testing.T) {
	svc, get := newTestService(t)
	mock := get("test-debater")
	mock.StreamWithError("Partial", io.ErrUnexpectedEOF)
	mock.RespondWith("Different full text")

	var chunks []string
	text, err := svc.StreamResponse(context.Background(), "test-debater", "hi", Options{}, func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Different full text", text)
	assert.Equal(t, []string{"Partial", "Different full text"}, chunks)
}

func TestStreamResponseFatalMidStreamError(t *testing.T) {
	svc, get := newTestService(t)
	mock := get("test-debater")
	mock.StreamWithError("Partial", llmerrors.FromStatus("anthropic", 401, nil))

	text, err := svc.StreamResponse(context.Background(), "test-debater", "hi", Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, "Partial", text)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Equal(t, 0, mock.GetCompleteCallCount())
}

func TestModelCapabilityFilters(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Contains(t, svc.DebaterModels(), "test-debater")
	assert.NotContains(t, svc.DebaterModels(), "test-judge")
	assert.Contains(t, svc.JudgeModels(), "test-judge")
	assert.NotContains(t, svc.JudgeModels(), "test-debater")

	info, err := svc.GetModelInfo("test-debater")
	require.NoError(t, err)
	assert.Equal(t, "Test Debater", info.DisplayName)
	assert.Equal(t, "test-debater", info.APIModel)
}

func TestDefaultClientFactory(t *testing.T) {
	cfg := config.Default()

	_, err := DefaultClientFactory(config.ModelInfo{ID: "x", Provider: "mistral"}, &cfg)
	assert.True(t, errors.Is(err, ErrProviderNotImplemented))

	client, err := DefaultClientFactory(config.ModelInfo{ID: "local", Provider: config.ProviderOllama, APIModel: "llama3.1"}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", client.GetModelName())
	assert.True(t, client.Capabilities().Streaming)
}

func TestDefaultClientFactoryMissingKey(t *testing.T) {
	t.Setenv(config.EnvGroqAPIKey, "")
	config.SetDecryptedSecrets(nil)
	cfg := config.Default()

	_, err := DefaultClientFactory(config.ModelInfo{ID: "g", Provider: config.ProviderGroq, APIModel: "llama"}, &cfg)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
}

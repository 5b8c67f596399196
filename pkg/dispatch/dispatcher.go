// Package dispatch resolves logical model ids to provider clients and exposes a
// uniform generate/stream surface with retry, metrics and logging applied.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"debatearena/pkg/config"
	"debatearena/pkg/llm"
	"debatearena/pkg/llm/middleware/logging"
	"debatearena/pkg/llm/middleware/metrics"
	"debatearena/pkg/llm/middleware/retry"
	"debatearena/pkg/llmerrors"
	"debatearena/pkg/logx"
)

// Options tunes a single generation call. Zero values fall back to the model's
// registry defaults.
type Options struct {
	SystemPrompt string
	MaxTokens    int
}

// Service is the model dispatch layer. It is safe for concurrent use.
type Service struct {
	cfg      config.Config
	registry map[string]config.ModelInfo
	factory  ClientFactory
	recorder metrics.Recorder
	policy   *retry.Policy
	logger   *logx.Logger

	mu      sync.Mutex
	clients map[string]llm.LLMClient
}

// Option configures a Service.
type Option func(*Service)

// WithClientFactory replaces the provider client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) { s.factory = f }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRetryPolicy replaces the retry policy built from config.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a dispatch service over the registry in cfg.
func NewService(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		registry: cfg.Registry(),
		factory:  DefaultClientFactory,
		recorder: metrics.Nop(),
		logger:   logx.NewLogger("dispatch"),
		clients:  make(map[string]llm.LLMClient),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = retry.NewPolicy(retry.Config{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay(),
			Jitter:     cfg.Retry.Jitter,
		}, nil)
	}
	return s
}

// Recorder returns the metrics recorder used by the service.
func (s *Service) Recorder() metrics.Recorder {
	return s.recorder
}

// GetModelInfo returns the registry entry for modelID.
func (s *Service) GetModelInfo(modelID string) (config.ModelInfo, error) {
	info, ok := s.registry[modelID]
	if !ok {
		return config.ModelInfo{}, fmt.Errorf("%w: %s", ErrModelNotConfigured, modelID)
	}
	return info, nil
}

// DebaterModels returns the sorted ids of debate-capable models.
func (s *Service) DebaterModels() []string {
	return config.FilterModels(s.registry, func(m config.ModelInfo) bool { return m.Debater })
}

// JudgeModels returns the sorted ids of judge-capable models.
func (s *Service) JudgeModels() []string {
	return config.FilterModels(s.registry, func(m config.ModelInfo) bool { return m.Judge })
}

// GenerateResponse sends prompt to modelID and returns the full response text.
// Transient failures are retried; the returned error carries the llmerrors category.
func (s *Service) GenerateResponse(ctx context.Context, modelID, prompt string, opts Options) (string, error) {
	info, client, err := s.clientFor(modelID)
	if err != nil {
		return "", err
	}

	resp, err := client.Complete(ctx, s.buildRequest(info, prompt, opts))
	if err != nil {
		return "", fmt.Errorf("generate response with %s: %w", modelID, err)
	}
	return resp.Content, nil
}

// StreamResponse sends prompt to modelID and delivers the response to onChunk as it
// arrives. It returns the full text. A mid-stream failure is recovered with one full
// completion; only the part not yet delivered is passed to onChunk when the full
// text extends what was streamed, otherwise the full text is delivered once.
// Clients without streaming capability return an error wrapping llm.ErrStreamingUnsupported.
func (s *Service) StreamResponse(ctx context.Context, modelID, prompt string, opts Options, onChunk func(string)) (string, error) {
	info, client, err := s.clientFor(modelID)
	if err != nil {
		return "", err
	}
	if onChunk == nil {
		onChunk = func(string) {}
	}
	if !client.Capabilities().Streaming {
		return "", fmt.Errorf("stream response with %s: %w", modelID, llm.ErrStreamingUnsupported)
	}

	req := s.buildRequest(info, prompt, opts)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := client.Stream(streamCtx, req)
	if err != nil {
		return "", fmt.Errorf("stream response with %s: %w", modelID, err)
	}

	delivered, streamErr := llm.Collect(streamCtx, ch, onChunk)
	cancel()
	if streamErr == nil {
		return delivered, nil
	}
	if ctx.Err() != nil {
		return delivered, fmt.Errorf("stream response with %s: %w", modelID, ctx.Err())
	}
	if !llmerrors.IsRetryable(streamErr) {
		return delivered, fmt.Errorf("stream response with %s: %w", modelID, streamErr)
	}

	s.logger.Warn("Stream from %s failed after %d chars, falling back to full response: %v", modelID, len(delivered), streamErr)
	s.recorder.IncStreamFallback(modelID)

	resp, err := client.Complete(ctx, req)
	if err != nil {
		return delivered, fmt.Errorf("stream fallback with %s: %w", modelID, err)
	}

	full := resp.Content
	switch {
	case strings.HasPrefix(full, delivered):
		if rest := full[len(delivered):]; rest != "" {
			onChunk(rest)
		}
	default:
		onChunk(full)
	}
	return full, nil
}

func (s *Service) buildRequest(info config.ModelInfo, prompt string, opts Options) llm.CompletionRequest {
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = info.SystemPrompt
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = info.MaxTokens
	}
	return llm.NewCompletionRequest(systemPrompt, prompt, maxTokens)
}

// clientFor returns the cached middleware-wrapped client for modelID, building it on first use.
func (s *Service) clientFor(modelID string) (config.ModelInfo, llm.LLMClient, error) {
	info, err := s.GetModelInfo(modelID)
	if err != nil {
		return config.ModelInfo{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[modelID]; ok {
		return info, client, nil
	}

	raw, err := s.factory(info, &s.cfg)
	if err != nil {
		return config.ModelInfo{}, nil, fmt.Errorf("create client for %s: %w", modelID, err)
	}

	client := llm.Chain(raw,
		logging.Middleware(s.logger),
		metrics.Middleware(s.recorder, nil),
		retry.Middleware(s.policyFor(modelID)),
	)
	s.clients[modelID] = client
	s.logger.Debug("Created %s client for %s (%s)", info.Provider, modelID, info.APIModel)
	return info, client, nil
}

// policyFor copies the shared policy with a retry hook that reports modelID.
func (s *Service) policyFor(modelID string) *retry.Policy {
	p := *s.policy
	prev := s.policy.OnRetry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		label := metrics.ErrorLabel(err)
		s.recorder.IncRetry(modelID, label)
		s.logger.Warn("Retrying %s (retry %d/%d in %v): %v", modelID, attempt, p.Config.MaxRetries, delay.Round(time.Millisecond), err)
		if prev != nil {
			prev(attempt, err, delay)
		}
	}
	return &p
}

// IsConfigError reports whether err is a dispatch configuration failure rather
// than a provider failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrModelNotConfigured) || errors.Is(err, ErrProviderNotImplemented)
}

package dispatch

import (
	"errors"
	"fmt"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"debatearena/pkg/config"
	"debatearena/pkg/dispatch/internal/llmimpl/anthropic"
	"debatearena/pkg/dispatch/internal/llmimpl/google"
	"debatearena/pkg/dispatch/internal/llmimpl/ollama"
	"debatearena/pkg/dispatch/internal/llmimpl/openai"
	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

var (
	// ErrModelNotConfigured is returned for model ids missing from the registry.
	ErrModelNotConfigured = errors.New("model not configured")
	// ErrProviderNotImplemented is returned for registry entries naming an unknown provider.
	ErrProviderNotImplemented = errors.New("provider not implemented")
)

// ClientFactory builds the raw provider client for a registry entry.
type ClientFactory func(info config.ModelInfo, cfg *config.Config) (llm.LLMClient, error)

// DefaultClientFactory builds SDK-backed clients. A missing credential is an auth error.
func DefaultClientFactory(info config.ModelInfo, cfg *config.Config) (llm.LLMClient, error) {
	switch info.Provider {
	case config.ProviderAnthropic:
		key, err := apiKey(cfg, info.Provider)
		if err != nil {
			return nil, err
		}
		var opts []anthropicoption.RequestOption
		if baseURL := cfg.BaseURL(info.Provider); baseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(baseURL))
		}
		return anthropic.NewClaudeClientWithModel(key, info.APIModel, opts...), nil

	case config.ProviderOpenAI, config.ProviderGroq:
		key, err := apiKey(cfg, info.Provider)
		if err != nil {
			return nil, err
		}
		return openai.NewClient(info.Provider, key, cfg.BaseURL(info.Provider), info.APIModel), nil

	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(cfg.BaseURL(info.Provider), info.APIModel), nil

	case config.ProviderGoogle:
		key, err := apiKey(cfg, info.Provider)
		if err != nil {
			return nil, err
		}
		return google.NewGeminiClientWithModel(key, info.APIModel), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrProviderNotImplemented, info.Provider)
	}
}

func apiKey(cfg *config.Config, provider string) (string, error) {
	key, err := cfg.APIKey(provider)
	if err != nil {
		return "", &llmerrors.Error{Type: llmerrors.ErrorTypeAuth, Provider: provider, Err: err, Message: err.Error()}
	}
	return key, nil
}

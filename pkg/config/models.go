package config

import (
	"sort"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderOllama    = "ollama"
	ProviderGoogle    = "google"
)

// Default environment variables holding provider credentials.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGroqAPIKey      = "GROQ_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// DefaultOllamaHost is used when neither config nor OLLAMA_HOST names a host.
const DefaultOllamaHost = "http://localhost:11434"

const defaultModelMaxTokens = 4096

// ModelInfo describes one logical model id available for debating or judging.
type ModelInfo struct {
	ID           string `json:"id" yaml:"id" toml:"id"`
	Provider     string `json:"provider" yaml:"provider" toml:"provider"`
	APIModel     string `json:"api_model" yaml:"api_model" toml:"api_model"`
	DisplayName  string `json:"display_name" yaml:"display_name" toml:"display_name"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
	MaxTokens    int    `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Debater      bool   `json:"debater" yaml:"debater" toml:"debater"`
	Judge        bool   `json:"judge" yaml:"judge" toml:"judge"`
}

// KnownModels is the built-in registry, keyed by logical model id.
// Entries in the config file's "models" section are merged over it.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	// Anthropic
	"claude-sonnet-3.7": {
		Provider:    ProviderAnthropic,
		APIModel:    "claude-3-7-sonnet-20250219",
		DisplayName: "Claude Sonnet 3.7",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"claude-sonnet-3.7-thinking": {
		Provider:     ProviderAnthropic,
		APIModel:     "claude-3-7-sonnet-20250219",
		DisplayName:  "Claude Sonnet 3.7 (Thinking)",
		SystemPrompt: "Think step-by-step about the arguments before providing your response.",
		MaxTokens:    defaultModelMaxTokens,
		Debater:      true,
		Judge:        true,
	},
	"claude-sonnet-3.5": {
		Provider:    ProviderAnthropic,
		APIModel:    "claude-3-5-sonnet-20241022",
		DisplayName: "Claude Sonnet 3.5",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"claude-opus-3": {
		Provider:    ProviderAnthropic,
		APIModel:    "claude-3-opus-20240229",
		DisplayName: "Claude Opus 3",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},

	// OpenAI
	"gpt-4o": {
		Provider:    ProviderOpenAI,
		APIModel:    "gpt-4o",
		DisplayName: "GPT-4o",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"gpt-4.5-preview": {
		Provider:    ProviderOpenAI,
		APIModel:    "gpt-4.5-preview",
		DisplayName: "GPT-4.5 Preview",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"o1": {
		Provider:    ProviderOpenAI,
		APIModel:    "o1",
		DisplayName: "O1",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"o3-mini": {
		Provider:    ProviderOpenAI,
		APIModel:    "o3-mini",
		DisplayName: "O3 Mini",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},

	// Groq
	"llama-3.3-70b-versatile": {
		Provider:    ProviderGroq,
		APIModel:    "llama-3.3-70b-versatile",
		DisplayName: "Llama 3.3 70B Versatile",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"deepseek-r1-distill-llama-70b": {
		Provider:    ProviderGroq,
		APIModel:    "deepseek-r1-distill-llama-70b",
		DisplayName: "DeepSeek R1 Distill Llama 70B",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"mistral-saba-24b": {
		Provider:    ProviderGroq,
		APIModel:    "mistral-saba-24b",
		DisplayName: "Mistral Saba 24B",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},

	// Google
	"gemini-2.5-pro": {
		Provider:    ProviderGoogle,
		APIModel:    "gemini-2.5-pro",
		DisplayName: "Gemini 2.5 Pro",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},
	"gemini-2.5-flash": {
		Provider:    ProviderGoogle,
		APIModel:    "gemini-2.5-flash",
		DisplayName: "Gemini 2.5 Flash",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
		Judge:       true,
	},

	// Ollama (local). Small models make weak judges, so they only debate.
	"ollama-llama3.1": {
		Provider:    ProviderOllama,
		APIModel:    "llama3.1",
		DisplayName: "Llama 3.1 8B (local)",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
	},
	"ollama-qwen2.5": {
		Provider:    ProviderOllama,
		APIModel:    "qwen2.5",
		DisplayName: "Qwen 2.5 7B (local)",
		MaxTokens:   defaultModelMaxTokens,
		Debater:     true,
	},
}

// Registry merges KnownModels with the models declared in cfg. Every entry
// has its ID set to its key and its display name and API model defaulted.
func (c *Config) Registry() map[string]ModelInfo {
	registry := make(map[string]ModelInfo, len(KnownModels)+len(c.Models))
	for id, info := range KnownModels {
		registry[id] = normalizeModel(id, info)
	}
	for id, info := range c.Models {
		registry[id] = normalizeModel(id, info)
	}
	return registry
}

func normalizeModel(id string, info ModelInfo) ModelInfo {
	info.ID = id
	if info.APIModel == "" {
		info.APIModel = id
	}
	if info.DisplayName == "" {
		info.DisplayName = id
	}
	return info
}

// GetModelInfo looks up a model id in the loaded config's registry, or in
// KnownModels when no config is loaded.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	cfg := currentOrDefault()
	info, ok := cfg.Registry()[modelID]
	return info, ok
}

// DebaterModels returns the sorted ids of debate-capable models.
func DebaterModels() []string {
	cfg := currentOrDefault()
	return FilterModels(cfg.Registry(), func(m ModelInfo) bool { return m.Debater })
}

// JudgeModels returns the sorted ids of judge-capable models.
func JudgeModels() []string {
	cfg := currentOrDefault()
	return FilterModels(cfg.Registry(), func(m ModelInfo) bool { return m.Judge })
}

// FilterModels returns the sorted ids in registry that satisfy keep.
func FilterModels(registry map[string]ModelInfo, keep func(ModelInfo) bool) []string {
	ids := make([]string, 0, len(registry))
	for id, info := range registry {
		if keep(info) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

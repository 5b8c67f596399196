// Package config provides configuration loading, the model registry and secrets
// management for debatearena.
//
// A single global Config is loaded once at startup from
// <projectDir>/.debatearena/config.json (or config.yaml) and protected by a mutex.
// GetConfig returns it BY VALUE so callers cannot mutate shared state.
//
//	err := config.LoadConfig(projectDir)
//	cfg, err := config.GetConfig()
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"debatearena/pkg/logx"
)

// Project config constants.
const (
	ProjectConfigDir = ".debatearena"
	ConfigFileJSON   = "config.json"
	ConfigFileYAML   = "config.yaml"
	ConfigFileTOML   = "config.toml"
)

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Defaults applied to missing fields.
const (
	DefaultDataDir          = "data"
	DefaultMaxRetries       = 3
	DefaultBaseDelayMS      = 1000
	DefaultJitter           = 0.5
	DefaultJudgingMaxTokens = 3000
	DefaultMetricsAddr      = ":9464"
)

// Global config instance with mutex protection.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// StorageConfig selects and locates the document store.
type StorageConfig struct {
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" toml:"sqlite_path,omitempty"`
}

// RetryConfig controls provider call backoff.
type RetryConfig struct {
	MaxRetries  int     `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	BaseDelayMS int     `json:"base_delay_ms" yaml:"base_delay_ms" toml:"base_delay_ms"`
	Jitter      float64 `json:"jitter" yaml:"jitter" toml:"jitter"`
}

// BaseDelay returns BaseDelayMS as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// ProviderConfig overrides connection settings for one provider.
type ProviderConfig struct {
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
}

// MetricsConfig controls the Prometheus recorder and its HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" toml:"listen_addr,omitempty"`
}

// JudgingConfig controls judgment behavior.
type JudgingConfig struct {
	RateDraws bool `json:"rate_draws" yaml:"rate_draws" toml:"rate_draws"`
	MaxTokens int  `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
}

// Config is the complete debatearena configuration.
type Config struct {
	DataDir   string                    `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	Storage   StorageConfig             `json:"storage" yaml:"storage" toml:"storage"`
	Retry     RetryConfig               `json:"retry" yaml:"retry" toml:"retry"`
	Providers map[string]ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty" toml:"providers,omitempty"`
	Metrics   MetricsConfig             `json:"metrics" yaml:"metrics" toml:"metrics"`
	Judging   JudgingConfig             `json:"judging" yaml:"judging" toml:"judging"`
	Models    map[string]ModelInfo      `json:"models,omitempty" yaml:"models,omitempty" toml:"models,omitempty"`
}

// Default returns a config with every default applied.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// GetConfig returns the current global config BY VALUE.
// Must call LoadConfig first to initialize the global config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return *config, nil
}

// SetConfigForTesting sets the global config for testing purposes.
// Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
	if cfg == nil {
		projectDir = ""
	}
}

// GetProjectDir returns the directory passed to LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

func currentOrDefault() Config {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Default()
	}
	return *config
}

// LoadConfig loads <projectDir>/.debatearena/config.json, falling back to
// config.yaml and then config.toml, into the global singleton. A missing file
// yields defaults; an unparseable file is an error.
func LoadConfig(inputProjectDir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = inputProjectDir
	dir := filepath.Join(projectDir, ProjectConfigDir)

	var loaded *Config
	for _, name := range []string{ConfigFileJSON, ConfigFileYAML, ConfigFileTOML} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		getLogger().Info("Loading config from %s", path)
		cfg, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("config file exists but cannot be loaded: %w", err)
		}
		loaded = cfg
		break
	}

	if loaded == nil {
		getLogger().Info("No config file in %s, using defaults", dir)
		cfg := Default()
		applyEnvOverrides(&cfg)
		if err := validateConfig(&cfg); err != nil {
			return fmt.Errorf("default config validation failed: %w", err)
		}
		loaded = &cfg
	}

	if !filepath.IsAbs(loaded.DataDir) {
		loaded.DataDir = filepath.Join(projectDir, loaded.DataDir)
	}
	if loaded.Storage.SQLitePath != "" && !filepath.IsAbs(loaded.Storage.SQLitePath) {
		loaded.Storage.SQLitePath = filepath.Join(projectDir, loaded.Storage.SQLitePath)
	}

	config = loaded
	return nil
}

// SaveConfig writes cfg as JSON to <projectDir>/.debatearena/config.json.
func SaveConfig(cfg *Config, dir string) error {
	return saveJSON(filepath.Join(dir, ProjectConfigDir, ConfigFileJSON), cfg)
}

// APIKey returns the credential for provider. The secrets file is checked
// before the environment. For Ollama the host URL is returned instead.
func (c *Config) APIKey(provider string) (string, error) {
	envVar := ""
	switch provider {
	case ProviderAnthropic:
		envVar = EnvAnthropicAPIKey
	case ProviderOpenAI:
		envVar = EnvOpenAIAPIKey
	case ProviderGroq:
		envVar = EnvGroqAPIKey
	case ProviderGoogle:
		envVar = EnvGoogleAPIKey
	case ProviderOllama:
		return c.BaseURL(provider), nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}
	if p, ok := c.Providers[provider]; ok && p.APIKeyEnv != "" {
		envVar = p.APIKeyEnv
	}

	key, err := GetSecret(envVar)
	if err == nil && key != "" {
		return key, nil
	}
	return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", envVar)
}

// BaseURL returns the configured endpoint for provider, or its default.
// An empty result means the SDK default.
func (c *Config) BaseURL(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.BaseURL != "" {
		return p.BaseURL
	}
	switch provider {
	case ProviderGroq:
		return DefaultGroqBaseURL
	case ProviderOllama:
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host
		}
		return DefaultOllamaHost
	default:
		return ""
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. DEBATEARENA_RETRY_MAX_RETRIES=5.
const EnvPrefix = "DEBATEARENA_"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadFile parses a JSON, YAML or TOML config file (chosen by extension), expands
// ${VAR} placeholders, then applies environment overrides and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dataStr := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(dataStr), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal([]byte(dataStr), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal([]byte(dataStr), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem(), EnvPrefix)
}

func applyEnvOverridesRecursive(v reflect.Value, prefix string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		jsonTag := t.Field(i).Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		envKey := strings.ToUpper(prefix + strings.Split(jsonTag, ",")[0])

		if field.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(field, envKey+"_")
			continue
		}
		if envValue := os.Getenv(envKey); envValue != "" {
			setFieldFromEnv(field, envValue)
		}
	}
}

func setFieldFromEnv(field reflect.Value, envValue string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int:
		if val, err := strconv.Atoi(envValue); err == nil {
			field.SetInt(int64(val))
		}
	case reflect.Float64:
		if val, err := strconv.ParseFloat(envValue, 64); err == nil {
			field.SetFloat(val)
		}
	case reflect.Bool:
		if val, err := strconv.ParseBool(envValue); err == nil {
			field.SetBool(val)
		}
	}
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageFile
	}
	if cfg.Storage.Backend == StorageSQLite && cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.DataDir, "debatearena.db")
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = DefaultMaxRetries
	}
	if cfg.Retry.BaseDelayMS == 0 {
		cfg.Retry.BaseDelayMS = DefaultBaseDelayMS
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = DefaultJitter
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = DefaultMetricsAddr
	}
	if cfg.Judging.MaxTokens == 0 {
		cfg.Judging.MaxTokens = DefaultJudgingMaxTokens
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (want %q or %q)", cfg.Storage.Backend, StorageFile, StorageSQLite)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter >= 1 {
		return fmt.Errorf("retry.jitter must be in [0, 1), got %v", cfg.Retry.Jitter)
	}
	for id, m := range cfg.Models {
		switch m.Provider {
		case ProviderAnthropic, ProviderOpenAI, ProviderGroq, ProviderOllama, ProviderGoogle:
		case "":
			return fmt.Errorf("model %s: provider is required", id)
		default:
			// Unknown providers are rejected at dispatch time with ErrProviderNotImplemented.
		}
	}
	return nil
}

func saveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

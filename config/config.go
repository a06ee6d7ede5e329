// Package config provides configuration loading and management for
// spicecouncil.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that round-trips through YAML as a string
// like "30s" or "5m".
type Duration time.Duration

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete spicecouncil configuration.
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
	Ensemble  EnsembleConfig   `yaml:"ensemble"`
	Bundler   BundlerConfig    `yaml:"bundler"`
	Output    OutputConfig     `yaml:"output"`
	NATS      NATSConfig       `yaml:"nats"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	WebRef    WebRefConfig     `yaml:"webref"`
}

// ProviderConfig enables one (provider, model) pair for fanout.
type ProviderConfig struct {
	// Name is the registered provider name (anthropic, openai, ollama).
	Name string `yaml:"name"`
	// Model is the model identifier to send to the provider.
	Model string `yaml:"model"`
	// URL overrides the provider's default base URL.
	URL string `yaml:"url,omitempty"`
	// Enabled toggles this provider without removing its entry.
	Enabled bool `yaml:"enabled"`
}

// EnsembleConfig selects the provider that synthesizes the final answer.
type EnsembleConfig struct {
	// Provider is the registered provider name to ensemble with.
	Provider string `yaml:"provider"`
	// Model is the model identifier for the ensembling call.
	Model string `yaml:"model"`
	// URL overrides the provider's default base URL.
	URL string `yaml:"url,omitempty"`
	// Temperature controls randomness for the ensembling call (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxTokens limits the ensembling response length (0 = provider default).
	MaxTokens int `yaml:"max_tokens"`
	// Timeout is the maximum time to wait for responses.
	Timeout Duration `yaml:"timeout"`
}

// BundlerConfig bounds include bundling.
type BundlerConfig struct {
	// MaxFiles bounds how many include files are copied per pass.
	MaxFiles int `yaml:"max_files"`
	// MaxBytes bounds the cumulative copied size per pass.
	MaxBytes int64 `yaml:"max_bytes"`
	// AllowPatterns restricts bundling to matching specifiers (doublestar
	// globs). Empty means all specifiers are eligible.
	AllowPatterns []string `yaml:"allow_patterns"`
	// WatchDebounce is the delay before re-bundling after a file change.
	WatchDebounce Duration `yaml:"watch_debounce"`
}

// OutputConfig controls where run artifacts are written.
type OutputConfig struct {
	// Dir is the root directory for run artifacts.
	Dir string `yaml:"dir"`
}

// NATSConfig configures the audit store connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server).
	URL string `yaml:"url"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled).
	Addr string `yaml:"addr"`
}

// WebRefConfig controls reference-URL fetching.
type WebRefConfig struct {
	// Timeout is the maximum time to fetch a reference page.
	Timeout Duration `yaml:"timeout"`
	// MaxBytes caps the fetched page size.
	MaxBytes int64 `yaml:"max_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{Name: "anthropic", Model: "claude-sonnet-4-20250514", Enabled: true},
			{Name: "openai", Model: "gpt-4o", Enabled: true},
			{Name: "ollama", Model: "qwen2.5-coder:32b", Enabled: false},
		},
		Ensemble: EnsembleConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			Timeout:     Duration(5 * time.Minute),
		},
		Bundler: BundlerConfig{
			MaxFiles:      64,
			MaxBytes:      32 * 1024 * 1024,
			WatchDebounce: Duration(500 * time.Millisecond),
		},
		Output: OutputConfig{
			Dir: "spicecouncil-out",
		},
		NATS: NATSConfig{
			URL: "", // Embedded
		},
		Metrics: MetricsConfig{
			Addr: "", // Disabled
		},
		WebRef: WebRefConfig{
			Timeout:  Duration(30 * time.Second),
			MaxBytes: 4 * 1024 * 1024,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d].name is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("providers[%d].model is required", i)
		}
	}
	if c.Ensemble.Provider == "" {
		return fmt.Errorf("ensemble.provider is required")
	}
	if c.Ensemble.Model == "" {
		return fmt.Errorf("ensemble.model is required")
	}
	if c.Ensemble.Temperature < 0 || c.Ensemble.Temperature > 1 {
		return fmt.Errorf("ensemble.temperature must be between 0 and 1")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

// EnabledProviders returns the providers participating in fanout.
func (c *Config) EnabledProviders() []ProviderConfig {
	var enabled []ProviderConfig
	for _, p := range c.Providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// MergeFromFile overlays the YAML file at path onto the config. Keys absent
// from the file keep their current values, so files can be applied in order
// from lowest to highest precedence.
func (c *Config) MergeFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.MergeFromFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file and environment variables
func Load(configPath string) (*Config, *Secrets, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	return cfg, LoadSecrets(), nil
}

// Parse decodes TOML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	// Booleans that default to true are seeded before decoding,
	// since TOML cannot tell an absent key from false.
	cfg := Config{
		Server: ServerConfig{MetricsEnabled: true},
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ValidateInputs(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":9000"
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = "*"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 64 * 1024
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}

	if cfg.Upstream.Provider == "" {
		cfg.Upstream.Provider = ProviderResearch
	}
	if cfg.Upstream.TimeoutSeconds == 0 {
		cfg.Upstream.TimeoutSeconds = 120
	}
	if cfg.Upstream.MaxResponseBytes == 0 {
		cfg.Upstream.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "reportforge"
	}
	if cfg.Upstream.Provider == ProviderOpenAI {
		if cfg.Upstream.Temperature == 0 {
			cfg.Upstream.Temperature = 0.7
		}
		if cfg.Upstream.MaxOutputTokens == 0 {
			cfg.Upstream.MaxOutputTokens = 4096
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.PromptTemplates.Report == "" {
		cfg.PromptTemplates.Report = GetDefaultReportTemplate()
	}
	if cfg.PromptTemplates.Chart == "" {
		cfg.PromptTemplates.Chart = GetDefaultChartTemplate()
	}
}

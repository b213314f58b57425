package config

import (
	"fmt"
	"os"
	"strings"
)

// Upstream providers
const (
	// ProviderResearch posts {"api_key", "query"} to a research endpoint
	ProviderResearch = "research"
	// ProviderOpenAI calls an OpenAI-compatible chat/completions endpoint
	ProviderOpenAI = "openai"
)

// Config represents the complete application configuration
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Upstream        UpstreamConfig  `toml:"upstream"`
	Chart           ChartConfig     `toml:"chart"`
	PromptTemplates PromptTemplates `toml:"prompt_templates"`
	Logging         LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr                   string `toml:"addr"`
	AllowedOrigin          string `toml:"allowed_origin"`           // CORS origin (default: *)
	RateLimitPerMinute     int    `toml:"rate_limit_per_minute"`    // Per client IP, 0 = disabled
	MaxBodyBytes           int64  `toml:"max_body_bytes"`           // Request body cap (default: 64KB)
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"` // Graceful shutdown window (default: 10)
	MetricsEnabled         bool   `toml:"metrics_enabled"`          // Serve /metrics (default: true)
}

// UpstreamConfig describes the research/LLM API both prompts are sent to
type UpstreamConfig struct {
	Provider        string  `toml:"provider"` // research or openai (default: research)
	BaseURL         string  `toml:"base_url"`
	ModelName       string  `toml:"model_name"` // openai only
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	TimeoutSeconds  int     `toml:"timeout_seconds"` // Per request (default 120)
	UserAgent       string  `toml:"user_agent"`

	MaxResponseBytes int64 `toml:"max_response_bytes"` // Upstream body cap (default: 10MB)
}

// DefaultMaxResponseBytes caps an upstream response body when none is configured
const DefaultMaxResponseBytes = 10 << 20

// ChartConfig controls chart data recovery
type ChartConfig struct {
	RepairJSON bool `toml:"repair_json"` // Try jsonrepair before falling back to the placeholder chart
}

// PromptTemplates holds the text/template sources for both upstream prompts.
// Templates receive .Topic and .Question.
type PromptTemplates struct {
	Report string `toml:"report"`
	Chart  string `toml:"chart"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`  // Optional JSON log file
}

// Secrets holds sensitive credentials loaded from environment variables
type Secrets struct {
	APIKeys map[string]string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must not be negative (got %d)", c.Server.RateLimitPerMinute)
	}
	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be at least 1")
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must not be negative")
	}

	if err := validateUpstream(c.Upstream); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %s)", c.Logging.Level)
	}

	if c.PromptTemplates.Report == "" {
		return fmt.Errorf("prompt_templates.report is required")
	}
	if c.PromptTemplates.Chart == "" {
		return fmt.Errorf("prompt_templates.chart is required")
	}

	return nil
}

func validateUpstream(u UpstreamConfig) error {
	if u.Provider != ProviderResearch && u.Provider != ProviderOpenAI {
		return fmt.Errorf("upstream.provider must be one of: %s, %s (got %s)", ProviderResearch, ProviderOpenAI, u.Provider)
	}
	if u.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if u.Provider == ProviderOpenAI && u.ModelName == "" {
		return fmt.Errorf("upstream.model_name is required for provider %s", ProviderOpenAI)
	}
	if u.Temperature < 0 || u.Temperature > 2 {
		return fmt.Errorf("upstream.temperature must be between 0 and 2")
	}
	if u.MaxOutputTokens < 0 {
		return fmt.Errorf("upstream.max_output_tokens must not be negative")
	}
	if u.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must not be negative")
	}
	if u.MaxResponseBytes < 0 {
		return fmt.Errorf("upstream.max_response_bytes must not be negative")
	}
	return nil
}

// LoadSecrets loads sensitive credentials from environment variables
func LoadSecrets() *Secrets {
	secrets := &Secrets{
		APIKeys: make(map[string]string),
	}

	// Generic key, used when no provider-specific key is set
	if key := os.Getenv("API_KEY"); key != "" {
		secrets.APIKeys["generic"] = key
	}

	if key := os.Getenv("RESEARCH_API_KEY"); key != "" {
		secrets.APIKeys[ProviderResearch] = key
	} else if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		secrets.APIKeys[ProviderResearch] = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		secrets.APIKeys[ProviderOpenAI] = key
	}

	return secrets
}

// GetAPIKey returns the API key for the given provider
func (s *Secrets) GetAPIKey(provider string) string {
	if key := s.APIKeys[provider]; key != "" {
		return key
	}
	// Empty means the upstream is called without a key (e.g. a local server)
	return s.APIKeys["generic"]
}

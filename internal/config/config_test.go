package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":9000",
			MaxBodyBytes: 1024,
		},
		Upstream: UpstreamConfig{
			Provider:       ProviderResearch,
			BaseURL:        "https://research.example.com/researchAPI",
			TimeoutSeconds: 30,
		},
		PromptTemplates: PromptTemplates{
			Report: "report {{.Topic}}",
			Chart:  "chart {{.Question}}",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Server.RateLimitPerMinute = -1 },
			wantErr: true,
		},
		{
			name:    "zero body limit",
			mutate:  func(c *Config) { c.Server.MaxBodyBytes = 0 },
			wantErr: true,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Upstream.Provider = "grpc" },
			wantErr: true,
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Upstream.BaseURL = "" },
			wantErr: true,
		},
		{
			name: "openai without model",
			mutate: func(c *Config) {
				c.Upstream.Provider = ProviderOpenAI
				c.Upstream.ModelName = ""
			},
			wantErr: true,
		},
		{
			name: "openai with model",
			mutate: func(c *Config) {
				c.Upstream.Provider = ProviderOpenAI
				c.Upstream.ModelName = "gpt-4o-mini"
			},
			wantErr: false,
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Upstream.Temperature = 2.5 },
			wantErr: true,
		},
		{
			name:    "negative max response bytes",
			mutate:  func(c *Config) { c.Upstream.MaxResponseBytes = -1 },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: true,
		},
		{
			name:    "upper case log level",
			mutate:  func(c *Config) { c.Logging.Level = "DEBUG" },
			wantErr: false,
		},
		{
			name:    "missing chart template",
			mutate:  func(c *Config) { c.PromptTemplates.Chart = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[upstream]
base_url = "https://research.example.com/researchAPI"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Expected default addr :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Server.AllowedOrigin != "*" {
		t.Errorf("Expected default origin *, got %s", cfg.Server.AllowedOrigin)
	}
	if !cfg.Server.MetricsEnabled {
		t.Error("Expected metrics enabled by default")
	}
	if cfg.Server.RateLimitPerMinute != 0 {
		t.Errorf("Expected rate limiting disabled by default, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Upstream.Provider != ProviderResearch {
		t.Errorf("Expected default provider research, got %s", cfg.Upstream.Provider)
	}
	if cfg.Upstream.TimeoutSeconds != 120 {
		t.Errorf("Expected default timeout 120, got %d", cfg.Upstream.TimeoutSeconds)
	}
	if cfg.Upstream.MaxResponseBytes != DefaultMaxResponseBytes {
		t.Errorf("Expected default max response bytes %d, got %d", DefaultMaxResponseBytes, cfg.Upstream.MaxResponseBytes)
	}
	if cfg.Chart.RepairJSON {
		t.Error("Expected repair_json disabled by default")
	}
	if !strings.Contains(cfg.PromptTemplates.Chart, "{{.Topic}}") {
		t.Error("Expected default chart template")
	}
	if !strings.Contains(cfg.PromptTemplates.Report, "{{.Question}}") {
		t.Error("Expected default report template")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
addr = "127.0.0.1:8080"
rate_limit_per_minute = 30
metrics_enabled = false

[upstream]
provider = "openai"
base_url = "http://localhost:11434/v1"
model_name = "qwen2.5"

[chart]
repair_json = true

[prompt_templates]
chart = "Chart for {{.Topic}}"

[logging]
level = "debug"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Server.MetricsEnabled {
		t.Error("Expected metrics disabled")
	}
	if cfg.Server.RateLimitPerMinute != 30 {
		t.Errorf("rate_limit_per_minute = %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Upstream.Temperature != 0.7 {
		t.Errorf("Expected openai default temperature 0.7, got %.2f", cfg.Upstream.Temperature)
	}
	if cfg.Upstream.MaxOutputTokens != 4096 {
		t.Errorf("Expected openai default max tokens 4096, got %d", cfg.Upstream.MaxOutputTokens)
	}
	if !cfg.Chart.RepairJSON {
		t.Error("Expected repair_json enabled")
	}
	if cfg.PromptTemplates.Chart != "Chart for {{.Topic}}" {
		t.Errorf("chart template = %q", cfg.PromptTemplates.Chart)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid toml", "[server\naddr = "},
		{"missing base url", "[server]\naddr = \":1\""},
		{"bad scheme", "[upstream]\nbase_url = \"ftp://example.com\""},
		{"bad template", "[upstream]\nbase_url = \"https://x.example\"\n[prompt_templates]\nchart = \"{{.Topic\""},
		{"unknown template field", "[upstream]\nbase_url = \"https://x.example\"\n[prompt_templates]\nreport = \"{{.Subject}}\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[upstream]\nbase_url = \"https://research.example.com\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("TAVILY_API_KEY", "tvly-key")

	cfg, secrets, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upstream.BaseURL != "https://research.example.com" {
		t.Errorf("base_url = %s", cfg.Upstream.BaseURL)
	}
	if secrets.GetAPIKey(ProviderResearch) != "tvly-key" {
		t.Errorf("Expected research key from TAVILY_API_KEY, got %q", secrets.GetAPIKey(ProviderResearch))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("RESEARCH_API_KEY", "research-key")
	t.Setenv("TAVILY_API_KEY", "tavily-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("API_KEY", "generic-key")

	secrets := LoadSecrets()

	if secrets.APIKeys[ProviderResearch] != "research-key" {
		t.Errorf("Expected RESEARCH_API_KEY to win over TAVILY_API_KEY, got %s", secrets.APIKeys[ProviderResearch])
	}
	if secrets.APIKeys[ProviderOpenAI] != "openai-key" {
		t.Errorf("Expected OpenAI key, got %s", secrets.APIKeys[ProviderOpenAI])
	}
	if secrets.APIKeys["generic"] != "generic-key" {
		t.Errorf("Expected generic key, got %s", secrets.APIKeys["generic"])
	}
}

func TestGetAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		keys     map[string]string
		provider string
		want     string
	}{
		{
			name:     "provider key",
			keys:     map[string]string{ProviderOpenAI: "openai-key", "generic": "generic-key"},
			provider: ProviderOpenAI,
			want:     "openai-key",
		},
		{
			name:     "generic fallback",
			keys:     map[string]string{"generic": "generic-key"},
			provider: ProviderResearch,
			want:     "generic-key",
		},
		{
			name:     "no key",
			keys:     map[string]string{},
			provider: ProviderResearch,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets := &Secrets{APIKeys: tt.keys}
			if got := secrets.GetAPIKey(tt.provider); got != tt.want {
				t.Errorf("GetAPIKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, _, err := Load(filepath.Join("..", "..", "config.example.toml"))
	if err != nil {
		t.Fatalf("Load() example config error = %v", err)
	}
	if cfg.Server.RateLimitPerMinute != 30 {
		t.Errorf("Expected rate limit 30, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Upstream.Provider != ProviderResearch {
		t.Errorf("Expected research provider, got %s", cfg.Upstream.Provider)
	}
	if !strings.Contains(cfg.PromptTemplates.Chart, "chartType") {
		t.Error("Expected default chart template")
	}
}

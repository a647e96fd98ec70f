package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all relay configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`

	// Data backend (engineers/projects/prospects/prompts/actions collections)
	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:8000/api/v1"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	// Generation API
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"STIRIXI_AI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL     string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	StreamIdleTimeout time.Duration `envconfig:"STREAM_IDLE_TIMEOUT" default:"45s"`

	// Insights cache
	InsightsCacheTTL time.Duration `envconfig:"INSIGHTS_CACHE_TTL" default:"30s"`

	// HTTP surface
	AuthMode       string `envconfig:"AUTH_MODE" default:"none"`
	APIKey         string `envconfig:"API_KEY"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
}

// GenerationEnabled returns true if a generation API credential is configured.
// The relay still serves GET /ai-chat without one; generation calls fail fast.
func (c *Config) GenerationEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}

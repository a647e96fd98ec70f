// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.BackendBaseURL)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 45*time.Second, cfg.StreamIdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.InsightsCacheTTL)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.False(t, cfg.GenerationEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STIRIXI_AI_MODEL", "gemini-1.5-pro")
	t.Setenv("STREAM_IDLE_TIMEOUT", "5s")
	t.Setenv("INSIGHTS_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, 5*time.Second, cfg.StreamIdleTimeout)
	assert.Equal(t, time.Minute, cfg.InsightsCacheTTL)
	assert.True(t, cfg.GenerationEnabled())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("STREAM_IDLE_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("RELAY_HTTP_PORT", "7070")
	cfg, err := LoadWithPrefix("RELAY")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
}

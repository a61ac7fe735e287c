package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")
	t.Setenv("PG_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Search.DefaultThreshold)
	assert.Equal(t, 12, cfg.Search.DefaultLimit)
	assert.False(t, cfg.OpenAI.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Contains(t, cfg.GetPostgreSQLDSN(), "host=localhost")
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", "http://llm.local/v1/")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "20")
	t.Setenv("SEARCH_MAX_LIMIT", "40")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EMBEDDING_CACHE_TTL", "90m")
	t.Setenv("EMBEDDING_CACHE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpenAI.Enabled)
	assert.Equal(t, "http://llm.local/v1", cfg.OpenAI.APIBase)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.GetPostgreSQLDSN())
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "twelve")
	t.Setenv("SEARCH_DEFAULT_THRESHOLD", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Search.DefaultLimit)
	assert.Equal(t, 0.5, cfg.Search.DefaultThreshold)
	assert.Equal(t, []string{
		"Invalid float value for SEARCH_DEFAULT_THRESHOLD, using default 0.500000",
		"Invalid integer value for SEARCH_DEFAULT_LIMIT, using default 12",
	}, cfg.Warnings)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Search: SearchConfig{DefaultThreshold: 1.5, DefaultLimit: 12, MaxLimit: 50}}
	assert.Error(t, cfg.Validate())

	cfg.Search.DefaultThreshold = 0.5
	cfg.Search.MaxLimit = 5
	assert.Error(t, cfg.Validate())

	cfg.Search.MaxLimit = 50
	assert.NoError(t, cfg.Validate())
}

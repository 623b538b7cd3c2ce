package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with a clean viper and no credential.
func isolate(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, name := range apiKeyEnvVars {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_MissingAPIKey(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_FromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Upstream.APIKey)
}

func TestLoad_LegacyEnvironmentName(t *testing.T) {
	isolate(t)
	t.Setenv("NEXT_PUBLIC_OPENAI_API_KEY", "sk-legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.Upstream.APIKey)
}

func TestLoad_FromDotEnv(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides variables that are already set, even to ""
	for _, name := range apiKeyEnvVars {
		os.Unsetenv(name)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.Upstream.APIKey)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 8080
upstream:
  api_key: sk-file
  base_url: http://localhost:9999/v1/
  model: gpt-4o-mini
retry:
  backoff_on_error: true
`), 0600))
	viper.SetConfigFile(file)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sk-file", cfg.Upstream.APIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Upstream.Model)
	assert.True(t, cfg.Retry.BackoffOnError)

	// built-in values are not taken from the file
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	SetDefaults(cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Upstream.Model)
	assert.Equal(t, 120*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.False(t, cfg.Retry.BackoffOnError)
	assert.Equal(t, GenerationConfig{Temperature: 1, TopP: 0.95, MaxTokens: 8192}, cfg.Generation)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	SetDefaults(cfg)
	assert.ErrorIs(t, Validate(cfg), ErrMissingAPIKey)

	cfg.Upstream.APIKey = "sk-x"
	assert.NoError(t, Validate(cfg))

	cfg.Server.Port = 70000
	assert.Error(t, Validate(cfg))
}

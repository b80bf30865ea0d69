package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "competitor.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 5, cfg.Fetch.SatelliteTimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.ValidationTimeoutSecs)
	assert.Equal(t, int64(2097152), cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, "dataforseo", cfg.Search.Provider)
	assert.Equal(t, 15, cfg.Search.TimeoutSecs)
	assert.Equal(t, 5, cfg.Search.MaxQueries)
	assert.Equal(t, 50, cfg.Search.Depth)
	assert.Equal(t, 2840, cfg.Search.LocationCode)
	assert.Equal(t, "en", cfg.Search.LanguageCode)
	assert.Zero(t, cfg.Search.QPS)
	assert.Equal(t, "validated", cfg.Pipeline.Variant)
	assert.Equal(t, 15, cfg.Pipeline.MaxCandidates)
	assert.Equal(t, 7, cfg.Pipeline.MaxCompetitors)
	assert.Equal(t, 40, cfg.Pipeline.MinRelevance)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "https://api.dataforseo.com", cfg.DataForSEO.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.InDelta(t, 0.002, cfg.Pricing.DataForSEO.PerQuery, 1e-9)
	assert.Empty(t, cfg.Anthropic.Key)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/competitors
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  variant: basic
pricing:
  models:
    my-model:
      input: 1.5
      output: 2.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/competitors", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "basic", cfg.Pipeline.Variant)
	assert.InDelta(t, 1.5, cfg.Pricing.Models["my-model"].Input, 1e-9)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Search.Depth)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COMPETITOR_STORE_DRIVER", "postgres")
	t.Setenv("COMPETITOR_LOG_LEVEL", "warn")
	t.Setenv("COMPETITOR_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("COMPETITOR_DATAFORSEO_LOGIN=dotenv-login\nCOMPETITOR_SERVER_PORT=7070\n"), 0600))
	t.Cleanup(func() {
		os.Unsetenv("COMPETITOR_DATAFORSEO_LOGIN") //nolint:errcheck
		os.Unsetenv("COMPETITOR_SERVER_PORT")      //nolint:errcheck
	})
	// Real environment wins over .env.
	t.Setenv("COMPETITOR_SERVER_PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-login", cfg.DataForSEO.Login)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.AI.Provider = "anthropic"
	cfg.Search.Provider = "dataforseo"
	cfg.Search.MaxQueries = 5
	cfg.Pipeline.Variant = "validated"
	cfg.Pipeline.MaxCompetitors = 7
	cfg.Pipeline.MinRelevance = 40
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "competitor.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("discover"))
	assert.NoError(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidate_InvalidPipeline(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.Variant = "turbo"
	cfg.AI.Provider = "mistral"
	cfg.Search.Provider = "bing"
	cfg.Search.MaxQueries = 9

	err := cfg.Validate("discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.variant")
	assert.Contains(t, err.Error(), "ai.provider")
	assert.Contains(t, err.Error(), "search.provider")
	assert.Contains(t, err.Error(), "search.max_queries")

	// The runs commands only need the store.
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidate_MinRelevanceFloor(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.MinRelevance = 39
	err := cfg.Validate("discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.min_relevance must be between 40 and 100")

	cfg.Pipeline.MinRelevance = 100
	assert.NoError(t, cfg.Validate("discover"))
}

func TestValidate_Serve(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 3*time.Second, Seconds(3))
}

// Package config loads competitor-cli settings from config.yaml, a .env
// file and COMPETITOR_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. COMPETITOR_ANTHROPIC_KEY.
const EnvPrefix = "COMPETITOR"

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	DataForSEO DataForSEOConfig `yaml:"dataforseo" mapstructure:"dataforseo"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// DataForSEOConfig holds DataForSEO basic-auth credentials.
type DataForSEOConfig struct {
	Login    string `yaml:"login" mapstructure:"login"`
	Password string `yaml:"password" mapstructure:"password"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// AIConfig selects the inference provider.
type AIConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures the SERP stage.
type SearchConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxQueries   int     `yaml:"max_queries" mapstructure:"max_queries"`
	Depth        int     `yaml:"depth" mapstructure:"depth"`
	LocationCode int     `yaml:"location_code" mapstructure:"location_code"`
	LanguageCode string  `yaml:"language_code" mapstructure:"language_code"`
	Country      string  `yaml:"country" mapstructure:"country"`
	QPS          float64 `yaml:"qps" mapstructure:"qps"`
}

// FetchConfig configures page fetching.
type FetchConfig struct {
	TimeoutSecs           int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	SatelliteTimeoutSecs  int    `yaml:"satellite_timeout_secs" mapstructure:"satellite_timeout_secs"`
	ValidationTimeoutSecs int    `yaml:"validation_timeout_secs" mapstructure:"validation_timeout_secs"`
	MaxBodyBytes          int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent             string `yaml:"user_agent" mapstructure:"user_agent"`
}

// PipelineConfig configures discovery behavior.
type PipelineConfig struct {
	Variant        string `yaml:"variant" mapstructure:"variant"`
	MaxCandidates  int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxCompetitors int    `yaml:"max_competitors" mapstructure:"max_competitors"`
	MinRelevance   int    `yaml:"min_relevance" mapstructure:"min_relevance"`
	HeuristicsFile string `yaml:"heuristics_file" mapstructure:"heuristics_file"`
}

// StoreConfig configures the run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Models     map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	DataForSEO SearchPricing           `yaml:"dataforseo" mapstructure:"dataforseo"`
	Jina       SearchPricing           `yaml:"jina" mapstructure:"jina"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// SearchPricing holds per-query SERP pricing.
type SearchPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Load reads configuration from .env, file and environment, in increasing
// order of precedence over the defaults.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Credentials have empty defaults so AutomaticEnv can see them.
	for _, key := range []string{
		"anthropic.key", "openai.key", "dataforseo.login", "dataforseo.password", "jina.key",
		"pipeline.heuristics_file", "search.country", "fetch.user_agent",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.timeout_secs", 30)
	v.SetDefault("search.provider", "dataforseo")
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.max_queries", 5)
	v.SetDefault("search.depth", 50)
	v.SetDefault("search.location_code", 2840)
	v.SetDefault("search.language_code", "en")
	v.SetDefault("search.qps", 0)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.satellite_timeout_secs", 5)
	v.SetDefault("fetch.validation_timeout_secs", 3)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("pipeline.variant", "validated")
	v.SetDefault("pipeline.max_candidates", 15)
	v.SetDefault("pipeline.max_competitors", 7)
	v.SetDefault("pipeline.min_relevance", 40)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "competitor.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.dataforseo.per_query", 0.002)
	v.SetDefault("pricing.jina.per_query", 0)
}

// Validate checks the settings a command mode needs. Modes are
// "discover", "serve" and "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "discover", "serve":
		errs = append(errs, c.validatePipeline()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePipeline() []string {
	var errs []string

	switch c.Pipeline.Variant {
	case "basic", "structured", "validated":
	default:
		errs = append(errs, fmt.Sprintf("pipeline.variant must be basic, structured or validated, got %q", c.Pipeline.Variant))
	}
	switch c.AI.Provider {
	case "anthropic", "openai":
	default:
		errs = append(errs, fmt.Sprintf("ai.provider must be anthropic or openai, got %q", c.AI.Provider))
	}
	switch c.Search.Provider {
	case "dataforseo", "jina":
	default:
		errs = append(errs, fmt.Sprintf("search.provider must be dataforseo or jina, got %q", c.Search.Provider))
	}
	if c.Search.MaxQueries < 1 || c.Search.MaxQueries > 7 {
		errs = append(errs, "search.max_queries must be between 1 and 7")
	}
	if c.Pipeline.MaxCompetitors < 1 || c.Pipeline.MaxCompetitors > 7 {
		errs = append(errs, "pipeline.max_competitors must be between 1 and 7")
	}
	if c.Pipeline.MinRelevance < 40 || c.Pipeline.MinRelevance > 100 {
		errs = append(errs, "pipeline.min_relevance must be between 40 and 100")
	}
	if c.Search.QPS < 0 {
		errs = append(errs, "search.qps must be >= 0")
	}
	return errs
}

// Seconds converts a *_secs setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Package config loads contextrie settings from file, environment and
// defaults, and sets up the global logger.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Providers accepted by ModelConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Config holds the full application configuration.
type Config struct {
	OutputDir string          `yaml:"output_dir" mapstructure:"output_dir"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Assess    AssessConfig    `yaml:"assess" mapstructure:"assess"`
	Compose   ComposeConfig   `yaml:"compose" mapstructure:"compose"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama    EndpointConfig  `yaml:"ollama" mapstructure:"ollama"`
	OpenAI    EndpointConfig  `yaml:"openai" mapstructure:"openai"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ModelConfig selects the model a pipeline stage talks to.
type ModelConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// IngestConfig configures metadata generation during ingestion.
type IngestConfig struct {
	ModelConfig `yaml:",inline" mapstructure:",squash"`
	// Placeholder skips the model and writes placeholder metadata.
	Placeholder bool `yaml:"placeholder" mapstructure:"placeholder"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// AssessConfig configures relevance scoring.
type AssessConfig struct {
	ModelConfig `yaml:",inline" mapstructure:",squash"`
	Deep        bool `yaml:"deep" mapstructure:"deep"`
}

// ComposeConfig configures context composition.
type ComposeConfig struct {
	ModelConfig `yaml:",inline" mapstructure:",squash"`
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	Density     string  `yaml:"density" mapstructure:"density"`
	// Concurrency limits parallel compressions. 0 means unlimited.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EndpointConfig holds settings for an OpenAI-compatible endpoint.
type EndpointConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LLMConfig configures the resilience wrapper around every model call.
type LLMConfig struct {
	// RequestsPerSecond caps call rate per provider. 0 means unlimited.
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs       int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker           BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures retries of transient model failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PricingConfig overrides or extends the built-in model prices.
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	// Path of the database file. Empty means <output_dir>/contextrie.db;
	// "off" disables persistence.
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StorePath resolves the database file, or "" when persistence is off.
func (c *Config) StorePath() string {
	switch c.Store.Path {
	case "off":
		return ""
	case "":
		return filepath.Join(c.OutputDir, "contextrie.db")
	}
	return c.Store.Path
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("contextrie")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.contextrie")

	// Environment
	v.SetEnvPrefix("CONTEXTRIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("output_dir", ".contextrie")
	for _, stage := range []string{"ingest", "assess", "compose"} {
		v.SetDefault(stage+".provider", ProviderOllama)
		v.SetDefault(stage+".model", "llama3.2")
		v.SetDefault(stage+".max_tokens", 2048)
		v.SetDefault(stage+".temperature", 0.0)
	}
	v.SetDefault("ingest.placeholder", false)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("assess.deep", false)
	v.SetDefault("compose.threshold", 0.65)
	v.SetDefault("compose.density", "thorough")
	v.SetDefault("compose.concurrency", 0)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("ollama.key", "")
	v.SetDefault("ollama.base_url", "http://localhost:11434/v1")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.requests_per_second", 0.0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.retry.max_attempts", 3)
	v.SetDefault("llm.retry.initial_backoff_ms", 500)
	v.SetDefault("llm.retry.max_backoff_ms", 30000)
	v.SetDefault("llm.retry.multiplier", 2.0)
	v.SetDefault("llm.retry.jitter_fraction", 0.25)
	v.SetDefault("llm.breaker.failure_threshold", 5)
	v.SetDefault("llm.breaker.reset_timeout_secs", 30)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the values the pipeline depends on.
func (c *Config) Validate() error {
	var problems []string

	stages := map[string]ModelConfig{
		"ingest":  c.Ingest.ModelConfig,
		"assess":  c.Assess.ModelConfig,
		"compose": c.Compose.ModelConfig,
	}
	for _, name := range []string{"ingest", "assess", "compose"} {
		m := stages[name]
		switch m.Provider {
		case ProviderAnthropic:
			if c.Anthropic.Key == "" {
				problems = append(problems, name+": anthropic.key is required")
			}
		case ProviderOpenAI:
			if c.OpenAI.Key == "" {
				problems = append(problems, name+": openai.key is required")
			}
		case ProviderOllama:
		default:
			problems = append(problems, name+": unknown provider "+m.Provider)
		}
		if m.Model == "" {
			problems = append(problems, name+": model is required")
		}
	}

	if c.Compose.Threshold < 0 || c.Compose.Threshold > 1 {
		problems = append(problems, "compose.threshold must be within [0, 1]")
	}
	if c.Compose.Concurrency < 0 || c.Ingest.Concurrency < 0 {
		problems = append(problems, "concurrency must not be negative")
	}
	if c.LLM.RequestsPerSecond < 0 {
		problems = append(problems, "llm.requests_per_second must not be negative")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
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

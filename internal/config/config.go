package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI      OpenAIConfig      `yaml:"openai" mapstructure:"openai"`
	Miner       MinerConfig       `yaml:"miner" mapstructure:"miner"`
	Evaluator   EvaluatorConfig   `yaml:"evaluator" mapstructure:"evaluator"`
	Consistency ConsistencyConfig `yaml:"consistency" mapstructure:"consistency"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// OpenAIConfig holds OpenAI embedding API settings.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// MinerConfig configures per-segment claim extraction.
type MinerConfig struct {
	Sensitivity        string  `yaml:"sensitivity" mapstructure:"sensitivity"`
	MaxTokens          int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// EvaluatorConfig configures whole-episode claim evaluation.
type EvaluatorConfig struct {
	MaxTokens          int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MergeThreshold     float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"`
}

// ConsistencyConfig configures channel-history classification.
type ConsistencyConfig struct {
	DuplicateThreshold float64 `yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"`
	EvolutionThreshold float64 `yaml:"evolution_threshold" mapstructure:"evolution_threshold"`
	ClaimLimit         int     `yaml:"claim_limit" mapstructure:"claim_limit"`
	JargonLimit        int     `yaml:"jargon_limit" mapstructure:"jargon_limit"`
	FetchTimeoutSecs   int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	Workers              int    `yaml:"workers" mapstructure:"workers"`
	MemoryBudgetMB       int    `yaml:"memory_budget_mb" mapstructure:"memory_budget_mb"`
	EnableSynopsis       bool   `yaml:"enable_synopsis" mapstructure:"enable_synopsis"`
	EnableCategorization bool   `yaml:"enable_categorization" mapstructure:"enable_categorization"`
	TaxonomyPath         string `yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHRONICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "chronicle.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("miner.sensitivity", "balanced")
	v.SetDefault("miner.max_tokens", 4096)
	v.SetDefault("miner.requests_per_second", 2.0)
	v.SetDefault("miner.request_timeout_secs", 120)
	v.SetDefault("evaluator.max_tokens", 8192)
	v.SetDefault("evaluator.request_timeout_secs", 300)
	v.SetDefault("evaluator.merge_threshold", 0.8)
	v.SetDefault("consistency.duplicate_threshold", 0.95)
	v.SetDefault("consistency.evolution_threshold", 0.85)
	v.SetDefault("consistency.claim_limit", 50)
	v.SetDefault("consistency.jargon_limit", 100)
	v.SetDefault("consistency.fetch_timeout_secs", 10)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.enable_synopsis", true)
	v.SetDefault("pipeline.enable_categorization", false)
	v.SetDefault("pipeline.taxonomy_path", "taxonomy.yaml")

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

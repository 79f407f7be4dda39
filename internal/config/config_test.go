package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "chronicle.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.SonnetModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "balanced", cfg.Miner.Sensitivity)
	assert.Equal(t, int64(4096), cfg.Miner.MaxTokens)
	assert.InDelta(t, 2.0, cfg.Miner.RequestsPerSecond, 0.001)
	assert.Equal(t, int64(8192), cfg.Evaluator.MaxTokens)
	assert.InDelta(t, 0.8, cfg.Evaluator.MergeThreshold, 0.001)
	assert.InDelta(t, 0.95, cfg.Consistency.DuplicateThreshold, 0.001)
	assert.InDelta(t, 0.85, cfg.Consistency.EvolutionThreshold, 0.001)
	assert.Equal(t, 50, cfg.Consistency.ClaimLimit)
	assert.Equal(t, 100, cfg.Consistency.JargonLimit)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.EnableSynopsis)
	assert.False(t, cfg.Pipeline.EnableCategorization)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/chronicle
log:
  level: debug
  format: console
pipeline:
  workers: 8
  enable_categorization: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/chronicle", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.EnableCategorization)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "balanced", cfg.Miner.Sensitivity)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CHRONICLE_STORE_DRIVER", "postgres")
	t.Setenv("CHRONICLE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CHRONICLE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "chronicle.db"
	cfg.Miner.Sensitivity = "balanced"
	cfg.Evaluator.MergeThreshold = 0.8
	cfg.Consistency.DuplicateThreshold = 0.95
	cfg.Consistency.EvolutionThreshold = 0.85
	cfg.Pipeline.Workers = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateProcess_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateProcess_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateProcess_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/chronicle"
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateProcess_ThresholdOrdering(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Consistency.DuplicateThreshold = 0.80

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_threshold")
}

func TestValidateProcess_WorkerBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	cfg.Pipeline.Workers = 0
	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.workers must be between 1 and 64")

	cfg.Pipeline.Workers = 65
	err = cfg.Validate("process")
	assert.Error(t, err)

	cfg.Pipeline.Workers = 64
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateProcess_Sensitivity(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Miner.Sensitivity = "aggressive"

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "miner.sensitivity")
}

func TestValidateProcess_CategorizationNeedsTaxonomy(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Pipeline.EnableCategorization = true

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "taxonomy_path")

	cfg.Pipeline.TaxonomyPath = "taxonomy.yaml"
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

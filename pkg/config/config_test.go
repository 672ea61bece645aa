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

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		// an explicit missing file is an error, the search path is not
		t.Fatalf("expected error for explicit missing config file, got %+v", cfg)
	}

	cfg, err = LoadFrom(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "genbi_manufacturing", cfg.Mongo.Database)
	assert.Equal(t, "production_data", cfg.Mongo.ProductionCollection)
	assert.Equal(t, "quality_metrics", cfg.Mongo.QualityCollection)
	assert.Equal(t, "equipment_downtime", cfg.Mongo.DowntimeCollection)
	assert.Equal(t, "llama-3-8b-instruct", cfg.LLM.Model)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 20, cfg.Query.MaxStages)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  port: 9090
llm:
  model: qwen2.5-7b-instruct
  timeoutSec: 5
query:
  maxStages: 8
  allowedOperators: ["$match", "$group"]
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))
	t.Setenv("GENBI_MONGO_DATABASE", "factory_test")

	cfg, err := LoadFrom(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "qwen2.5-7b-instruct", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 8, cfg.Query.MaxStages)
	assert.Equal(t, []string{"$match", "$group"}, cfg.Query.AllowedOperators)
	assert.Equal(t, "factory_test", cfg.Mongo.Database)
}

func TestValidate(t *testing.T) {
	cfg := Config{Mongo: MongoConfig{URI: "mongodb://x"}, LLM: LLMConfig{TimeoutSec: 30}}
	assert.NoError(t, cfg.Validate())

	cfg.LLM.TimeoutSec = 0
	assert.Error(t, cfg.Validate())

	cfg = Config{LLM: LLMConfig{TimeoutSec: 30}}
	assert.Error(t, cfg.Validate())
}

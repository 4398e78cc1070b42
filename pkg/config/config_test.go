package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "embeddings", cfg.Store.DataDir)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedding.Model)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
store:
  dataDir: /var/lib/wordvec
embedding:
  batchSize: 16
  timeout: 5s
redis:
  enabled: true
  cacheTTL: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("WV_INGEST_LIMIT", "42")
	t.Setenv("WV_KAFKA_ENABLED", "true")
	t.Setenv("WV_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/wordvec", cfg.Store.DataDir)
	assert.Equal(t, 16, cfg.Embedding.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 42, cfg.Ingest.Limit)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  batchSize: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchSize")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "embeddings", cfg.Store.DataDir)
	assert.Equal(t, 5, cfg.Embedding.Retry.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, "embedding-events", cfg.Kafka.Topic)
}

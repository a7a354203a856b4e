package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.MCP.CacheBackend)
	assert.Equal(t, 300, cfg.MCP.CacheTTLSeconds)
	assert.Equal(t, 5, cfg.MCP.ProviderTimeoutSeconds)
	assert.Equal(t, 2000, cfg.MCP.MaxContextTokens)
	assert.Equal(t, 3600, cfg.MCP.KnowledgeCacheTTLSeconds)
	assert.Equal(t, 4, cfg.MCP.IngestionWorkers)
	assert.Equal(t, "medical_knowledge", cfg.Typesense.Collection)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("MCP_CACHE_BACKEND", "redis")
	t.Setenv("MCP_PROVIDER_TIMEOUT_SECONDS", "2")
	t.Setenv("MCP_INGESTION_WORKERS", "8")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "redis", cfg.MCP.CacheBackend)
	assert.Equal(t, 2, cfg.MCP.ProviderTimeoutSeconds)
	assert.Equal(t, 8, cfg.MCP.IngestionWorkers)
	assert.True(t, cfg.OTEL.Enabled)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestDatabaseDSN(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "aura_chat",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=aura_chat sslmode=disable",
		dbCfg.DatabaseDSN(),
	)
}

func TestRedisAddr(t *testing.T) {
	redisCfg := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", redisCfg.RedisAddr())
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	MCP       MCPConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// MCPConfig tunes the context aggregation server and its providers.
type MCPConfig struct {
	// CacheBackend selects the aggregated-context cache: "memory" or "redis".
	CacheBackend             string
	CacheTTLSeconds          int
	ProviderTimeoutSeconds   int
	MaxContextTokens         int
	KnowledgeCacheTTLSeconds int
	// RulesPath optionally overrides the built-in classification ruleset
	// with a JSON file; AccuracyStatsPath points at the measured-accuracy
	// CSV. Both may be empty.
	RulesPath         string
	AccuracyStatsPath string
	IngestionWorkers  int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "aura_chat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_KNOWLEDGE_COLLECTION", "medical_knowledge"),
		},
		MCP: MCPConfig{
			CacheBackend:             getEnv("MCP_CACHE_BACKEND", "memory"),
			CacheTTLSeconds:          getEnvAsInt("MCP_CACHE_TTL_SECONDS", 300),
			ProviderTimeoutSeconds:   getEnvAsInt("MCP_PROVIDER_TIMEOUT_SECONDS", 5),
			MaxContextTokens:         getEnvAsInt("MCP_MAX_CONTEXT_TOKENS", 2000),
			KnowledgeCacheTTLSeconds: getEnvAsInt("MCP_KNOWLEDGE_CACHE_TTL_SECONDS", 3600),
			RulesPath:                getEnv("MCP_CLASSIFICATION_RULES_PATH", ""),
			AccuracyStatsPath:        getEnv("MCP_ACCURACY_STATS_PATH", ""),
			IngestionWorkers:         getEnvAsInt("MCP_INGESTION_WORKERS", 4),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "aura-chat-context"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

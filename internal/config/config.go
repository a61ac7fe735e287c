package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Search     SearchConfig
	Ranking    RankingConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Cache      CacheConfig

	// Warnings lists environment values that were ignored in favour of defaults
	Warnings []string
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, wins over the discrete fields
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SearchConfig holds vector search defaults
type SearchConfig struct {
	DefaultThreshold float64
	DefaultLimit     int
	MaxLimit         int
	RequestTimeout   time.Duration
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightSimilarity float64
	WeightRating     float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds configuration for the OpenAI-compatible chat and embedding APIs
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // model used for query understanding
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTaskType   string // e.g. RETRIEVAL_QUERY; omitted when empty
	EmbeddingExtraBody  string
	Timeout             int // seconds
	Enabled             bool
}

// CacheConfig holds embedding cache configuration
type CacheConfig struct {
	Enabled       bool
	LRUSize       int
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	l := &envLoader{}
	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("SUPABASE_DB_URL", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               l.getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "postgres"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     l.getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: l.getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           l.getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Search: SearchConfig{
			DefaultThreshold: l.getEnvAsFloat("SEARCH_DEFAULT_THRESHOLD", 0.5),
			DefaultLimit:     l.getEnvAsInt("SEARCH_DEFAULT_LIMIT", 12),
			MaxLimit:         l.getEnvAsInt("SEARCH_MAX_LIMIT", 50),
			RequestTimeout:   l.getEnvAsDuration("SEARCH_REQUEST_TIMEOUT", 45*time.Second),
		},
		Ranking: RankingConfig{
			WeightSimilarity: l.getEnvAsFloat("RANK_WEIGHT_SIMILARITY", 1.0),
			WeightRating:     l.getEnvAsFloat("RANK_WEIGHT_RATING", 0.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     l.getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:            l.getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       l.getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: l.getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 0),
			EmbeddingTaskType:   getEnv("OPENAI_EMBEDDING_TASK_TYPE", ""),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			Timeout:             l.getEnvAsInt("OPENAI_TIMEOUT", 20),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Cache: CacheConfig{
			Enabled:       l.getEnvAsBool("EMBEDDING_CACHE_ENABLED", true),
			LRUSize:       l.getEnvAsInt("EMBEDDING_CACHE_SIZE", 2048),
			RedisAddress:  getEnv("REDIS_ADDRESS", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       l.getEnvAsInt("REDIS_DB", 0),
			TTL:           l.getEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),
		},
	}

	cfg.Warnings = l.warnings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise surface as confusing runtime failures
func (c *Config) Validate() error {
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("SEARCH_DEFAULT_THRESHOLD must be between 0 and 1, got %v", c.Search.DefaultThreshold)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) must be >= SEARCH_DEFAULT_LIMIT (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

// envLoader reads typed values and records the ones it could not parse
type envLoader struct {
	warnings []string
}

func (l *envLoader) warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (l *envLoader) getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		l.warnf("Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func (l *envLoader) getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		l.warnf("Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func (l *envLoader) getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		l.warnf("Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func (l *envLoader) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		l.warnf("Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key, defaultValue string) []string {
	parts := strings.Split(getEnv(key, defaultValue), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

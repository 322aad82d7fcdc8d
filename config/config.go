package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Store          StoreConfig
	Cache          CacheConfig
	RateLimit      RateLimitConfig
	Recommendation RecommendationConfig
	Explanation    ExplanationConfig
	Logging        LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig holds the catalog database configuration
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	SeedPath    string `mapstructure:"seed_path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// RecommendationConfig tunes the recommendation engine
type RecommendationConfig struct {
	DefaultLimit          int    `mapstructure:"default_limit"`
	MaxLimit              int    `mapstructure:"max_limit"`
	MaxConcurrency        int    `mapstructure:"max_concurrency"`
	CatalogPageSize       int    `mapstructure:"catalog_page_size"`
	RulesPath             string `mapstructure:"rules_path"`
	FuzzyAllergenMatching bool   `mapstructure:"fuzzy_allergen_matching"`
}

// ExplanationConfig holds the generative backend configuration
type ExplanationConfig struct {
	Provider          string        `mapstructure:"provider"` // "none", "openai" or "ollama"
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float32       `mapstructure:"temperature"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// Enabled reports whether a generative backend is configured
func (c ExplanationConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
	Output string `mapstructure:"output"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/personashop/")

	// Environment variable settings
	v.SetEnvPrefix("PERSONASHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports the variables of ./.env that are not already set
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("error setting %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "personashop.db")
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("store.seed_path", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h") // 7 days

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Recommendation defaults
	v.SetDefault("recommendation.default_limit", 10)
	v.SetDefault("recommendation.max_limit", 50)
	v.SetDefault("recommendation.max_concurrency", 4)
	v.SetDefault("recommendation.catalog_page_size", 500)
	v.SetDefault("recommendation.rules_path", "")
	v.SetDefault("recommendation.fuzzy_allergen_matching", false)

	// Explanation defaults
	v.SetDefault("explanation.provider", "none")
	v.SetDefault("explanation.api_key", "")
	v.SetDefault("explanation.base_url", "")
	v.SetDefault("explanation.model", "")
	v.SetDefault("explanation.timeout", "4s")
	v.SetDefault("explanation.max_tokens", 500)
	v.SetDefault("explanation.temperature", 0.7)
	v.SetDefault("explanation.requests_per_second", 2)
	v.SetDefault("explanation.burst", 4)
	v.SetDefault("explanation.max_retries", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres', got: %s", config.Store.Driver)
	}
	if config.Store.DSN == "" {
		return fmt.Errorf("store DSN is required (set PERSONASHOP_STORE_DSN)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.Explanation.Provider {
	case "", "none", "ollama":
	case "openai":
		if config.Explanation.APIKey == "" {
			return fmt.Errorf("OpenAI API key is required (set PERSONASHOP_EXPLANATION_API_KEY)")
		}
	default:
		return fmt.Errorf("explanation provider must be 'none', 'openai' or 'ollama', got: %s", config.Explanation.Provider)
	}

	rec := config.Recommendation
	if rec.DefaultLimit < 0 {
		return fmt.Errorf("recommendation default limit must not be negative")
	}
	if rec.MaxLimit < rec.DefaultLimit {
		return fmt.Errorf("recommendation max limit (%d) must be at least the default limit (%d)", rec.MaxLimit, rec.DefaultLimit)
	}
	if rec.MaxConcurrency <= 0 {
		return fmt.Errorf("recommendation max concurrency must be positive, got: %d", rec.MaxConcurrency)
	}

	return nil
}

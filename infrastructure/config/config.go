package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store types
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// RateLimitConfig holds per-client request limits. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	IsLambda      bool   `yaml:"is_lambda"`

	// Persistence
	StoreType     string `yaml:"store_type"`
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	EventBusName  string `yaml:"event_bus_name"`

	// Catalog of known movies
	CatalogPath string `yaml:"catalog_path"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// DynamicConfigPath is watched for runtime changes such as the log level
	DynamicConfigPath string `yaml:"dynamic_config_path"`

	// Event handling
	HandlerTimeout time.Duration `yaml:"handler_timeout"`

	// Authentication
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`

	// HTTP
	CORSAllowedOrigins []string        `yaml:"cors_allowed_origins"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`

	EnableMetrics bool          `yaml:"enable_metrics"`
	Tracing       TracingConfig `yaml:"tracing"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		StoreType:          StoreMemory,
		AWSRegion:          "us-west-2",
		DynamoDBTable:      "watchlist",
		EventBusName:       "watchlist-events",
		LogLevel:           "info",
		HandlerTimeout:     5 * time.Second,
		RefreshTokenTTL:    30 * 24 * time.Hour,
		CORSAllowedOrigins: []string{"*"},
		RateLimit:          RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		EnableMetrics:      true,
		Tracing:            TracingConfig{SampleRate: 1.0},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE if set, then environment variables, and validates the result
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the values present in a YAML file
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")

	c.StoreType = strings.ToLower(getEnv("STORE_TYPE", c.StoreType))
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DynamicConfigPath = getEnv("DYNAMIC_CONFIG_PATH", c.DynamicConfigPath)

	c.HandlerTimeout = getEnvDuration("HANDLER_TIMEOUT", c.HandlerTimeout)
	c.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", c.RefreshTokenTTL)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = strings.Split(origins, ",")
	}
	c.RateLimit.RequestsPerSecond = getEnvFloat("RATE_LIMIT_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.SampleRate = getEnvFloat("TRACE_SAMPLE_RATE", c.Tracing.SampleRate)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreMemory:
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.StoreType)
	}

	if c.HandlerTimeout < 0 {
		return fmt.Errorf("HANDLER_TIMEOUT must not be negative")
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.StoreType != StoreDynamoDB {
			return fmt.Errorf("production requires the dynamodb store")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

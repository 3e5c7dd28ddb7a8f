package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Business BusinessConfig `mapstructure:"business"`
	Auditor  AuditorConfig  `mapstructure:"auditor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            string `mapstructure:"SERVER_PORT"`
	Host            string `mapstructure:"SERVER_HOST"`
	Env             string `mapstructure:"ENV"`
	ReadTimeout     string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout    string `mapstructure:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout string `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Backend string `mapstructure:"STORAGE_BACKEND"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DATABASE_HOST"`
	Port     string `mapstructure:"DATABASE_PORT"`
	Name     string `mapstructure:"DATABASE_NAME"`
	User     string `mapstructure:"DATABASE_USER"`
	Password string `mapstructure:"DATABASE_PASSWORD"`
	SSLMode  string `mapstructure:"DATABASE_SSLMODE"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type BusinessConfig struct {
	RebalanceStep       string `mapstructure:"REBALANCE_STEP"`
	ConservationEpsilon string `mapstructure:"CONSERVATION_EPSILON"`
	SeedDemoData        bool   `mapstructure:"SEED_DEMO_DATA"`
}

type AuditorConfig struct {
	Schedule string `mapstructure:"AUDITOR_SCHEDULE"`
	Timezone string `mapstructure:"AUDITOR_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("STORAGE_BACKEND", BackendMemory)
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "prestamos")
	viper.SetDefault("DATABASE_USER", "prestamos")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REBALANCE_STEP", "0.01")
	viper.SetDefault("CONSERVATION_EPSILON", "0.01")
	viper.SetDefault("SEED_DEMO_DATA", true)
	viper.SetDefault("AUDITOR_SCHEDULE", "0 0 3 * * *")
	viper.SetDefault("AUDITOR_TIMEZONE", "America/Bogota")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, postgres")
	}

	step, err := decimal.NewFromString(c.Business.RebalanceStep)
	if err != nil {
		return fmt.Errorf("REBALANCE_STEP must be a valid decimal: %w", err)
	}
	if !step.IsPositive() {
		return fmt.Errorf("REBALANCE_STEP must be greater than 0")
	}

	eps, err := decimal.NewFromString(c.Business.ConservationEpsilon)
	if err != nil {
		return fmt.Errorf("CONSERVATION_EPSILON must be a valid decimal: %w", err)
	}
	if eps.IsNegative() {
		return fmt.Errorf("CONSERVATION_EPSILON must not be negative")
	}

	for _, d := range []string{c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.ShutdownTimeout} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("server timeouts must be valid durations: %w", err)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// DSN returns the Postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode,
	)
}

// GetRebalanceStep returns the per-invocation rebalance step as a fraction
// of the loan total
func (c *Config) GetRebalanceStep() decimal.Decimal {
	step, _ := decimal.NewFromString(c.Business.RebalanceStep)
	return step
}

// GetConservationEpsilon returns the tolerated drift between the installment
// sum and the loan total
func (c *Config) GetConservationEpsilon() decimal.Decimal {
	eps, _ := decimal.NewFromString(c.Business.ConservationEpsilon)
	return eps
}

// GetReadTimeout returns the server read timeout as a duration
func (c *Config) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ReadTimeout)
	return d
}

// GetWriteTimeout returns the server write timeout as a duration
func (c *Config) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.WriteTimeout)
	return d
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration
func (c *Config) GetShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Storage   StorageConfig   `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host            string `mapstructure:"REDIS_HOST"`
	Port            string `mapstructure:"REDIS_PORT"`
	Password        string `mapstructure:"REDIS_PASSWORD"`
	DB              int    `mapstructure:"REDIS_DB"`
	NotificationKey string `mapstructure:"REDIS_NOTIFICATION_KEY"`
}

type SchedulerConfig struct {
	DueReminderSpec    string `mapstructure:"SCHEDULER_DUE_REMINDER_SPEC"`
	FineReminderSpec   string `mapstructure:"SCHEDULER_FINE_REMINDER_SPEC"`
	Timezone           string `mapstructure:"SCHEDULER_TIMEZONE"`
	ReminderWindowDays int    `mapstructure:"REMINDER_WINDOW_DAYS"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	BorrowLimit   int    `mapstructure:"BORROW_LIMIT"`
	LoanDays      int    `mapstructure:"LOAN_DAYS"`
	ExtensionDays int    `mapstructure:"EXTENSION_DAYS"`
	MaxExtensions int    `mapstructure:"MAX_EXTENSIONS"` // 0 means unlimited
	FinePerDay    string `mapstructure:"FINE_PER_DAY"`
}

type StorageConfig struct {
	Driver string `mapstructure:"STORAGE_DRIVER"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"SERVER_PORT":                  "8080",
		"SERVER_HOST":                  "0.0.0.0",
		"ENV":                          "development",
		"SERVER_READ_TIMEOUT":          "15s",
		"SERVER_WRITE_TIMEOUT":         "15s",
		"DATABASE_URL":                 "",
		"DATABASE_HOST":                "localhost",
		"DATABASE_PORT":                "5432",
		"DATABASE_NAME":                "library_lending",
		"DATABASE_USER":                "postgres",
		"DATABASE_PASSWORD":            "",
		"DATABASE_SSLMODE":             "disable",
		"DATABASE_MAX_OPEN_CONNS":      25,
		"DATABASE_MAX_IDLE_CONNS":      5,
		"DATABASE_CONN_MAX_LIFETIME":   "5m",
		"REDIS_HOST":                   "localhost",
		"REDIS_PORT":                   "6379",
		"REDIS_PASSWORD":               "",
		"REDIS_DB":                     0,
		"REDIS_NOTIFICATION_KEY":       "lending:notifications",
		"SCHEDULER_DUE_REMINDER_SPEC":  "0 0 8 * * *",
		"SCHEDULER_FINE_REMINDER_SPEC": "0 0 9 * * *",
		"SCHEDULER_TIMEZONE":           "UTC",
		"REMINDER_WINDOW_DAYS":         2,
		"LOG_LEVEL":                    "info",
		"LOG_FORMAT":                   "json",
		"BORROW_LIMIT":                 3,
		"LOAN_DAYS":                    14,
		"EXTENSION_DAYS":               7,
		"MAX_EXTENSIONS":               0,
		"FINE_PER_DAY":                 "5",
		"STORAGE_DRIVER":               StorageDriverPostgres,
		"RATE_LIMIT_PER_MINUTE":        120,
		"HEALTH_CHECK_TIMEOUT":         "5s",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}

	if c.Business.BorrowLimit <= 0 {
		return fmt.Errorf("BORROW_LIMIT must be greater than 0")
	}

	if c.Business.LoanDays <= 0 {
		return fmt.Errorf("LOAN_DAYS must be greater than 0")
	}

	if c.Business.ExtensionDays <= 0 {
		return fmt.Errorf("EXTENSION_DAYS must be greater than 0")
	}

	if c.Business.MaxExtensions < 0 {
		return fmt.Errorf("MAX_EXTENSIONS must not be negative")
	}

	fine, err := decimal.NewFromString(c.Business.FinePerDay)
	if err != nil {
		return fmt.Errorf("FINE_PER_DAY must be a valid decimal: %w", err)
	}
	if fine.IsNegative() {
		return fmt.Errorf("FINE_PER_DAY must not be negative")
	}

	if c.Scheduler.ReminderWindowDays <= 0 {
		return fmt.Errorf("REMINDER_WINDOW_DAYS must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
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

// DSN returns the postgres connection string, preferring DATABASE_URL when set
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Addr returns the redis address
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// GetFinePerDay returns the fine charged per whole day late
func (c *Config) GetFinePerDay() decimal.Decimal {
	fine, _ := decimal.NewFromString(c.Business.FinePerDay)
	return fine
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetSchedulerLocation returns the location cron specs are evaluated in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

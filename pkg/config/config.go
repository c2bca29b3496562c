package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Scheduling policy configuration
	Scheduling SchedulingConfig `mapstructure:"scheduling"`

	// Schedule cleanup configuration
	Cleanup CleanupConfig `mapstructure:"cleanup"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// SchedulingConfig holds booking policy knobs shared by all callers
type SchedulingConfig struct {
	SlotMinutes              int `mapstructure:"slot_minutes"`
	ReminderLookaheadMinutes int `mapstructure:"reminder_lookahead_minutes"`
	ReminderSweepIntervalMin int `mapstructure:"reminder_sweep_interval_min"`
}

// SlotLength returns the slot length as a duration
func (c SchedulingConfig) SlotLength() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

// ReminderLookahead returns the reminder lookahead as a duration
func (c SchedulingConfig) ReminderLookahead() time.Duration {
	return time.Duration(c.ReminderLookaheadMinutes) * time.Minute
}

// ReminderSweepInterval returns how often the background reminder sweep runs
func (c SchedulingConfig) ReminderSweepInterval() time.Duration {
	return time.Duration(c.ReminderSweepIntervalMin) * time.Minute
}

// CleanupConfig holds the stale schedule purge policy.
// The automatic purge fires only on Weekday between StartHour (inclusive)
// and EndHour (exclusive), at most once per calendar day.
type CleanupConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	Weekday          int  `mapstructure:"weekday"`
	StartHour        int  `mapstructure:"start_hour"`
	EndHour          int  `mapstructure:"end_hour"`
	CheckIntervalMin int  `mapstructure:"check_interval_min"`
}

// CheckInterval returns the runner tick interval as a duration
func (c CleanupConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMin) * time.Minute
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl"`
	Issuer         string `mapstructure:"issuer"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/registry")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "registry")
	viper.SetDefault("database.user", "registry")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Scheduling defaults: 30-minute visit slots, one-hour reminder horizon
	viper.SetDefault("scheduling.slot_minutes", 30)
	viper.SetDefault("scheduling.reminder_lookahead_minutes", 60)
	viper.SetDefault("scheduling.reminder_sweep_interval_min", 5)

	// Cleanup defaults: Sunday between 00:00 and 06:00, hourly check
	viper.SetDefault("cleanup.enabled", true)
	viper.SetDefault("cleanup.weekday", int(time.Sunday))
	viper.SetDefault("cleanup.start_hour", 0)
	viper.SetDefault("cleanup.end_hour", 6)
	viper.SetDefault("cleanup.check_interval_min", 60)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "clinic-registry")

	// Rate limiting defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_min", 100)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Scheduling.SlotMinutes <= 0 {
		return fmt.Errorf("invalid slot length: %d minutes", config.Scheduling.SlotMinutes)
	}

	if config.Scheduling.ReminderLookaheadMinutes <= 0 {
		return fmt.Errorf("invalid reminder lookahead: %d minutes", config.Scheduling.ReminderLookaheadMinutes)
	}

	if config.Scheduling.ReminderSweepIntervalMin <= 0 {
		return fmt.Errorf("invalid reminder sweep interval: %d minutes", config.Scheduling.ReminderSweepIntervalMin)
	}

	if config.Cleanup.Weekday < 0 || config.Cleanup.Weekday > 6 {
		return fmt.Errorf("invalid cleanup weekday: %d", config.Cleanup.Weekday)
	}

	if config.Cleanup.StartHour < 0 || config.Cleanup.EndHour > 24 || config.Cleanup.StartHour >= config.Cleanup.EndHour {
		return fmt.Errorf("invalid cleanup hour window: %d-%d", config.Cleanup.StartHour, config.Cleanup.EndHour)
	}

	if config.Cleanup.CheckIntervalMin <= 0 {
		return fmt.Errorf("invalid cleanup check interval: %d minutes", config.Cleanup.CheckIntervalMin)
	}

	return nil
}

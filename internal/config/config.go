// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Monitor  MonitorConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// FeedConfig contains upstream live-feed configuration.
type FeedConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// MonitorConfig contains polling and change-detection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MonitorConfig struct {
	ActiveInterval   time.Duration
	IdleInterval     time.Duration
	NoiseThreshold   time.Duration
	StopAfterFinal   time.Duration
	RefreshLockGrace time.Duration
	ScheduleCron     string
}

// RedisConfig contains the optional live-score cache configuration.
// An empty URL disables the cache.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains the optional edit-alert broker configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
	Enabled    bool
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "pbp_monitor")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Feed
	viper.SetDefault("feed.baseurl", "https://cdn.nba.com/static/json/liveData")
	viper.SetDefault("feed.useragent", "pbp-edit-monitor/1.0")
	viper.SetDefault("feed.timeout", 15*time.Second)

	// Monitor
	viper.SetDefault("monitor.activeinterval", 30*time.Second)
	viper.SetDefault("monitor.idleinterval", 5*time.Minute)
	viper.SetDefault("monitor.noisethreshold", 20*time.Second)
	viper.SetDefault("monitor.stopafterfinal", 20*time.Minute)
	viper.SetDefault("monitor.refreshlockgrace", 10*time.Minute)
	viper.SetDefault("monitor.schedulecron", "0 9 * * *")

	// Redis (empty URL disables the live-score mirror)
	viper.SetDefault("redis.url", "")

	// RabbitMQ (disabled unless explicitly enabled)
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "pbp.edits")
	viper.SetDefault("rabbitmq.queue", "pbp.edits.review")
	viper.SetDefault("rabbitmq.routingkey", "edit.detected")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

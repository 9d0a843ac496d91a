package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Transfer  TransferConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SessionConfig holds shell session lifecycle configuration.
type SessionConfig struct {
	Shell          string        `envconfig:"SESSION_SHELL" default:"/bin/bash"`
	DefaultTimeout time.Duration `envconfig:"SESSION_DEFAULT_TIMEOUT" default:"30s"`
	KillGrace      time.Duration `envconfig:"SESSION_KILL_GRACE" default:"2s"`
	IdleThreshold  time.Duration `envconfig:"SESSION_IDLE_THRESHOLD" default:"1h"`
	ReapInterval   time.Duration `envconfig:"SESSION_REAP_INTERVAL" default:"5m"`
}

// TransferConfig holds file transfer configuration.
type TransferConfig struct {
	MaxDownloadBytes int64 `envconfig:"TRANSFER_MAX_DOWNLOAD_BYTES" default:"10485760"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Session: SessionConfig{
			Shell:          "/bin/bash",
			DefaultTimeout: 30 * time.Second,
			KillGrace:      2 * time.Second,
			IdleThreshold:  time.Hour,
			ReapInterval:   5 * time.Minute,
		},
		Transfer: TransferConfig{
			MaxDownloadBytes: 10 * 1024 * 1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

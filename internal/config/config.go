// Package config provides transport configuration loaded from environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds extension-dispatch transport configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"extension-dispatch"`

	// SubjectPrefix overrides the invocation subject prefix (empty = "rpc").
	SubjectPrefix string `envconfig:"DISPATCH_SUBJECT_PREFIX"`

	// Timeouts
	ConnectTimeout time.Duration `envconfig:"COMMS_CONNECT_TIMEOUT" default:"10s"`
	RequestTimeout time.Duration `envconfig:"DISPATCH_REQUEST_TIMEOUT" default:"25s"`
	HTTPTimeout    time.Duration `envconfig:"DISPATCH_HTTP_TIMEOUT" default:"30s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required", logPrefix)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s - COMMS_CONNECT_TIMEOUT must be positive", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - DISPATCH_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s - DISPATCH_HTTP_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

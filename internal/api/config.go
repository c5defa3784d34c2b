// Package api serves the dashcam glare analysis HTTP API.
package api

import (
	"fmt"
	"net"
	"strconv"
	"time"

	gbytes "github.com/labstack/gommon/bytes"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/imageio"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "16M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // empty for all interfaces
	Port int

	AllowedOrigins []string
	AllowedHeaders []string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit     string  // maximum request body size, e.g. "16M"
	MaxPixels     int     // maximum decoded image area
	RateLimit     float64 // analyze requests per second per client, 0 disables
	MaxConcurrent int     // analyses running at once

	MetricsEnabled bool
	Debug          bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            5000,
		AllowedOrigins:  []string{"*"},
		AllowedHeaders:  []string{"Content-Type", "ngrok-skip-browser-warning"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MaxPixels:       imageio.DefaultMaxPixels,
		MaxConcurrent:   4,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Host = settings.WebServer.Host
	cfg.Port = settings.WebServer.Port
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	if settings.WebServer.MaxPixels > 0 {
		cfg.MaxPixels = settings.WebServer.MaxPixels
	}
	cfg.RateLimit = settings.WebServer.RateLimit
	if settings.WebServer.MaxConcurrent > 0 {
		cfg.MaxConcurrent = settings.WebServer.MaxConcurrent
	}
	if settings.WebServer.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.WebServer.ShutdownTimeout
	}
	cfg.MetricsEnabled = settings.Metrics.Enabled
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if _, err := gbytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	if c.MaxPixels < 1 {
		return fmt.Errorf("max pixels must be at least 1, got %d", c.MaxPixels)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent analyses must be at least 1")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, rate_limit=%v, max_concurrent=%d",
		c.Address(), c.BodyLimit, c.RateLimit, c.MaxConcurrent)
}

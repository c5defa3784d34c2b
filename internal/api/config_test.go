package api

import (
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visorax/visorax-go/internal/imageio"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.Host = "127.0.0.1"
	settings.WebServer.Port = 8088
	settings.WebServer.BodyLimit = "32M"
	settings.WebServer.MaxPixels = 1000
	settings.WebServer.RateLimit = 2.5
	settings.WebServer.MaxConcurrent = 8
	settings.WebServer.ShutdownTimeout = 3 * time.Second
	settings.Metrics.Enabled = true

	cfg := ConfigFromSettings(settings)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8088", cfg.Address())
	assert.Equal(t, "32M", cfg.BodyLimit)
	assert.Equal(t, 1000, cfg.MaxPixels)
	assert.InDelta(t, 2.5, cfg.RateLimit, 0)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.MetricsEnabled)
}

func TestConfigFromSettingsKeepsDefaults(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.Port = 5000

	cfg := ConfigFromSettings(settings)

	assert.Equal(t, DefaultBodyLimit, cfg.BodyLimit)
	assert.Equal(t, imageio.DefaultMaxPixels, cfg.MaxPixels)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Port = 0 }, "port must be between"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port must be between"},
		{"bad body limit", func(c *Config) { c.BodyLimit = "lots" }, "invalid body limit"},
		{"no pixels", func(c *Config) { c.MaxPixels = 0 }, "max pixels"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate limit"},
		{"no concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max concurrent"},
		{"no read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAddressIPv6(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Host = "::1"
	assert.Equal(t, "[::1]:5000", cfg.Address())
}

func TestFormMetadata(t *testing.T) {
	t.Parallel()

	assert.Nil(t, formMetadata(nil))
	assert.Nil(t, formMetadata(&multipart.Form{Value: map[string][]string{"other": {"x"}}}))

	form := &multipart.Form{Value: map[string][]string{
		"heading":   {"270", "90"},
		"driver_id": {""},
		"other":     {"x"},
	}}
	assert.Equal(t, map[string]string{"heading": "270", "driver_id": ""}, formMetadata(form))
}

func TestCoordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta map[string]string
		ok   bool
	}{
		{"valid", map[string]string{"latitude": "13.0827", "longitude": "80.2707"}, true},
		{"missing longitude", map[string]string{"latitude": "13.0827"}, false},
		{"not a number", map[string]string{"latitude": "abc", "longitude": "80.2707"}, false},
		{"out of range", map[string]string{"latitude": "91", "longitude": "80"}, false},
		{"nan", map[string]string{"latitude": "NaN", "longitude": "80"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lat, lon, ok := coordinates(tt.meta)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, 13.0827, lat, 1e-9)
				assert.InDelta(t, 80.2707, lon, 1e-9)
			}
		})
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := generateCorrelationID(), generateCorrelationID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[a-zA-Z0-9]{8}$`, a)
}

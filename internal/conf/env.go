// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation.
// MODEL_NAME, CONF_THRESHOLD and PORT keep the names existing deployments set.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"detector.model", "MODEL_NAME", validateEnvNonEmpty},
		{"detector.modelpath", "MODEL_PATH", validateEnvPath},
		{"detector.threshold", "CONF_THRESHOLD", validateEnvThreshold},
		{"detector.type", "DETECTOR_TYPE", validateEnvDetectorType},
		{"detector.remote.url", "DETECTOR_URL", validateEnvHTTPURL},
		{"detector.threads", "DETECTOR_THREADS", validateEnvThreads},

		{"webserver.port", "PORT", validateEnvPort},

		{"logging.default_level", "LOG_LEVEL", validateEnvLogLevel},
		{"debug", "VISORAX_DEBUG", validateEnvBool},

		{"mqtt.enabled", "MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.username", "MQTT_USERNAME", nil},
		{"mqtt.password", "MQTT_PASSWORD", nil},
		{"mqtt.passwordfile", "MQTT_PASSWORD_FILE", validateEnvPath},

		{"sentry.dsn", "SENTRY_DSN", nil},
		{"sentry.dsnfile", "SENTRY_DSN_FILE", validateEnvPath},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// present but empty values are validated too
		if binding.Validate != nil {
			if envValue, ok := os.LookupEnv(binding.EnvVar); ok {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

func validateEnvThreshold(value string) error {
	threshold, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}
	if threshold < 0.0 || threshold > 1.0 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0, got %g", threshold)
	}
	return nil
}

func validateEnvThreads(value string) error {
	threads, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid threads: %w", err)
	}
	if threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", threads)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDetectorType(value string) error {
	valid := []string{DetectorTFLite, DetectorRemote, DetectorNone}
	if !slices.Contains(valid, strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains(validLogLevels, strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	return nil
}

func validateEnvHTTPURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if !slices.Contains(validBrokerSchemes, u.Scheme) {
		return fmt.Errorf("broker scheme must be one of %s, got %q", strings.Join(validBrokerSchemes, ", "), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker URL must include a host")
	}
	return nil
}

func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)

	if !filepath.IsAbs(cleanedPath) {
		return fmt.Errorf("path must be absolute, got relative path: %s", cleanedPath)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return fmt.Errorf("warning: file does not exist: %s", cleanedPath)
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

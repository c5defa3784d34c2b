// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/labstack/gommon/bytes"
)

var (
	validLogLevels     = []string{"trace", "debug", "info", "warn", "error"}
	validAlertLevels   = []string{"none", "info", "caution", "warning", "danger"}
	validBrokerSchemes = []string{"tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateDetectorSettings,
		validateWebServerSettings,
		validateDashcamSettings,
		validateMQTTSettings,
		validateSentrySettings,
		validateSunSettings,
		validateLoggingSettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDetectorSettings(s *Settings) []string {
	var errs []string
	d := &s.Detector

	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	switch d.Type {
	case DetectorTFLite:
		if d.ModelPath == "" {
			errs = append(errs, "detector.modelpath is required for the tflite detector")
		}
	case DetectorRemote:
		if d.Remote.URL == "" {
			errs = append(errs, "detector.remote.url is required for the remote detector")
		} else if err := validateEnvHTTPURL(d.Remote.URL); err != nil {
			errs = append(errs, fmt.Sprintf("detector.remote.url: %v", err))
		}
		if d.Remote.Timeout <= 0 {
			errs = append(errs, "detector.remote.timeout must be positive")
		}
	case DetectorNone:
	default:
		errs = append(errs, fmt.Sprintf("detector.type must be one of tflite, remote, none; got %q", d.Type))
	}

	if d.Model == "" {
		errs = append(errs, "detector.model must not be empty")
	}
	if d.Threshold < 0 || d.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("detector.threshold must be between 0 and 1, got %g", d.Threshold))
	}
	if d.InputSize <= 0 || d.InputSize%32 != 0 {
		errs = append(errs, fmt.Sprintf("detector.inputsize must be a positive multiple of 32, got %d", d.InputSize))
	}
	if d.Threads < 0 {
		errs = append(errs, fmt.Sprintf("detector.threads must be non-negative, got %d", d.Threads))
	}
	if d.IOUThreshold <= 0 || d.IOUThreshold > 1 {
		errs = append(errs, fmt.Sprintf("detector.iouthreshold must be in (0, 1], got %g", d.IOUThreshold))
	}
	if d.MaxDetections <= 0 {
		errs = append(errs, fmt.Sprintf("detector.maxdetections must be positive, got %d", d.MaxDetections))
	}

	return errs
}

func validateWebServerSettings(s *Settings) []string {
	var errs []string
	w := &s.WebServer

	if w.Port < 1 || w.Port > 65535 {
		errs = append(errs, fmt.Sprintf("webserver.port must be between 1 and 65535, got %d", w.Port))
	}
	if limit, err := bytes.Parse(w.BodyLimit); err != nil || limit <= 0 {
		errs = append(errs, fmt.Sprintf("webserver.bodylimit must be a size like 16M, got %q", w.BodyLimit))
	}
	if w.MaxPixels < 1 {
		errs = append(errs, fmt.Sprintf("webserver.maxpixels must be at least 1, got %d", w.MaxPixels))
	}
	if w.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("webserver.ratelimit must be non-negative, got %g", w.RateLimit))
	}
	if w.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("webserver.maxconcurrent must be at least 1, got %d", w.MaxConcurrent))
	}
	if w.ShutdownTimeout < 0 {
		errs = append(errs, "webserver.shutdowntimeout must be non-negative")
	}

	return errs
}

func validateDashcamSettings(s *Settings) []string {
	var errs []string
	d := &s.Dashcam

	if d.BatteryLevel < 0 || d.BatteryLevel > 100 {
		errs = append(errs, fmt.Sprintf("dashcam.batterylevel must be between 0 and 100, got %d", d.BatteryLevel))
	}
	if d.StorageUsedGB < 0 {
		errs = append(errs, fmt.Sprintf("dashcam.storageusedgb must be non-negative, got %g", d.StorageUsedGB))
	}

	return errs
}

func validateMQTTSettings(s *Settings) []string {
	var errs []string
	m := &s.MQTT

	m.MinLevel = strings.ToLower(strings.TrimSpace(m.MinLevel))
	if !slices.Contains(validAlertLevels, m.MinLevel) {
		errs = append(errs, fmt.Sprintf("mqtt.minlevel must be one of %s, got %q", strings.Join(validAlertLevels, ", "), m.MinLevel))
	}
	if m.DedupeWindow < 0 {
		errs = append(errs, "mqtt.dedupewindow must be non-negative")
	}

	if !m.Enabled {
		return errs
	}

	if m.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	} else if err := validateEnvBrokerURL(m.Broker); err != nil {
		errs = append(errs, fmt.Sprintf("mqtt.broker: %v", err))
	}
	if m.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}
	if strings.ContainsAny(m.Topic, "#+") {
		errs = append(errs, "mqtt.topic must not contain wildcards")
	}

	return errs
}

func validateSentrySettings(s *Settings) []string {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return []string{"sentry.dsn is required when sentry is enabled"}
	}
	return nil
}

func validateSunSettings(s *Settings) []string {
	if s.Sun.LowSunWindow < 0 {
		return []string{"sun.lowsunwindow must be non-negative"}
	}
	return nil
}

func validateLoggingSettings(s *Settings) []string {
	var errs []string
	l := &s.Logging

	if l.DefaultLevel != "" && !slices.Contains(validLogLevels, l.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("logging.default_level must be one of %s, got %q", strings.Join(validLogLevels, ", "), l.DefaultLevel))
	}
	for module, level := range l.ModuleLevels {
		if !slices.Contains(validLogLevels, level) {
			errs = append(errs, fmt.Sprintf("logging.module_levels.%s must be one of %s, got %q", module, strings.Join(validLogLevels, ", "), level))
		}
	}

	return errs
}

// config.go: settings struct for the VisoraX service and functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Detector type names accepted by detector.type
const (
	DetectorTFLite = "tflite"
	DetectorRemote = "remote"
	DetectorNone   = "none"
)

// DetectorSettings selects and tunes the object detector backend.
type DetectorSettings struct {
	Type          string  // tflite, remote or none
	Model         string  // model name reported by the API, e.g. yolov8n.pt
	ModelPath     string  // path to the YOLOv8 TFLite export, used by the tflite backend
	Threshold     float64 // detector confidence threshold
	InputSize     int     // square model input size in pixels
	Threads       int     // interpreter threads, 0 picks from CPU topology
	IOUThreshold  float64 // class-wise NMS overlap threshold
	MaxDetections int     // detections kept after NMS
	UseXNNPACK    bool    // run the tflite model through the XNNPACK delegate
	Remote        RemoteDetectorSettings
}

// RemoteDetectorSettings points at an HTTP detection microservice.
type RemoteDetectorSettings struct {
	URL     string        // base URL, /detect and /health are appended
	Timeout time.Duration // per request timeout
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Host            string
	Port            int
	BodyLimit       string        // maximum request body, human size like "16M"
	MaxPixels       int           // maximum decoded image area, width times height
	RateLimit       float64       // analyze requests per second, 0 disables
	MaxConcurrent   int           // concurrent analyses
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

// DashcamSettings holds the device status values that have no live source.
type DashcamSettings struct {
	BatteryLevel  int     // percent
	StoragePath   string  // filesystem measured for storage_used_gb
	StorageUsedGB float64 // fallback when the filesystem cannot be measured
	Temperature   int     // fallback in degrees Celsius when no sensor is readable
	GPSConnected  bool
}

// MQTTSettings configures glare alert publishing.
type MQTTSettings struct {
	Enabled      bool
	Broker       string // e.g. tcp://localhost:1883
	Topic        string // topic prefix, vehicle id is appended
	ClientID     string // generated when empty
	Username     string
	Password     string        // may reference environment variables as ${VAR}
	PasswordFile string        // read the password from this file instead
	MinLevel     string        // lowest alert level that is published
	DedupeWindow time.Duration // identical alerts inside the window are dropped
}

// SentrySettings enables error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
	DSNFile string // read the DSN from this file instead
}

// MetricsSettings toggles the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
}

// SunSettings tunes the sun position context attached to analyses.
type SunSettings struct {
	LowSunWindow time.Duration // time after sunrise and before sunset treated as low sun
}

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool // true to enable debug mode

	Detector  DetectorSettings
	WebServer WebServerSettings
	Dashcam   DashcamSettings
	MQTT      MQTTSettings
	Sentry    SentrySettings
	Metrics   MetricsSettings
	Sun       SunSettings

	Logging logger.LoggingConfig
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex

	// configFileOverride is set by --config and skips the search path
	configFileOverride string
)

// SetConfigFile makes Load read the given file instead of searching the default paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileOverride = path
}

// Load reads the configuration file and environment variables into a new Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces credential settings with the contents of their
// secret files or their environment expansion.
func resolveSecrets(settings *Settings) error {
	password, err := secrets.Resolve(settings.MQTT.PasswordFile, settings.MQTT.Password)
	if err != nil {
		return fmt.Errorf("mqtt.password: %w", err)
	}
	settings.MQTT.Password = password

	dsn, err := secrets.Resolve(settings.Sentry.DSNFile, settings.Sentry.DSN)
	if err != nil {
		return fmt.Errorf("sentry.dsn: %w", err)
	}
	settings.Sentry.DSN = dsn
	return nil
}

// initViper sets defaults, binds the environment and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// bad environment values are reported here and rejected by ValidateSettings
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	if configFileOverride != "" {
		viper.SetConfigFile(configFileOverride)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFileOverride, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil { //nolint:gosec // config is not secret by default
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default configuration.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance, nil before Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use.
// A load failure here is fatal since nothing can run without settings.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				GetLogger().Error("error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// RenderYAML returns the settings as YAML with secrets masked.
func RenderYAML(settings *Settings) ([]byte, error) {
	masked := *settings
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "********"
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = "********"
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
// Comments and ordering of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

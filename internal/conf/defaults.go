// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/visorax/visorax-go/internal/logger"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("detector.type", DetectorTFLite)
	viper.SetDefault("detector.model", "yolov8n.pt")
	viper.SetDefault("detector.modelpath", "model/yolov8n_float32.tflite")
	viper.SetDefault("detector.threshold", 0.25)
	viper.SetDefault("detector.inputsize", 640)
	viper.SetDefault("detector.threads", 0)
	viper.SetDefault("detector.iouthreshold", 0.45)
	viper.SetDefault("detector.maxdetections", 300)
	viper.SetDefault("detector.usexnnpack", false)
	viper.SetDefault("detector.remote.url", "")
	viper.SetDefault("detector.remote.timeout", 10*time.Second)

	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", 5000)
	viper.SetDefault("webserver.bodylimit", "16M")
	viper.SetDefault("webserver.maxpixels", 1<<26)
	viper.SetDefault("webserver.ratelimit", 0)
	viper.SetDefault("webserver.maxconcurrent", 4)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	viper.SetDefault("dashcam.batterylevel", 89)
	viper.SetDefault("dashcam.storagepath", "/")
	viper.SetDefault("dashcam.storageusedgb", 3.2)
	viper.SetDefault("dashcam.temperature", 28)
	viper.SetDefault("dashcam.gpsconnected", true)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "visorax/alerts")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.passwordfile", "")
	viper.SetDefault("mqtt.minlevel", "warning")
	viper.SetDefault("mqtt.dedupewindow", 30*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.dsnfile", "")

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("sun.lowsunwindow", 90*time.Minute)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
}

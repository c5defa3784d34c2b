// Package cmd builds the visorax command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visorax/visorax-go/cmd/analyze"
	"github.com/visorax/visorax-go/cmd/config"
	"github.com/visorax/visorax-go/cmd/serve"
	"github.com/visorax/visorax-go/internal/buildinfo"
	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/logger"
)

// flagBindings maps persistent flags to configuration keys
var flagBindings = map[string]string{
	"debug":     "debug",
	"model":     "detector.modelpath",
	"threshold": "detector.threshold",
	"port":      "webserver.port",
}

// RootCommand creates and returns the root command. Settings are loaded
// before any subcommand runs, with flags taking precedence over the
// environment and the config file.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var (
		configFile    string
		centralLogger *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:          "visorax",
		Short:        "VisoraX dashcam glare detection",
		Long:         "Detects sun, headlight and reflection glare in dashcam frames and serves the results over HTTP.",
		Version:      build.String(),
		SilenceUsage: true,
	}

	setupFlags(rootCmd, &configFile)

	rootCmd.AddCommand(
		serve.Command(settings, build),
		analyze.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			conf.SetConfigFile(configFile)
		}

		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded

		if settings.Debug {
			settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
			if settings.Logging.Console != nil {
				settings.Logging.Console.Level = string(logger.LogLevelDebug)
			}
		}

		centralLogger, err = logger.NewCentralLogger(&settings.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logger.SetGlobal(centralLogger)
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if centralLogger == nil {
			return nil
		}
		return centralLogger.Close()
	}

	return rootCmd
}

// setupFlags defines the global flags and binds them to viper
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config file (default searches ~/.config/visorax and /etc/visorax)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("model", "", "Path to the YOLOv8 TFLite model")
	flags.Float64P("threshold", "t", 0, "Detector confidence threshold, value between 0.0 and 1.0")
	flags.IntP("port", "p", 0, "HTTP port to listen on")

	for flag, key := range flagBindings {
		// flags only override when set on the command line
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
		}
	}
}

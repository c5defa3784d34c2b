// Package serve implements the serve command.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/visorax/visorax-go/internal/api"
	"github.com/visorax/visorax-go/internal/buildinfo"
	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/detector"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/mqtt"
	"github.com/visorax/visorax-go/internal/observability"
	"github.com/visorax/visorax-go/internal/observability/metrics"
	"github.com/visorax/visorax-go/internal/suncalc"
)

const telemetryFlushTimeout = 2 * time.Second

// Command runs the HTTP service until SIGINT or SIGTERM.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the glare detection HTTP service",
		Long:  "Load the object detector and serve the dashcam API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, build)
		},
	}
}

// Run starts the service and blocks until ctx is done or the server fails.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("serve")
	log.Info("starting VisoraX",
		logger.String("version", build.GetVersion()),
		logger.String("build_date", build.GetBuildDate()))

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, build.Release()); err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		}
		defer errors.FlushTelemetry(telemetryFlushTimeout)
	}

	var m *observability.Metrics
	if settings.Metrics.Enabled {
		var err error
		if m, err = observability.NewMetrics(); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	det, err := newDetector(settings, m)
	if err != nil {
		return err
	}

	scoring := glare.DefaultScoringConfig().WithDetector(settings.Detector.Threshold, settings.Detector.InputSize)
	analyzer, err := glare.NewAnalyzer(det, scoring)
	if err != nil {
		_ = det.Close()
		return err
	}

	opts := []api.Option{
		api.WithSunCalc(suncalc.NewSunCalc(settings.Sun.LowSunWindow, time.Local)),
	}
	if m != nil {
		opts = append(opts, api.WithMetrics(m))
	}

	var (
		mqttClient mqtt.Client
		mqttWg     sync.WaitGroup
	)
	mqttCtx, cancelMQTT := context.WithCancel(ctx)
	defer cancelMQTT()

	if settings.MQTT.Enabled {
		cfg := mqttConfig(settings)
		publisher, client, err := newPublisher(cfg, settings, m)
		if err != nil {
			_ = det.Close()
			return err
		}
		mqttClient = client
		opts = append(opts, api.WithPublisher(publisher))

		mqttWg.Go(func() {
			if err := mqtt.KeepConnecting(mqttCtx, client, cfg.ReconnectCooldown, cfg.MaxReconnectInterval); err != nil {
				log.Debug("stopped connecting to MQTT broker", logger.Error(err))
			}
		})
	}

	server, err := api.New(settings, analyzer, det, opts...)
	if err != nil {
		cancelMQTT()
		mqttWg.Wait()
		_ = det.Close()
		return err
	}

	errCh := server.Start()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, initiating graceful shutdown")
	case serveErr = <-errCh:
		log.Error("HTTP server stopped", logger.Error(serveErr))
	}

	if err := server.Shutdown(context.Background()); err != nil && serveErr == nil {
		serveErr = err
	}

	cancelMQTT()
	mqttWg.Wait()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}

	return serveErr
}

// newDetector creates the configured detector and records the model load
func newDetector(settings *conf.Settings, m *observability.Metrics) (detector.Detector, error) {
	var detOpts []detector.Option
	if m != nil {
		detOpts = append(detOpts, detector.WithRecorder(m.Glare))
	}

	det, err := detector.New(&settings.Detector, detOpts...)
	if m != nil {
		m.Glare.RecordModelLoad(err)
		if err == nil && settings.Detector.Type == conf.DetectorNone {
			m.Glare.SetModelLoaded(false)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object detector: %w", err)
	}
	return det, nil
}

func mqttConfig(settings *conf.Settings) mqtt.Config {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = "visorax-" + uuid.NewString()[:8]
	}
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	return cfg
}

func newPublisher(cfg mqtt.Config, settings *conf.Settings, m *observability.Metrics) (*mqtt.Publisher, mqtt.Client, error) {
	var mqttMetrics *metrics.MQTTMetrics
	if m != nil {
		mqttMetrics = m.MQTT
	}

	client := mqtt.NewClient(cfg, mqttMetrics)
	publisher, err := mqtt.NewPublisher(client, &settings.MQTT, mqttMetrics)
	if err != nil {
		return nil, nil, err
	}
	return publisher, client, nil
}

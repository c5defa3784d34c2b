package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/detector"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/logger"
)

// Server is the HTTP server. It owns the Echo instance and the API controller.
type Server struct {
	echo       *echo.Echo
	config     *Config
	controller *Controller
	startTime  time.Time
}

// New creates a new HTTP server with the given settings. Controller options
// supply metrics, alert publishing and the other optional collaborators.
func New(settings *conf.Settings, analyzer *glare.Analyzer, det detector.Detector, opts ...Option) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = config.ReadTimeout
	e.Server.WriteTimeout = config.WriteTimeout
	e.Server.IdleTimeout = config.IdleTimeout

	s := &Server{
		echo:       e,
		config:     config,
		controller: NewController(e, settings, config, analyzer, det, opts...),
		startTime:  time.Now(),
	}

	GetLogger().Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.String("body_limit", config.BodyLimit),
		logger.Int("max_concurrent", config.MaxConcurrent),
		logger.Bool("metrics", config.MetricsEnabled))

	return s, nil
}

// Start begins serving HTTP requests in a background goroutine. The returned
// channel receives the error that stopped the server, if any, and is closed
// when serving ends.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		GetLogger().Info("starting HTTP server", logger.String("address", s.config.Address()))

		if err := s.echo.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	return errCh
}

// Shutdown stops accepting requests, waits for in-flight requests up to the
// configured timeout and then shuts the controller down.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	err := s.echo.Shutdown(ctx)
	s.controller.Shutdown()

	if err != nil {
		GetLogger().Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	GetLogger().Info("server shutdown complete",
		logger.Duration("uptime", time.Since(s.startTime).Round(time.Second)))
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Controller returns the API controller.
func (s *Server) Controller() *Controller {
	return s.controller
}

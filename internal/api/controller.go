package api

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/detector"
	"github.com/visorax/visorax-go/internal/fleet"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/mqtt"
	"github.com/visorax/visorax-go/internal/observability"
	"github.com/visorax/visorax-go/internal/suncalc"
	"github.com/visorax/visorax-go/internal/sysinfo"
)

// TimestampLayout is the layout of every timestamp field in responses
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ServiceStatus is reported by GET /
const ServiceStatus = "VisoraX YOLOv8 Backend Online"

const publishTimeout = 10 * time.Second

var allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

// StatusProvider reports the dashcam device status
type StatusProvider interface {
	Status(ctx context.Context) sysinfo.Status
}

// AlertPublisher publishes glare alerts
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert mqtt.Alert) (bool, error)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	Config   *Config

	Analyzer  *glare.Analyzer
	Detector  detector.Detector
	SunCalc   *suncalc.SunCalc
	SysInfo   StatusProvider
	Fleet     *fleet.Registry
	Publisher AlertPublisher // nil when alert publishing is disabled

	metrics    *observability.Metrics
	analyzeSem *semaphore.Weighted

	// now and newID are replaced in tests
	now   func() time.Time
	newID func() string

	// Goroutine lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics enables request and analysis metrics and the /metrics route
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithPublisher publishes an alert after each successful analysis
func WithPublisher(p AlertPublisher) Option {
	return func(c *Controller) {
		c.Publisher = p
	}
}

// WithSunCalc sets the sun calculator
func WithSunCalc(sc *suncalc.SunCalc) Option {
	return func(c *Controller) {
		c.SunCalc = sc
	}
}

// WithStatusProvider sets the device status source
func WithStatusProvider(p StatusProvider) Option {
	return func(c *Controller) {
		c.SysInfo = p
	}
}

// WithFleet sets the fleet registry
func WithFleet(r *fleet.Registry) Option {
	return func(c *Controller) {
		c.Fleet = r
	}
}

// NewController creates the API controller, installs its middleware on e and
// registers its routes. The controller owns det and closes it on Shutdown.
func NewController(e *echo.Echo, settings *conf.Settings, cfg *Config, analyzer *glare.Analyzer, det detector.Detector, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Echo:       e,
		Settings:   settings,
		Config:     cfg,
		Analyzer:   analyzer,
		Detector:   det,
		analyzeSem: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		now:        time.Now,
		newID:      uuid.NewString,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.SunCalc == nil {
		c.SunCalc = suncalc.NewSunCalc(settings.Sun.LowSunWindow, time.Local)
	}
	if c.SysInfo == nil {
		c.SysInfo = sysinfo.NewCollector(&settings.Dashcam)
	}
	if c.Fleet == nil {
		c.Fleet = fleet.NewRegistry(fleet.DefaultVehicles()...)
	}

	e.HTTPErrorHandler = c.httpErrorHandler
	c.setupMiddleware()
	c.initRoutes()

	return c
}

// setupMiddleware configures the Echo middleware stack. The request logger
// sits outside Recover so panics are logged and counted as 500s.
func (c *Controller) setupMiddleware() {
	httpMetrics := c.httpMetrics()

	c.Echo.Use(NewRequestLogger(GetLogger().Module("access"), httpMetrics))
	c.Echo.Use(middleware.Recover())
	c.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      isAnalyzePreflight,
		AllowOrigins: c.Config.AllowedOrigins,
		AllowMethods: allowedMethods,
		AllowHeaders: c.Config.AllowedHeaders,
	}))
	c.Echo.Use(middleware.BodyLimit(c.Config.BodyLimit))
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/", c.GetRoot)
	c.Echo.GET("/dashcam/status", c.GetDashcamStatus)
	c.Echo.OPTIONS("/dashcam/analyze", c.AnalyzeOptions)
	c.Echo.POST("/dashcam/analyze", c.AnalyzeDashcamImage, c.rateLimiter()...)
	c.Echo.GET("/fleet/vehicles", c.GetFleetVehicles)

	if c.metrics != nil && c.Config.MetricsEnabled {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// rateLimiter returns the per client limiter for analyze requests, none when
// rate limiting is disabled.
func (c *Controller) rateLimiter() []echo.MiddlewareFunc {
	if c.Config.RateLimit <= 0 {
		return nil
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(c.Config.RateLimit),
		Burst:     int(math.Max(1, math.Ceil(c.Config.RateLimit))),
		ExpiresIn: 3 * time.Minute,
	})

	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return jsonError(ctx, http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return jsonError(ctx, http.StatusTooManyRequests, "Rate limit exceeded")
		},
	})}
}

// timestamp formats the current local time for responses
func (c *Controller) timestamp() string {
	return c.now().Format(TimestampLayout)
}

// Shutdown waits for background alert publishes, then closes the detector.
func (c *Controller) Shutdown() {
	c.wg.Wait()
	c.cancel()

	if c.Detector != nil {
		if err := c.Detector.Close(); err != nil {
			GetLogger().Warn("failed to close object detector", logger.Error(err))
		}
	}

	GetLogger().Debug("API controller shut down")
}

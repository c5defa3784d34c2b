package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/observability/metrics"
)

// unmatchedRoute labels requests that matched no route
const unmatchedRoute = "unmatched"

// NewRequestLogger logs every request and, when m is not nil, records it in
// the HTTP metrics. Metrics are labelled by route pattern, not raw path.
func NewRequestLogger(log logger.Logger, m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		BeforeNextFunc: func(c echo.Context) {
			if m != nil {
				m.RequestStarted()
			}
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if m != nil {
				m.RequestFinished()
				route := routeLabel(c)
				m.RecordHTTPRequest(v.Method, route, v.Status, v.Latency.Seconds())
				if v.Error != nil {
					m.RecordHTTPRequestError(v.Method, route, strconv.Itoa(v.Status))
				}
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
				log.Warn("request failed", fields...)
				return nil
			}

			log.Debug("request", fields...)
			return nil
		},
	})
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return unmatchedRoute
}

func (c *Controller) httpMetrics() *metrics.HTTPMetrics {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.HTTP
}

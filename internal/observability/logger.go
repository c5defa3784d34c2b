package observability

import (
	"sync"

	"github.com/visorax/visorax-go/internal/logger"
)

var (
	metricsLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the observability package logger
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		metricsLogger = logger.Global().Module("telemetry")
	})
	return metricsLogger
}

package suncalc

import (
	"sync"

	"github.com/visorax/visorax-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the suncalc package logger
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("suncalc")
	})
	return serviceLogger
}

package sysinfo

import (
	"sync"

	"github.com/visorax/visorax-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the sysinfo package logger
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("sysinfo")
	})
	return serviceLogger
}

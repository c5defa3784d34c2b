package conf

import (
	"sync"

	"github.com/visorax/visorax-go/internal/logger"
)

var (
	confLogger     logger.Logger
	confLoggerOnce sync.Once
)

// GetLogger returns the config package logger scoped to the config module.
func GetLogger() logger.Logger {
	confLoggerOnce.Do(func() {
		confLogger = logger.Global().Module("config")
	})
	return confLogger
}

// Package sysinfo reports dashcam device status: battery, storage,
// temperature and GPS.
package sysinfo

import (
	"context"
	"math"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/logger"
)

const (
	bytesPerGB = 1 << 30
	// Sensor readings outside this range are treated as bogus
	minPlausibleTemp = 0.0
	maxPlausibleTemp = 150.0
)

// Status is the device status reported by GET /dashcam/status
type Status struct {
	BatteryLevel  int     `json:"battery_level"`
	StorageUsedGB float64 `json:"storage_used_gb"`
	Temperature   int     `json:"temperature"`
	GPSConnected  bool    `json:"gps_connected"`
}

// Collector gathers device status. Battery level and GPS state come from
// configuration; storage and temperature are measured when the host allows
// it and fall back to the configured values otherwise.
type Collector struct {
	settings     conf.DashcamSettings
	diskUsage    func(ctx context.Context, path string) (*disk.UsageStat, error)
	temperatures func(ctx context.Context) ([]host.TemperatureStat, error)
}

// NewCollector creates a Collector measuring the host it runs on
func NewCollector(settings *conf.DashcamSettings) *Collector {
	return &Collector{
		settings:     *settings,
		diskUsage:    disk.UsageWithContext,
		temperatures: host.SensorsTemperaturesWithContext,
	}
}

// Status returns the current device status. It never fails.
func (c *Collector) Status(ctx context.Context) Status {
	return Status{
		BatteryLevel:  c.settings.BatteryLevel,
		StorageUsedGB: c.storageUsedGB(ctx),
		Temperature:   c.temperature(ctx),
		GPSConnected:  c.settings.GPSConnected,
	}
}

func (c *Collector) storageUsedGB(ctx context.Context) float64 {
	if c.settings.StoragePath == "" {
		return c.settings.StorageUsedGB
	}
	usage, err := c.diskUsage(ctx, c.settings.StoragePath)
	if err != nil || usage == nil {
		GetLogger().Debug("disk usage unavailable, using configured value",
			logger.String("path", c.settings.StoragePath),
			logger.Error(err))
		return c.settings.StorageUsedGB
	}
	return math.Round(float64(usage.Used)/bytesPerGB*10) / 10
}

// temperature averages the plausible sensor readings. Linux hosts may
// return readings together with a warnings error, so readings win.
func (c *Collector) temperature(ctx context.Context) int {
	sensors, err := c.temperatures(ctx)

	var sum float64
	var n int
	for _, s := range sensors {
		if s.Temperature > minPlausibleTemp && s.Temperature < maxPlausibleTemp {
			sum += s.Temperature
			n++
		}
	}
	if n == 0 {
		if err != nil {
			GetLogger().Debug("temperature sensors unavailable, using configured value", logger.Error(err))
		}
		return c.settings.Temperature
	}
	return int(math.Round(sum / float64(n)))
}

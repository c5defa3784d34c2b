package sysinfo

import (
	"context"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
)

func defaultDashcam() *conf.DashcamSettings {
	return &conf.DashcamSettings{
		BatteryLevel:  89,
		StoragePath:   "/",
		StorageUsedGB: 3.2,
		Temperature:   28,
		GPSConnected:  true,
	}
}

func TestStatus_Measured(t *testing.T) {
	t.Parallel()

	c := NewCollector(defaultDashcam())
	c.diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Used: 5 * bytesPerGB / 2}, nil // 2.5 GB
	}
	c.temperatures = func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "cpu", Temperature: 40},
			{SensorKey: "board", Temperature: 35},
			{SensorKey: "broken", Temperature: -273},
		}, errors.NewStd("some sensors failed")
	}

	status := c.Status(context.Background())
	assert.Equal(t, Status{BatteryLevel: 89, StorageUsedGB: 2.5, Temperature: 38, GPSConnected: true}, status)
}

func TestStatus_Fallbacks(t *testing.T) {
	t.Parallel()

	c := NewCollector(defaultDashcam())
	c.diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.NewStd("not mounted")
	}
	c.temperatures = func(context.Context) ([]host.TemperatureStat, error) {
		return nil, errors.NewStd("not implemented")
	}

	status := c.Status(context.Background())
	assert.Equal(t, Status{BatteryLevel: 89, StorageUsedGB: 3.2, Temperature: 28, GPSConnected: true}, status)
}

func TestStatus_NoStoragePath(t *testing.T) {
	t.Parallel()

	settings := defaultDashcam()
	settings.StoragePath = ""
	c := NewCollector(settings)
	c.diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		t.Fatal("disk usage must not be queried")
		return nil, nil
	}

	assert.InDelta(t, 3.2, c.Status(context.Background()).StorageUsedGB, 1e-12)
}

func TestStatus_RealHost(t *testing.T) {
	t.Parallel()

	status := NewCollector(defaultDashcam()).Status(context.Background())
	assert.Equal(t, 89, status.BatteryLevel)
	assert.GreaterOrEqual(t, status.StorageUsedGB, 0.0)
	assert.True(t, status.GPSConnected)
}

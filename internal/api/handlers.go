package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/fleet"
	"github.com/visorax/visorax-go/internal/sysinfo"
)

// RootResponse is the body of GET /
type RootResponse struct {
	Status       string `json:"status"`
	Model        string `json:"model"`
	GPUAvailable bool   `json:"gpu_available"`
	Timestamp    string `json:"timestamp"`
}

// DashcamStatusResponse is the body of GET /dashcam/status
type DashcamStatusResponse struct {
	sysinfo.Status
	ModelLoaded    bool   `json:"model_loaded"`
	AIModel        string `json:"ai_model"`
	GPUAccelerated bool   `json:"gpu_accelerated"`
	Timestamp      string `json:"timestamp"`
}

// FleetResponse is the body of GET /fleet/vehicles
type FleetResponse struct {
	Vehicles   []fleet.Vehicle `json:"vehicles"`
	TotalCount int             `json:"total_count"`
	Timestamp  string          `json:"timestamp"`
}

// GetRoot handles GET /
func (c *Controller) GetRoot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, RootResponse{
		Status:       ServiceStatus,
		Model:        c.modelName(),
		GPUAvailable: c.accelerated(),
		Timestamp:    c.timestamp(),
	})
}

// GetDashcamStatus handles GET /dashcam/status
func (c *Controller) GetDashcamStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, DashcamStatusResponse{
		Status:         c.SysInfo.Status(ctx.Request().Context()),
		ModelLoaded:    c.modelLoaded(),
		AIModel:        c.modelName(),
		GPUAccelerated: c.accelerated(),
		Timestamp:      c.timestamp(),
	})
}

// GetFleetVehicles handles GET /fleet/vehicles
func (c *Controller) GetFleetVehicles(ctx echo.Context) error {
	vehicles := c.Fleet.List()
	return ctx.JSON(http.StatusOK, FleetResponse{
		Vehicles:   vehicles,
		TotalCount: len(vehicles),
		Timestamp:  c.timestamp(),
	})
}

func (c *Controller) modelName() string {
	if c.Detector != nil {
		return c.Detector.Name()
	}
	return c.Settings.Detector.Model
}

func (c *Controller) accelerated() bool {
	return c.Detector != nil && c.Detector.Accelerated()
}

// modelLoaded is false only in photometric mode where no detector runs
func (c *Controller) modelLoaded() bool {
	return c.Detector != nil && c.Settings.Detector.Type != conf.DetectorNone
}

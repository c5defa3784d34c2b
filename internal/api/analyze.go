package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/visorax/visorax-go/internal/fleet"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/imageio"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/mqtt"
	"github.com/visorax/visorax-go/internal/observability/metrics"
	"github.com/visorax/visorax-go/internal/suncalc"
)

// metadataFields are the optional form fields echoed back in "metadata"
var metadataFields = []string{"latitude", "longitude", "speed_kmh", "heading", "driver_id", "vehicle_id"}

// AnalyzeResponse is the glare report merged with request context
type AnalyzeResponse struct {
	glare.Report
	Model           string            `json:"model"`
	ImageDimensions string            `json:"image_dimensions"`
	GPUAccelerated  bool              `json:"gpu_accelerated"`
	Timestamp       string            `json:"timestamp"`
	AnalysisID      string            `json:"analysis_id"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	SunContext      *suncalc.Context  `json:"sun_context,omitempty"`
}

// AnalyzeOptions answers the browser preflight for POST /dashcam/analyze.
// Dashcam clients expect a 200 JSON body here, so the CORS middleware is
// skipped and the headers are set directly.
func (c *Controller) AnalyzeOptions(ctx echo.Context) error {
	h := ctx.Response().Header()
	h.Set(echo.HeaderAccessControlAllowOrigin, strings.Join(c.Config.AllowedOrigins, ","))
	h.Set(echo.HeaderAccessControlAllowMethods, strings.Join(allowedMethods, ","))
	h.Set(echo.HeaderAccessControlAllowHeaders, strings.Join(c.Config.AllowedHeaders, ","))
	return ctx.JSON(http.StatusOK, map[string]string{"status": "OK"})
}

func isAnalyzePreflight(ctx echo.Context) bool {
	return ctx.Request().Method == http.MethodOptions && ctx.Path() == "/dashcam/analyze"
}

// AnalyzeDashcamImage handles POST /dashcam/analyze
func (c *Controller) AnalyzeDashcamImage(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		// a part named image without a file name is parsed as a plain value
		if form := ctx.Request().MultipartForm; form != nil && len(form.Value["image"]) > 0 {
			return jsonError(ctx, http.StatusBadRequest, "Empty filename")
		}
		return jsonError(ctx, http.StatusBadRequest, "No image file provided")
	}
	if fileHeader.Filename == "" {
		return jsonError(ctx, http.StatusBadRequest, "Empty filename")
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Read failed: "+err.Error())
	}
	if m := c.httpMetrics(); m != nil {
		m.RecordUploadSize(int64(len(data)))
	}

	reqCtx := ctx.Request().Context()
	if err := c.analyzeSem.Acquire(reqCtx, 1); err != nil {
		return c.HandleError(ctx, err, "Request cancelled while waiting for an analysis slot", http.StatusServiceUnavailable)
	}
	defer c.analyzeSem.Release(1)

	if c.metrics != nil {
		c.metrics.Glare.ActiveAnalyses.Inc()
		defer c.metrics.Glare.ActiveAnalyses.Dec()
	}

	frame, info, err := imageio.Decode(data, c.Config.MaxPixels)
	c.recordOperation(metrics.OpDecode, err)
	if err != nil {
		GetLogger().Debug("rejected upload",
			logger.String("filename", fileHeader.Filename),
			logger.Int("size", len(data)),
			logger.Error(err))
		return jsonError(ctx, http.StatusBadRequest, "Invalid image format")
	}

	report, err := c.Analyzer.Analyze(reqCtx, frame)
	c.recordOperation(metrics.OpAnalyze, err)
	if err != nil {
		GetLogger().Error("glare analysis failed",
			logger.String("image_dimensions", info.Dimensions()),
			logger.Error(err))
		return jsonError(ctx, http.StatusInternalServerError, "Analysis failed: "+err.Error())
	}

	now := c.now()
	resp := AnalyzeResponse{
		Report:          *report,
		Model:           c.modelName(),
		ImageDimensions: info.Dimensions(),
		GPUAccelerated:  c.accelerated(),
		Timestamp:       now.Format(TimestampLayout),
		AnalysisID:      c.newID(),
		Metadata:        formMetadata(ctx.Request().MultipartForm),
	}

	lat, lon, hasPosition := coordinates(resp.Metadata)
	if hasPosition {
		if sun, err := c.SunCalc.Context(lat, lon, now); err == nil {
			resp.SunContext = &sun
		}
	}

	c.afterAnalysis(&resp, now, lat, lon, hasPosition)

	return ctx.JSON(http.StatusOK, resp)
}

// afterAnalysis records metrics, updates the fleet and publishes the alert
func (c *Controller) afterAnalysis(resp *AnalyzeResponse, at time.Time, lat, lon float64, hasPosition bool) {
	if c.metrics != nil {
		c.metrics.Glare.RecordAnalysis(resp.AlertLevel.String(), resp.Confidence, resp.ProcessingTime)
	}

	GetLogger().Info("frame analyzed",
		logger.String("analysis_id", resp.AnalysisID),
		logger.String("alert_level", resp.AlertLevel.String()),
		logger.Float64("confidence", resp.Confidence),
		logger.String("image_dimensions", resp.ImageDimensions))

	vehicleID := resp.Metadata["vehicle_id"]
	driverID := resp.Metadata["driver_id"]

	if vehicleID != "" {
		sighting := fleet.Sighting{
			VehicleID:  vehicleID,
			DriverID:   driverID,
			AlertLevel: resp.AlertLevel,
			At:         at,
		}
		if hasPosition {
			sighting.Location = &fleet.Location{Latitude: lat, Longitude: lon}
		}
		c.Fleet.Observe(sighting)
	}

	if c.Publisher == nil {
		return
	}

	alert := mqtt.Alert{
		AnalysisID: resp.AnalysisID,
		VehicleID:  vehicleID,
		DriverID:   driverID,
		AlertLevel: resp.AlertLevel,
		Confidence: resp.Confidence,
		HasGlare:   resp.HasGlare,
		Timestamp:  at,
	}
	if hasPosition {
		alert.Latitude, alert.Longitude = &lat, &lon
	}
	c.publishAsync(alert)
}

// publishAsync publishes alert in a goroutine tracked for Shutdown
func (c *Controller) publishAsync(alert mqtt.Alert) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
		defer cancel()

		if _, err := c.Publisher.PublishAlert(ctx, alert); err != nil {
			GetLogger().Warn("failed to publish glare alert",
				logger.String("analysis_id", alert.AnalysisID),
				logger.Error(err))
		}
	}()
}

// recordOperation counts one decode or analyze step, err nil on success
func (c *Controller) recordOperation(operation string, err error) {
	if c.metrics == nil {
		return
	}
	if err != nil {
		c.metrics.Glare.RecordOperation(operation, metrics.StatusError)
		c.metrics.Glare.RecordError(operation, metrics.CategorizeError(err))
		return
	}
	c.metrics.Glare.RecordOperation(operation, metrics.StatusSuccess)
}

// readUpload reads the whole uploaded file
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return io.ReadAll(f)
}

// formMetadata returns the metadata fields present in form, or nil
func formMetadata(form *multipart.Form) map[string]string {
	if form == nil {
		return nil
	}

	var meta map[string]string
	for _, key := range metadataFields {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = make(map[string]string, len(metadataFields))
		}
		meta[key] = values[0]
	}
	return meta
}

// coordinates parses latitude and longitude from meta. ok is false unless
// both are present and form a valid position.
func coordinates(meta map[string]string) (lat, lon float64, ok bool) {
	latStr, hasLat := meta["latitude"]
	lonStr, hasLon := meta["longitude"]
	if !hasLat || !hasLon {
		return 0, 0, false
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil || !suncalc.ValidCoordinates(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

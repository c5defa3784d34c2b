package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/detector"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/mqtt"
	"github.com/visorax/visorax-go/internal/sysinfo"
)

const testAnalysisID = "4f1c2b9e-8d0a-4e53-9a77-0c6b3a1d5e21"

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

type stubStatus struct {
	status sysinfo.Status
}

func (s stubStatus) Status(context.Context) sysinfo.Status {
	return s.status
}

// recordingPublisher keeps every alert it is given and signals each one on published
type recordingPublisher struct {
	mu        sync.Mutex
	alerts    []mqtt.Alert
	published chan mqtt.Alert
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{published: make(chan mqtt.Alert, 8)}
}

func (p *recordingPublisher) PublishAlert(_ context.Context, alert mqtt.Alert) (bool, error) {
	p.mu.Lock()
	p.alerts = append(p.alerts, alert)
	p.mu.Unlock()

	select {
	case p.published <- alert:
	default:
	}
	return true, nil
}

func (p *recordingPublisher) Alerts() []mqtt.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mqtt.Alert(nil), p.alerts...)
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Detector: conf.DetectorSettings{
			Type:      conf.DetectorNone,
			Model:     "yolov8n.pt",
			Threshold: 0.25,
			InputSize: 640,
		},
		Dashcam: conf.DashcamSettings{BatteryLevel: 89, Temperature: 42, StorageUsedGB: 2.3, GPSConnected: true},
		Sun:     conf.SunSettings{LowSunWindow: 90 * time.Minute},
	}
}

// failingDetector reports every inference as failed
type failingDetector struct {
	err error
}

func (d failingDetector) Detect(context.Context, *glare.Frame, float64, int) ([]glare.Detection, error) {
	return nil, d.err
}

func (failingDetector) Name() string      { return "yolov8n.pt" }
func (failingDetector) Accelerated() bool { return false }
func (failingDetector) Close() error      { return nil }

// setupTestController builds a controller over a fresh echo instance with a
// fixed clock and analysis id. cfgFn may adjust the server config.
func setupTestController(t *testing.T, cfgFn func(*Config), opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()
	return setupTestControllerWithDetector(t, nil, cfgFn, opts...)
}

// setupTestControllerWithDetector is setupTestController with a given
// detector; nil uses the none detector.
func setupTestControllerWithDetector(t *testing.T, det detector.Detector, cfgFn func(*Config), opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()

	settings := testSettings()
	cfg := DefaultConfig()
	if cfgFn != nil {
		cfgFn(cfg)
	}
	require.NoError(t, cfg.Validate())

	if det == nil {
		det = detector.NewNoneDetector(settings.Detector.Model)
	}
	analyzer, err := glare.NewAnalyzer(det, glare.DefaultScoringConfig())
	require.NoError(t, err)

	e := echo.New()
	opts = append([]Option{WithStatusProvider(stubStatus{status: sysinfo.Status{
		BatteryLevel:  89,
		StorageUsedGB: 2.3,
		Temperature:   42,
		GPSConnected:  true,
	}})}, opts...)

	c := NewController(e, settings, cfg, analyzer, det, opts...)
	c.now = func() time.Time { return testNow }
	c.newID = func() string { return testAnalysisID }
	t.Cleanup(c.Shutdown)

	return e, c
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST /dashcam/analyze request. A nil image omits
// the image part.
func multipartRequest(t *testing.T, filename string, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/dashcam/analyze", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

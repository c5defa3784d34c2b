package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/httpclient"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/privacy"
)

const (
	remoteJPEGQuality = 95
	// maxRemoteResponse bounds the response body read from the service
	maxRemoteResponse = 4 << 20
)

// RemoteDetector delegates detection to an HTTP microservice that runs the
// model. Frames are posted as JPEG to <url>/detect.
type RemoteDetector struct {
	baseURL string
	name    string
	timeout time.Duration
	client  *httpclient.Client
}

type remoteResponse struct {
	Detections []struct {
		ClassID    int       `json:"class_id"`
		Confidence float64   `json:"confidence"`
		Box        []float64 `json:"box"`
	} `json:"detections"`
}

// NewRemoteDetector creates a client for the detection service at
// settings.Remote.URL. A nil client gets one with the configured timeout.
func NewRemoteDetector(settings *conf.DetectorSettings, client *httpclient.Client) (*RemoteDetector, error) {
	if settings.Remote.URL == "" {
		return nil, errors.Newf("remote detector URL is empty").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if client == nil {
		client = httpclient.New(&httpclient.Config{DefaultTimeout: settings.Remote.Timeout})
	}
	client.SetAfterResponseHook(logRemoteCall)
	return &RemoteDetector{
		baseURL: strings.TrimRight(settings.Remote.URL, "/"),
		name:    settings.Model,
		timeout: settings.Remote.Timeout,
		client:  client,
	}, nil
}

// Detect posts frame to the service and converts its detections
func (d *RemoteDetector) Detect(ctx context.Context, frame *glare.Frame, threshold float64, inputSize int) ([]glare.Detection, error) {
	body, contentType, err := encodeDetectRequest(frame, threshold, inputSize)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryDetector).Build()
	}

	url := d.baseURL + "/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryDetector).Build()
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, errors.NetworkError(err, url, d.timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, errors.NetworkError(err, url, d.timeout)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("detector service returned %s", resp.Status).
			Category(errors.CategoryDetector).
			NetworkContext(url, d.timeout).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var parsed remoteResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.New(fmt.Errorf("decode detector response: %w", err)).
			Category(errors.CategoryDetector).
			Build()
	}

	detections := make([]glare.Detection, 0, len(parsed.Detections))
	for _, p := range parsed.Detections {
		det := glare.Detection{ClassID: p.ClassID, Confidence: p.Confidence}
		if len(p.Box) == 4 {
			det.Box = image.Rect(int(p.Box[0]), int(p.Box[1]), int(p.Box[2]), int(p.Box[3])).
				Intersect(frame.Bounds())
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// Health checks that the service answers on <url>/health
func (d *RemoteDetector) Health(ctx context.Context) error {
	url := d.baseURL + "/health"
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return errors.NetworkError(err, url, d.timeout)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRemoteResponse))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf("detector health check returned %s", resp.Status).
			Category(errors.CategoryDetector).
			NetworkContext(url, d.timeout).
			Build()
	}
	return nil
}

func (d *RemoteDetector) Name() string      { return d.name }
func (d *RemoteDetector) Accelerated() bool { return false }
func (d *RemoteDetector) Close() error {
	d.client.Close()
	return nil
}

// logRemoteCall traces each request to the detection service
func logRemoteCall(req *http.Request, resp *http.Response, elapsed time.Duration, err error) {
	fields := []logger.Field{
		logger.String("method", req.Method),
		logger.String("url", privacy.SanitizeURL(req.URL.String())),
		logger.Duration("elapsed", elapsed),
	}
	if err != nil {
		GetLogger().Debug("detector service request failed", append(fields, logger.Error(err))...)
		return
	}
	GetLogger().Trace("detector service request", append(fields, logger.Int("status", resp.StatusCode))...)
}

// encodeDetectRequest builds the multipart body: the frame as JPEG in the
// "image" part plus the conf and imgsz fields.
func encodeDetectRequest(frame *glare.Frame, threshold float64, inputSize int) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, "", err
	}
	if err := jpeg.Encode(part, frame.Image(), &jpeg.Options{Quality: remoteJPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encode frame: %w", err)
	}
	if err := w.WriteField("conf", strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("imgsz", strconv.Itoa(inputSize)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

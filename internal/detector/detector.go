// Package detector provides the object detectors used as glare cues: a local
// YOLOv8 TFLite model, a remote detection service, and a no-op detector for
// photometric-only operation.
package detector

import (
	"context"
	"time"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/httpclient"
	"github.com/visorax/visorax-go/internal/logger"
	"github.com/visorax/visorax-go/internal/observability/metrics"
)

// Detector is a glare.ObjectDetector with a lifecycle.
type Detector interface {
	glare.ObjectDetector

	// Name returns the model name reported to clients
	Name() string
	// Accelerated reports whether inference runs on an accelerator
	Accelerated() bool
	// Close releases model resources. Detect must not be called afterwards.
	Close() error
}

type options struct {
	recorder   metrics.Recorder
	httpClient *httpclient.Client
}

// Option configures New
type Option func(*options)

// WithRecorder records every detector call on rec
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithHTTPClient sets the client used by the remote detector
func WithHTTPClient(client *httpclient.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// New creates the detector selected by settings.Type.
func New(settings *conf.DetectorSettings, opts ...Option) (Detector, error) {
	o := options{recorder: metrics.NopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		det Detector
		err error
	)
	switch settings.Type {
	case conf.DetectorTFLite:
		det, err = NewTFLiteDetector(settings)
	case conf.DetectorRemote:
		det, err = NewRemoteDetector(settings, o.httpClient)
	case conf.DetectorNone:
		det = NewNoneDetector(settings.Model)
	default:
		err = errors.Newf("unknown detector type %q", settings.Type).
			Category(errors.CategoryConfiguration).
			Context("detector_type", settings.Type).
			Build()
	}
	if err != nil {
		return nil, err
	}

	GetLogger().Info("object detector ready",
		logger.String("type", settings.Type),
		logger.String("model", det.Name()),
		logger.Bool("accelerated", det.Accelerated()))

	return &instrumented{Detector: det, recorder: o.recorder}, nil
}

// instrumented records the outcome and duration of each Detect call
type instrumented struct {
	Detector
	recorder metrics.Recorder
}

func (d *instrumented) Detect(ctx context.Context, frame *glare.Frame, threshold float64, inputSize int) ([]glare.Detection, error) {
	start := time.Now()
	detections, err := d.Detector.Detect(ctx, frame, threshold, inputSize)
	d.recorder.RecordDuration(metrics.OpDetect, time.Since(start).Seconds())

	if err != nil {
		d.recorder.RecordOperation(metrics.OpDetect, metrics.StatusError)
		d.recorder.RecordError(metrics.OpDetect, metrics.CategorizeError(err))
		GetLogger().Warn("object detection failed",
			logger.String("detector", d.Name()),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return nil, err
	}

	d.recorder.RecordOperation(metrics.OpDetect, metrics.StatusSuccess)
	return detections, nil
}

// NoneDetector never finds anything. The analyzer then scores on pixel
// statistics alone.
type NoneDetector struct {
	name string
}

// NewNoneDetector returns a detector that reports no objects
func NewNoneDetector(name string) *NoneDetector {
	return &NoneDetector{name: name}
}

func (d *NoneDetector) Detect(ctx context.Context, _ *glare.Frame, _ float64, _ int) ([]glare.Detection, error) {
	return nil, ctx.Err()
}

func (d *NoneDetector) Name() string      { return d.name }
func (d *NoneDetector) Accelerated() bool { return false }
func (d *NoneDetector) Close() error      { return nil }

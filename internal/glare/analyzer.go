package glare

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/visorax/visorax-go/internal/errors"
)

// Analyzer scores frames with a fixed configuration and detector. It holds
// no per-frame state and is safe for concurrent use when the detector is.
type Analyzer struct {
	detector ObjectDetector
	config   ScoringConfig
}

// NewAnalyzer validates cfg and returns an analyzer that owns a copy of it.
// A nil detector disables object evidence.
func NewAnalyzer(detector ObjectDetector, cfg ScoringConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(err).
			Component("glare").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Analyzer{detector: detector, config: cfg}, nil
}

// Config returns a copy of the scoring configuration.
func (a *Analyzer) Config() ScoringConfig {
	return a.config
}

// Analyze scores one frame. The detector is called exactly once; its failure
// is reported on Report.DetectorErr rather than returned.
func (a *Analyzer) Analyze(ctx context.Context, frame *Frame) (*Report, error) {
	if frame.empty() {
		return nil, ErrEmptyFrame
	}

	start := time.Now()

	cues, detErr := extractObjectCues(ctx, a.detector, frame, a.config)
	photo := extractPhotometrics(frame, a.config.Pixels)
	scores, composite := fuse(photo, cues, a.config.Scales, a.config.Weights)

	if math.IsNaN(composite) || math.IsInf(composite, 0) {
		return nil, errors.New(fmt.Errorf("composite score is not finite: %v", composite)).
			Component("glare").
			Category(errors.CategoryGlareAnalysis).
			Context("width", frame.Width()).
			Context("height", frame.Height()).
			Timing("analyze", time.Since(start)).
			Build()
	}

	report := Report{
		Confidence:     composite,
		HasGlare:       a.config.HasGlare(composite),
		AlertLevel:     a.config.Classify(composite),
		ProcessingTime: time.Since(start).Seconds(),
		MethodScores:   scores,
		BrightnessAnalysis: BrightnessAnalysis{
			BrightAreaRatio:       photo.brightRatio,
			ExtremeBrightRatio:    photo.extremeRatio,
			CenterGlareRatio:      photo.centerRatio,
			GradientActivity:      photo.gradientRatio,
			BrightObjectsDetected: cues.brightObjects,
		},
	}.Rounded()
	report.DetectorErr = detErr

	return &report, nil
}

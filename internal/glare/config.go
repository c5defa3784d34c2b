package glare

import (
	"fmt"
	"math"
	"strings"
)

// weightSumTolerance absorbs float rounding when the weights are summed
const weightSumTolerance = 1e-9

// SignalValues holds one number per fused signal. It is used for both the
// saturation scales and the fusion weights.
type SignalValues struct {
	Intensity   float64
	HSV         float64
	Gradient    float64
	CenterFocus float64
	YOLOObjects float64
}

func (v SignalValues) sum() float64 {
	return v.Intensity + v.HSV + v.Gradient + v.CenterFocus + v.YOLOObjects
}

func (v SignalValues) each(fn func(name string, value float64)) {
	fn("intensity", v.Intensity)
	fn("hsv", v.HSV)
	fn("gradient", v.Gradient)
	fn("center_focus", v.CenterFocus)
	fn("yolo_objects", v.YOLOObjects)
}

// AlertThresholds are the lower bounds of each alert level above none.
type AlertThresholds struct {
	Info    float64
	Caution float64
	Warning float64
	Danger  float64
}

// PixelThresholds define the photometric pixel tests on 8-bit channels.
type PixelThresholds struct {
	BrightValueMin       int     // V >= this for a bright pixel
	BrightSaturationMax  int     // S <= this for a bright pixel
	ExtremeValueMin      int     // V >= this for a near-white pixel
	ExtremeSaturationMax int     // S <= this for a near-white pixel
	GradientMagnitudeMin float64 // Sobel magnitude > this for an active pixel
}

// ObjectCueParams control how detections become the object signal.
type ObjectCueParams struct {
	MinConfidence float64 // detections must exceed this, strictly
	Contribution  float64 // each qualifying detection adds confidence * Contribution
}

// ScoringConfig carries every constant of the scoring pipeline. It is a
// plain value; an Analyzer keeps its own copy.
type ScoringConfig struct {
	Scales            SignalValues
	Weights           SignalValues
	Alerts            AlertThresholds
	HasGlareThreshold float64 // composite must exceed this, strictly
	Pixels            PixelThresholds
	Objects           ObjectCueParams
	DetectorThreshold float64 // passed to the detector
	InputSize         int     // passed to the detector
}

// DefaultScoringConfig returns the production scoring constants.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Scales: SignalValues{
			Intensity:   8,
			HSV:         20,
			Gradient:    4,
			CenterFocus: 6,
			YOLOObjects: 1,
		},
		Weights: SignalValues{
			Intensity:   0.2,
			HSV:         0.3,
			Gradient:    0.1,
			CenterFocus: 0.3,
			YOLOObjects: 0.1,
		},
		Alerts: AlertThresholds{
			Info:    0.15,
			Caution: 0.30,
			Warning: 0.50,
			Danger:  0.70,
		},
		HasGlareThreshold: 0.15,
		Pixels: PixelThresholds{
			BrightValueMin:       200,
			BrightSaturationMax:  100,
			ExtremeValueMin:      240,
			ExtremeSaturationMax: 50,
			GradientMagnitudeMin: 120,
		},
		Objects: ObjectCueParams{
			MinConfidence: 0.5,
			Contribution:  0.1,
		},
		DetectorThreshold: 0.25,
		InputSize:         640,
	}
}

// WithDetector returns a copy with the detector threshold and input size replaced.
func (c ScoringConfig) WithDetector(threshold float64, inputSize int) ScoringConfig {
	c.DetectorThreshold = threshold
	c.InputSize = inputSize
	return c
}

// Validate reports every inconsistency in the configuration at once.
func (c ScoringConfig) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	c.Scales.each(func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			add("scale %s must be positive and finite, got %g", name, v)
		}
	})
	c.Weights.each(func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			add("weight %s must be non-negative and finite, got %g", name, v)
		}
	})
	if sum := c.Weights.sum(); math.Abs(sum-1) > weightSumTolerance {
		add("weights must sum to 1, got %g", sum)
	}

	a := c.Alerts
	if !(0 < a.Info && a.Info < a.Caution && a.Caution < a.Warning && a.Warning < a.Danger && a.Danger <= 1) {
		add("alert thresholds must satisfy 0 < info < caution < warning < danger <= 1, got %g/%g/%g/%g",
			a.Info, a.Caution, a.Warning, a.Danger)
	}
	if !(c.HasGlareThreshold >= 0 && c.HasGlareThreshold <= 1) {
		add("has-glare threshold must be in [0,1], got %g", c.HasGlareThreshold)
	}

	p := c.Pixels
	for _, t := range []struct {
		name string
		v    int
	}{
		{"bright value", p.BrightValueMin},
		{"bright saturation", p.BrightSaturationMax},
		{"extreme value", p.ExtremeValueMin},
		{"extreme saturation", p.ExtremeSaturationMax},
	} {
		if t.v < 0 || t.v > 255 {
			add("%s threshold must be in [0,255], got %d", t.name, t.v)
		}
	}
	if !(p.GradientMagnitudeMin >= 0) {
		add("gradient threshold must be non-negative, got %g", p.GradientMagnitudeMin)
	}

	if !(c.Objects.MinConfidence >= 0 && c.Objects.MinConfidence <= 1) {
		add("object confidence must be in [0,1], got %g", c.Objects.MinConfidence)
	}
	if !(c.Objects.Contribution >= 0) {
		add("object contribution must be non-negative, got %g", c.Objects.Contribution)
	}
	if !(c.DetectorThreshold >= 0 && c.DetectorThreshold <= 1) {
		add("detector threshold must be in [0,1], got %g", c.DetectorThreshold)
	}
	if c.InputSize <= 0 {
		add("detector input size must be positive, got %d", c.InputSize)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid scoring config: %s", strings.Join(problems, "; "))
	}
	return nil
}

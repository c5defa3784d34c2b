package glare

import (
	"math"
	"strconv"
)

// BrightnessAnalysis holds the raw statistics behind the scores.
type BrightnessAnalysis struct {
	BrightAreaRatio       float64 `json:"bright_area_ratio"`
	ExtremeBrightRatio    float64 `json:"extreme_bright_ratio"`
	CenterGlareRatio      float64 `json:"center_glare_ratio"`
	GradientActivity      float64 `json:"gradient_activity"`
	BrightObjectsDetected int     `json:"bright_objects_detected"`
}

// Report is the result of one analysis.
type Report struct {
	Confidence         float64            `json:"confidence"`
	HasGlare           bool               `json:"has_glare"`
	AlertLevel         AlertLevel         `json:"alert_level"`
	ProcessingTime     float64            `json:"processing_time"` // seconds
	MethodScores       SignalScores       `json:"method_scores"`
	BrightnessAnalysis BrightnessAnalysis `json:"brightness_analysis"`

	// DetectorErr is the detector failure, if any. The report is still valid
	// and scored without object evidence.
	DetectorErr error `json:"-"`
}

// Decimal places used in reports
const (
	ScoreDecimals = 3
	RatioDecimals = 4
	TimeDecimals  = 3
)

// Round rounds the exact binary value of v to the given number of decimals,
// ties to even. Scaling by a power of ten first would turn values such as
// 0.12345 into false ties. Applying it twice gives the same result as
// applying it once.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Rounded returns a copy with every score, ratio and time rounded to report precision.
func (r Report) Rounded() Report {
	r.Confidence = Round(r.Confidence, ScoreDecimals)
	r.ProcessingTime = Round(r.ProcessingTime, TimeDecimals)

	m := &r.MethodScores
	m.Intensity = Round(m.Intensity, ScoreDecimals)
	m.HSV = Round(m.HSV, ScoreDecimals)
	m.Gradient = Round(m.Gradient, ScoreDecimals)
	m.CenterFocus = Round(m.CenterFocus, ScoreDecimals)
	m.YOLOObjects = Round(m.YOLOObjects, ScoreDecimals)

	b := &r.BrightnessAnalysis
	b.BrightAreaRatio = Round(b.BrightAreaRatio, RatioDecimals)
	b.ExtremeBrightRatio = Round(b.ExtremeBrightRatio, RatioDecimals)
	b.CenterGlareRatio = Round(b.CenterGlareRatio, RatioDecimals)
	b.GradientActivity = Round(b.GradientActivity, RatioDecimals)

	return r
}

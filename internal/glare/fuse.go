package glare

import "math"

// SignalScores are the normalized per-signal scores, each in [0,1].
type SignalScores struct {
	Intensity   float64 `json:"intensity"`
	HSV         float64 `json:"hsv"`
	Gradient    float64 `json:"gradient"`
	CenterFocus float64 `json:"center_focus"`
	YOLOObjects float64 `json:"yolo_objects"`
}

// saturate maps a non-negative raw signal onto [0,1] with a linear scale.
func saturate(raw, scale float64) float64 {
	return min(raw*scale, 1)
}

// fuse normalizes the raw signals and returns them with the weighted composite.
// The object signal is only ceiling clamped; ten strong detections are needed
// to saturate it with the default scale.
func fuse(p photometrics, o objectCues, scales, weights SignalValues) (SignalScores, float64) {
	s := SignalScores{
		Intensity:   saturate(p.brightRatio, scales.Intensity),
		HSV:         saturate(p.extremeRatio, scales.HSV),
		Gradient:    saturate(p.gradientRatio, scales.Gradient),
		CenterFocus: saturate(p.centerRatio, scales.CenterFocus),
		YOLOObjects: saturate(o.raw, scales.YOLOObjects),
	}

	composite := weights.Intensity*s.Intensity +
		weights.HSV*s.HSV +
		weights.Gradient*s.Gradient +
		weights.CenterFocus*s.CenterFocus +
		weights.YOLOObjects*s.YOLOObjects

	if math.IsNaN(composite) {
		return s, composite
	}
	return s, math.Max(0, math.Min(1, composite))
}

package glare

import "context"

// objectCues is the detector evidence reduced to a count and a raw signal
type objectCues struct {
	brightObjects int
	raw           float64
}

// extractObjectCues calls the detector once. A detector error yields zero
// evidence and is returned for the caller to record; it never aborts scoring.
func extractObjectCues(ctx context.Context, det ObjectDetector, f *Frame, c ScoringConfig) (objectCues, error) {
	if det == nil {
		return objectCues{}, nil
	}

	detections, err := det.Detect(ctx, f, c.DetectorThreshold, c.InputSize)
	if err != nil {
		return objectCues{}, err
	}

	var cues objectCues
	for _, d := range detections {
		if IsRelevantObjectClass(d.ClassID) && d.Confidence > c.Objects.MinConfidence {
			cues.brightObjects++
			cues.raw += d.Confidence * c.Objects.Contribution
		}
	}
	return cues, nil
}

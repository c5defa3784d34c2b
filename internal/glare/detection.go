package glare

import (
	"context"
	"image"
)

// COCO class ids the detector reports for glare-prone objects
const (
	ClassCar          = 2
	ClassTrafficLight = 9
	ClassStopSign     = 11
)

// Detection is one object reported by the detector. Box is in frame
// coordinates and is not used for scoring.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// ObjectDetector finds objects in a frame. Implementations must not retain
// the frame or modify its pixels.
type ObjectDetector interface {
	Detect(ctx context.Context, frame *Frame, threshold float64, inputSize int) ([]Detection, error)
}

// IsRelevantObjectClass reports whether a class counts as a glare proxy:
// cars, traffic lights and stop signs.
func IsRelevantObjectClass(classID int) bool {
	switch classID {
	case ClassCar, ClassTrafficLight, ClassStopSign:
		return true
	}
	return false
}

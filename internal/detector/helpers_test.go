package detector

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/visorax/visorax-go/internal/glare"
)

// captureRecorder collects what a detector records
type captureRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	errors     map[string]int
	durations  int
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{operations: map[string]int{}, errors: map[string]int{}}
}

func (r *captureRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation+"/"+status]++
}

func (r *captureRecorder) RecordDuration(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func (r *captureRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[operation+"/"+errorType]++
}

func testFrame(t *testing.T, w, h int) *glare.Frame {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := glare.NewFrame(img)
	require.NoError(t, err)
	return f
}

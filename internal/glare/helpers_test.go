package glare

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockDetector is a testify mock of ObjectDetector
type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) Detect(ctx context.Context, frame *Frame, threshold float64, inputSize int) ([]Detection, error) {
	args := m.Called(ctx, frame, threshold, inputSize)
	dets, _ := args.Get(0).([]Detection)
	return dets, args.Error(1)
}

// staticDetector returns the same detections for every frame
type staticDetector struct {
	detections []Detection
	err        error
}

func (s staticDetector) Detect(context.Context, *Frame, float64, int) ([]Detection, error) {
	return s.detections, s.err
}

// solidImage returns a w x h image filled with c
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// fillRect paints r of img with c
func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func mustFrame(t *testing.T, img image.Image) *Frame {
	t.Helper()
	f, err := NewFrame(img)
	require.NoError(t, err)
	return f
}

func mustAnalyzer(t *testing.T, det ObjectDetector) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(det, DefaultScoringConfig())
	require.NoError(t, err)
	return a
}

var (
	midGray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	white   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black   = color.NRGBA{A: 255}
)

func colorNRGBA(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

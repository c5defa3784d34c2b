package glare

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSVValueSaturation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r, g, b uint8
		v, s    int32
	}{
		{0, 0, 0, 0, 0},
		{255, 255, 255, 255, 0},
		{255, 0, 0, 255, 255},
		{240, 240, 200, 240, 43},
		{128, 128, 128, 128, 0},
	}

	for _, tt := range tests {
		v, s := hsvValueSaturation(tt.r, tt.g, tt.b)
		assert.Equal(t, tt.v, v, "rgb(%d,%d,%d)", tt.r, tt.g, tt.b)
		assert.Equal(t, tt.s, s, "rgb(%d,%d,%d)", tt.r, tt.g, tt.b)
	}
}

func TestGrayLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(0), grayLevel(0, 0, 0))
	assert.Equal(t, int32(255), grayLevel(255, 255, 255))
	assert.Equal(t, int32(76), grayLevel(255, 0, 0))
	assert.Equal(t, int32(128), grayLevel(128, 128, 128))
}

func TestCenterRegion(t *testing.T) {
	t.Parallel()

	y1, y2, x1, x2 := centerRegion(300, 300)
	assert.Equal(t, [4]int{100, 200, 100, 200}, [4]int{y1, y2, x1, x2})

	y1, y2, x1, x2 = centerRegion(480, 640)
	assert.Equal(t, [4]int{160, 320, 240, 400}, [4]int{y1, y2, x1, x2})

	// a side of one pixel collapses to an empty region
	y1, y2, _, _ = centerRegion(2, 50)
	assert.Equal(t, y1, y2)
}

func TestReflect101(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 2, reflect101(2, 5))
	assert.Equal(t, 0, reflect101(-1, 1))
	assert.Equal(t, 0, reflect101(1, 1))
}

func TestExtractPhotometrics_VerticalEdge(t *testing.T) {
	t.Parallel()

	img := solidImage(10, 10, black)
	fillRect(img, image.Rect(5, 0, 10, 10), white)

	p := extractPhotometrics(mustFrame(t, img), DefaultScoringConfig().Pixels)

	// columns 4 and 5 straddle the edge
	assert.InDelta(t, 0.2, p.gradientRatio, 1e-12)
	assert.InDelta(t, 0.5, p.brightRatio, 1e-12)
	assert.InDelta(t, 0.5, p.extremeRatio, 1e-12)
}

func TestExtractPhotometrics_BrightButNotExtreme(t *testing.T) {
	t.Parallel()

	img := solidImage(9, 9, colorNRGBA(220, 220, 220))
	p := extractPhotometrics(mustFrame(t, img), DefaultScoringConfig().Pixels)

	assert.InDelta(t, 1.0, p.brightRatio, 1e-12)
	assert.Zero(t, p.extremeRatio)
	assert.Zero(t, p.gradientRatio)
	assert.InDelta(t, 1.0, p.centerRatio, 1e-12)
}

func TestExtractPhotometrics_SaturatedColourIsNotBright(t *testing.T) {
	t.Parallel()

	img := solidImage(12, 12, colorNRGBA(255, 40, 40))
	p := extractPhotometrics(mustFrame(t, img), DefaultScoringConfig().Pixels)

	assert.Zero(t, p.brightRatio)
	assert.Zero(t, p.extremeRatio)
}

func TestFuse_ClampsAndWeights(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()
	scores, composite := fuse(
		photometrics{brightRatio: 0.5, extremeRatio: 0.5, gradientRatio: 0.5, centerRatio: 0.5},
		objectCues{raw: 3},
		cfg.Scales, cfg.Weights,
	)

	assert.Equal(t, SignalScores{Intensity: 1, HSV: 1, Gradient: 1, CenterFocus: 1, YOLOObjects: 1}, scores)
	assert.InDelta(t, 1.0, composite, 1e-12)

	_, composite = fuse(photometrics{gradientRatio: 0.1}, objectCues{}, cfg.Scales, cfg.Weights)
	assert.InDelta(t, 0.04, composite, 1e-12)

	_, composite = fuse(photometrics{brightRatio: math.NaN()}, objectCues{}, cfg.Scales, cfg.Weights)
	assert.True(t, math.IsNaN(composite))
}

func TestRound(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.123, Round(0.12345, 3), 1e-15)
	// 0.12345 sits just above the tie even though 0.12345*1e4 == 1234.5
	assert.InDelta(t, 0.1235, Round(0.12345, 4), 1e-15)
	assert.InDelta(t, 0.5, Round(0.4999999, 3), 1e-15)
	// exact binary ties go to even
	assert.Equal(t, 0.0312, Round(1.0/32, 4))
	assert.Equal(t, 0.062, Round(0.0625, 3))
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, 4.0, Round(3.5, 0))
	for _, v := range []float64{0.1, 0.333, 0.6667, 0.0001, 1} {
		assert.Equal(t, Round(v, 3), Round(Round(v, 3), 3))
	}
}

package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterboxImage_Wide(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	canvas, lb := letterboxImage(src, 64)

	assert.Equal(t, image.Rect(0, 0, 64, 64), canvas.Bounds())
	assert.InDelta(t, 0.32, lb.scale, 1e-12)
	assert.Equal(t, 0, lb.padX)
	assert.Equal(t, 16, lb.padY)

	// padding rows are gray, content rows are white
	assert.Equal(t, color.NRGBA{R: 114, G: 114, B: 114, A: 255}, canvas.NRGBAAt(10, 5))
	assert.Equal(t, color.NRGBA{R: 114, G: 114, B: 114, A: 255}, canvas.NRGBAAt(10, 60))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, canvas.NRGBAAt(10, 32))
}

func TestLetterboxImage_ExactSize(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	src.SetNRGBA(3, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	canvas, lb := letterboxImage(src, 32)
	assert.InDelta(t, 1.0, lb.scale, 1e-12)
	assert.Zero(t, lb.padX)
	assert.Zero(t, lb.padY)
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, canvas.NRGBAAt(3, 4))
}

func TestLetterbox_ToFrame(t *testing.T) {
	t.Parallel()

	lb := letterbox{scale: 0.5, padX: 0, padY: 80, srcW: 1280, srcH: 960}

	r := lb.toFrame(100, 180, 200, 280)
	assert.Equal(t, image.Rect(200, 200, 400, 400), r)

	// boxes reaching into the padding are clipped to the frame
	r = lb.toFrame(-10, 0, 700, 700)
	assert.Equal(t, image.Rect(0, 0, 1280, 960), r)
}

func TestFillTensor(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 102, A: 255})

	dst := make([]float32, 6)
	fillTensor(dst, img)

	require.Len(t, dst, 6)
	assert.InDeltaSlice(t, []float32{1, 0, 0.2, 0, 1, 0.4}, dst, 1e-6)
}

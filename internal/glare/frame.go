// Package glare scores camera frames for visibility-degrading glare.
//
// An Analyzer fuses detector evidence (cars, traffic lights and stop signs as
// reflective proxies) with pixel statistics of the frame: bright and
// near-white area, gradient activity and brightness at the frame centre. The
// weighted composite maps to one of five alert levels.
//
// Analysis is stateless; one call sees one frame.
package glare

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/visorax/visorax-go/internal/errors"
)

// ErrEmptyFrame is returned for nil frames and frames with zero area.
var ErrEmptyFrame = errors.NewStd("empty frame")

// Frame is an immutable RGB raster. Alpha is ignored.
type Frame struct {
	img *image.NRGBA
}

// NewFrame copies img into a frame. The caller keeps ownership of img.
func NewFrame(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, ErrEmptyFrame
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyFrame
	}

	// Clone always returns an NRGBA anchored at the origin
	return &Frame{img: imaging.Clone(img)}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.img.Rect.Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.img.Rect.Dy() }

// Bounds returns the frame rectangle, always anchored at (0,0).
func (f *Frame) Bounds() image.Rectangle { return f.img.Rect }

// Image exposes the pixels for detectors. Callers must treat it as read-only.
func (f *Frame) Image() image.Image { return f.img }

// rgb returns the colour of pixel (x, y) without bounds checks.
func (f *Frame) rgb(x, y int) (r, g, b uint8) {
	i := y*f.img.Stride + x*4
	p := f.img.Pix[i : i+3 : i+3]
	return p[0], p[1], p[2]
}

func (f *Frame) empty() bool {
	return f == nil || f.img == nil || f.img.Rect.Empty()
}

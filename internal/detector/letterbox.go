package detector

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// letterboxFill is the gray used to pad letterboxed inputs, as in training
const letterboxFill = 114

// letterbox records how a frame was fitted into the square model input
type letterbox struct {
	scale      float64
	padX, padY int
	srcW, srcH int
}

// letterboxImage resizes img to fit a size x size square, keeping aspect
// ratio, and centres it on a gray canvas.
func letterboxImage(img image.Image, size int) (*image.NRGBA, letterbox) {
	b := img.Bounds()
	lb := letterbox{srcW: b.Dx(), srcH: b.Dy()}
	lb.scale = math.Min(float64(size)/float64(lb.srcW), float64(size)/float64(lb.srcH))

	newW := max(1, int(math.Round(float64(lb.srcW)*lb.scale)))
	newH := max(1, int(math.Round(float64(lb.srcH)*lb.scale)))
	lb.padX = int(math.Round(float64(size-newW)/2 - 0.1))
	lb.padY = int(math.Round(float64(size-newH)/2 - 0.1))

	canvas := imaging.New(size, size, color.NRGBA{R: letterboxFill, G: letterboxFill, B: letterboxFill, A: 255})
	var resized image.Image = img
	if newW != lb.srcW || newH != lb.srcH {
		resized = imaging.Resize(img, newW, newH, imaging.Linear)
	}
	return imaging.Paste(canvas, resized, image.Pt(lb.padX, lb.padY)), lb
}

// fillTensor writes img as NHWC float32 RGB scaled to [0,1]
func fillTensor(dst []float32, img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	i := 0
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			dst[i] = float32(row[x]) / 255
			dst[i+1] = float32(row[x+1]) / 255
			dst[i+2] = float32(row[x+2]) / 255
			i += 3
		}
	}
}

// toFrame maps a box from model input coordinates back to the source frame
func (lb letterbox) toFrame(x1, y1, x2, y2 float64) image.Rectangle {
	conv := func(v float64, pad, limit int) int {
		v = (v - float64(pad)) / lb.scale
		return int(math.Round(math.Max(0, math.Min(v, float64(limit)))))
	}
	return image.Rect(
		conv(x1, lb.padX, lb.srcW), conv(y1, lb.padY, lb.srcH),
		conv(x2, lb.padX, lb.srcW), conv(y2, lb.padY, lb.srcH),
	)
}

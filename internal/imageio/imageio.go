// Package imageio decodes uploaded images into frames for analysis.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp" // register decoder
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/glare"
)

// ErrInvalidImage is returned for empty input and bytes no registered
// decoder understands.
var ErrInvalidImage = errors.NewStd("invalid image format")

// ErrImageTooLarge is joined with ErrInvalidImage when the declared
// dimensions exceed the pixel limit.
var ErrImageTooLarge = errors.NewStd("image dimensions exceed pixel limit")

// DefaultMaxPixels bounds the decoded area when no limit is given. An 8K
// frame fits.
const DefaultMaxPixels = 1 << 26

// Info describes a decoded image. Width and height are after orientation.
type Info struct {
	Format      string
	Width       int
	Height      int
	Orientation int
	Size        int
}

// Dimensions renders the size as "WxH"
func (i Info) Dimensions() string {
	return strconv.Itoa(i.Width) + "x" + strconv.Itoa(i.Height)
}

// Decode decodes data into a frame. JPEG EXIF orientation is applied so the
// frame is upright. Images whose header declares more than maxPixels pixels
// are rejected before any pixel data is decoded; maxPixels <= 0 means
// DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (*glare.Frame, Info, error) {
	info := Info{Size: len(data), Orientation: 1}
	if len(data) == 0 {
		return nil, info, invalidImage(nil, "", 0)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, info, invalidImage(err, "", int64(len(data)))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		cause := fmt.Errorf("%w: %dx%d, limit %d", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
		return nil, info, invalidImage(cause, format, int64(len(data)))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, info, invalidImage(err, "", int64(len(data)))
	}
	info.Format = format

	if format == "jpeg" || format == "tiff" {
		info.Orientation = readOrientation(data)
		img = applyOrientation(img, info.Orientation)
	}

	frame, err := glare.NewFrame(img)
	if err != nil {
		return nil, info, invalidImage(err, format, int64(len(data)))
	}

	info.Width = frame.Width()
	info.Height = frame.Height()
	return frame, info, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when the image has
// no usable EXIF data.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation transforms img so that orientation 1 results
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func invalidImage(cause error, format string, size int64) error {
	err := ErrInvalidImage
	if cause != nil {
		err = errors.Join(ErrInvalidImage, cause)
	}
	return errors.New(err).
		Component("imageio").
		Category(errors.CategoryImageDecode).
		ImageContext(format, size).
		Build()
}

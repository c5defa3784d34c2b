package imageio

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/visorax/visorax-go/internal/errors"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// withOrientation inserts a minimal EXIF APP1 segment carrying only the
// orientation tag directly after the JPEG SOI marker.
func withOrientation(jpg []byte, orientation uint16) []byte {
	var tiffData bytes.Buffer
	tiffData.WriteString("MM\x00\x2a")
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(8))      // IFD0 offset
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(1))      // entry count
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(0x0112)) // orientation
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(3))      // SHORT
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(1))      // count
	_ = binary.Write(&tiffData, binary.BigEndian, orientation)    // value
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(0))      // padding
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(0))      // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiffData.Bytes()...)

	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

func TestDecode_Formats(t *testing.T) {
	t.Parallel()

	img := testImage(24, 16)

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, img, nil) },
		"gif":  func(b *bytes.Buffer) error { return gif.Encode(b, img, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) },
	}

	for format, encode := range encoders {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, encode(&buf))

			frame, info, err := Decode(buf.Bytes(), 0)
			require.NoError(t, err)
			require.NotNil(t, frame)

			assert.Equal(t, format, info.Format)
			assert.Equal(t, 24, info.Width)
			assert.Equal(t, 16, info.Height)
			assert.Equal(t, "24x16", info.Dimensions())
			assert.Equal(t, 1, info.Orientation)
			assert.Equal(t, buf.Len(), info.Size)
			assert.Equal(t, 24, frame.Width())
		})
	}
}

func TestDecode_PNGPixelsPreserved(t *testing.T) {
	t.Parallel()

	img := testImage(4, 4)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	frame, _, err := Decode(buf.Bytes(), 0)
	require.NoError(t, err)

	got, ok := frame.Image().(*image.NRGBA)
	require.True(t, ok)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestDecode_EXIFOrientation(t *testing.T) {
	t.Parallel()

	jpg := encodeJPEG(t, testImage(32, 16))

	tests := []struct {
		orientation   int
		width, height int
	}{
		{1, 32, 16},
		{3, 32, 16},
		{6, 16, 32},
		{8, 16, 32},
		{5, 16, 32},
	}

	for _, tt := range tests {
		frame, info, err := Decode(withOrientation(jpg, uint16(tt.orientation)), 0)
		require.NoError(t, err, "orientation %d", tt.orientation)

		assert.Equal(t, tt.orientation, info.Orientation)
		assert.Equal(t, tt.width, frame.Width(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.height, frame.Height(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.width, info.Width)
	}
}

func TestDecode_NoEXIF(t *testing.T) {
	t.Parallel()

	_, info, err := Decode(encodeJPEG(t, testImage(8, 8)), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Orientation)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("this is not an image"),
		"truncated": encodeJPEG(t, testImage(16, 16))[:20],
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			frame, _, err := Decode(data, 0)
			require.Error(t, err)
			assert.Nil(t, frame)
			require.ErrorIs(t, err, ErrInvalidImage)
			assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
		})
	}
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG and fixes up the
// chunk checksum. Only the header changes, so the file stays tiny.
func withDeclaredSize(t *testing.T, pngData []byte, width, height uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(pngData[12:16]))

	out := bytes.Clone(pngData)
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_DeclaredSizeOverLimit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	data := withDeclaredSize(t, buf.Bytes(), 30000, 30000)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 30000, cfg.Width)

	frame, info, err := Decode(data, 0)
	require.Error(t, err)
	assert.Nil(t, frame)
	require.ErrorIs(t, err, ErrInvalidImage)
	require.ErrorIs(t, err, ErrImageTooLarge)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Equal(t, 0, info.Width)
}

func TestDecode_MaxPixels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(24, 16)))

	_, _, err := Decode(buf.Bytes(), 24*16)
	require.NoError(t, err)

	_, _, err = Decode(buf.Bytes(), 24*16-1)
	require.ErrorIs(t, err, ErrImageTooLarge)
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestApplyOrientation(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	flipped := applyOrientation(img, 2)
	r, _, _, _ := flipped.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	// orientation 6 means the camera was rotated; the result is upright and tall
	rotated := applyOrientation(img, 6)
	assert.Equal(t, image.Rect(0, 0, 1, 2), rotated.Bounds())
	r, _, _, _ = rotated.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	assert.Same(t, image.Image(img), applyOrientation(img, 1))
}

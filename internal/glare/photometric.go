package glare

import "math"

// Fixed-point constants of the 8-bit colour conversions, so pixel tests
// agree with frames scored by OpenCV.
const (
	grayShift = 14
	grayR     = 4899
	grayG     = 9617
	grayB     = 1868

	hsvShift = 12
)

// satDiv[v] = round((255 << hsvShift) / v), 0 for v = 0
var satDiv = func() [256]int32 {
	var t [256]int32
	for v := 1; v < 256; v++ {
		t[v] = int32(math.RoundToEven(float64(255<<hsvShift) / float64(v)))
	}
	return t
}()

// photometrics are the raw pixel ratios of one frame, each in [0,1]
type photometrics struct {
	brightRatio   float64
	extremeRatio  float64
	gradientRatio float64
	centerRatio   float64
}

// hsvValueSaturation returns the HSV V and S channels of an 8-bit RGB pixel.
func hsvValueSaturation(r, g, b uint8) (v, s int32) {
	v = int32(max(r, g, b))
	diff := v - int32(min(r, g, b))
	s = (diff*satDiv[v] + 1<<(hsvShift-1)) >> hsvShift
	return v, s
}

func grayLevel(r, g, b uint8) int32 {
	return (grayR*int32(r) + grayG*int32(g) + grayB*int32(b) + 1<<(grayShift-1)) >> grayShift
}

// centerRegion returns the centre square [y1,y2) x [x1,x2). Side is a third
// of the shorter dimension; tiny frames yield an empty region.
func centerRegion(h, w int) (y1, y2, x1, x2 int) {
	cy, cx := h/2, w/2
	cs := max(1, min(h, w)/3)
	y1, y2 = max(0, cy-cs/2), min(h, cy+cs/2)
	x1, x2 = max(0, cx-cs/2), min(w, cx+cs/2)
	return y1, y2, x1, x2
}

// extractPhotometrics computes the four pixel ratios in two passes: colour
// tests and the gray plane, then Sobel gradients over the gray plane.
func extractPhotometrics(f *Frame, p PixelThresholds) photometrics {
	w, h := f.Width(), f.Height()
	total := float64(max(1, w*h))

	y1, y2, x1, x2 := centerRegion(h, w)

	brightV, brightS := int32(p.BrightValueMin), int32(p.BrightSaturationMax)
	extremeV, extremeS := int32(p.ExtremeValueMin), int32(p.ExtremeSaturationMax)

	gray := make([]int32, w*h)
	var bright, extreme, centerBright int

	for y := range h {
		row := gray[y*w : (y+1)*w]
		inCenterRow := y >= y1 && y < y2
		for x := range w {
			r, g, b := f.rgb(x, y)
			v, s := hsvValueSaturation(r, g, b)

			if v >= brightV && s <= brightS {
				bright++
				if inCenterRow && x >= x1 && x < x2 {
					centerBright++
				}
			}
			if v >= extremeV && s <= extremeS {
				extreme++
			}
			row[x] = grayLevel(r, g, b)
		}
	}

	var centerRatio float64
	if area := (y2 - y1) * (x2 - x1); area > 0 {
		centerRatio = float64(centerBright) / float64(area)
	}

	return photometrics{
		brightRatio:   float64(bright) / total,
		extremeRatio:  float64(extreme) / total,
		gradientRatio: float64(countGradientActive(gray, w, h, p.GradientMagnitudeMin)) / total,
		centerRatio:   centerRatio,
	}
}

// reflect101 maps an index one step outside [0,n) back inside, mirroring
// without repeating the edge pixel (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	switch {
	case n == 1:
		return 0
	case i < 0:
		return -i
	case i >= n:
		return 2*n - 2 - i
	}
	return i
}

// countGradientActive counts pixels whose 3x3 Sobel magnitude exceeds minMagnitude.
func countGradientActive(gray []int32, w, h int, minMagnitude float64) int {
	limit := minMagnitude * minMagnitude
	count := 0

	for y := range h {
		up := gray[reflect101(y-1, h)*w:][:w]
		mid := gray[y*w:][:w]
		down := gray[reflect101(y+1, h)*w:][:w]

		for x := range w {
			l, r := reflect101(x-1, w), reflect101(x+1, w)

			gx := (up[r] - up[l]) + 2*(mid[r]-mid[l]) + (down[r] - down[l])
			gy := (down[l] + 2*down[x] + down[r]) - (up[l] + 2*up[x] + up[r])

			if float64(gx*gx+gy*gy) > limit {
				count++
			}
		}
	}

	return count
}

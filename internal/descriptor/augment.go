package descriptor

import (
	"image"
	"image/color"
)

// Variants synthesizes the deterministic training variants of one accepted
// face region: the original, a horizontal mirror, and two brightness-scaled
// copies. Each variant is pushed through the quality gate and extractor
// independently by the caller; a variant that fails extraction is dropped.
func Variants(region image.Image) []image.Image {
	return []image.Image{
		region,
		mirrorHorizontal(region),
		scaleBrightness(region, 1.2),
		scaleBrightness(region, 0.8),
	}
}

// mirrorHorizontal flips an image left to right.
func mirrorHorizontal(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst.Set(width-1-x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

// scaleBrightness multiplies every channel by gain, clamping at 255.
func scaleBrightness(img image.Image, gain float64) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dst.Set(x, y, color.RGBA{
				R: clampChannel(float64(r>>8) * gain),
				G: clampChannel(float64(g>>8) * gain),
				B: clampChannel(float64(b>>8) * gain),
				A: uint8(a >> 8),
			})
		}
	}
	return dst
}

func clampChannel(v float64) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

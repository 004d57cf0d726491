package descriptor

import (
	"image"
	"image/color"
	"testing"

	"github.com/minhvu/faceclock/internal/config"
)

func testDescriptorConfig() config.DescriptorConfig {
	return config.DescriptorConfig{
		ImageSize:    96,
		CellSize:     8,
		BlockSize:    2,
		Orientations: 9,
	}
}

func testQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		MinRegionSize: 10,
		MinBrightness: 50,
		MinSharpness:  100,
	}
}

// solidImage creates a uniform image of the given color.
func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// checkerImage creates a high-contrast checkerboard, which is both bright
// and sharp enough to pass the quality gate.
func checkerImage(width, height, square int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/square+y/square)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.RGBA{40, 40, 40, 255})
			}
		}
	}
	return img
}

// gradientImage creates a horizontal luminance ramp.
func gradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / width)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestQualityGateRejectsSmallRegions(t *testing.T) {
	gate := NewQualityGate(testQualityConfig())

	report := gate.Check(solidImage(5, 5, color.White))
	if report.OK {
		t.Error("5x5 region should be rejected")
	}
	if report.Reason != "region too small" {
		t.Errorf("unexpected reason: %q", report.Reason)
	}
}

func TestQualityGateRejectsDarkRegions(t *testing.T) {
	gate := NewQualityGate(testQualityConfig())

	report := gate.Check(solidImage(50, 50, color.RGBA{10, 10, 10, 255}))
	if report.OK {
		t.Errorf("dark region should be rejected, brightness=%v", report.Brightness)
	}
	if report.Reason != "too dark" {
		t.Errorf("unexpected reason: %q", report.Reason)
	}
}

func TestQualityGateRejectsFlatRegions(t *testing.T) {
	gate := NewQualityGate(testQualityConfig())

	// Bright but completely featureless: zero edge response.
	report := gate.Check(solidImage(50, 50, color.White))
	if report.OK {
		t.Errorf("flat region should be rejected, sharpness=%v", report.Sharpness)
	}
	if report.Reason != "too blurry" {
		t.Errorf("unexpected reason: %q", report.Reason)
	}
}

func TestQualityGateAcceptsSharpBrightRegions(t *testing.T) {
	gate := NewQualityGate(testQualityConfig())

	report := gate.Check(checkerImage(50, 50, 2))
	if !report.OK {
		t.Errorf("checkerboard should pass, report=%+v", report)
	}
}

func TestExtractorDim(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DescriptorConfig
		want int
	}{
		{"default geometry", testDescriptorConfig(), 11 * 11 * 4 * 9},
		{"coarse cells", config.DescriptorConfig{ImageSize: 64, CellSize: 16, BlockSize: 2, Orientations: 9}, 3 * 3 * 4 * 9},
		{"single block", config.DescriptorConfig{ImageSize: 16, CellSize: 8, BlockSize: 2, Orientations: 9}, 1 * 1 * 4 * 9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExtractor(tc.cfg)
			if got := e.Dim(); got != tc.want {
				t.Errorf("Dim() = %d; want %d", got, tc.want)
			}
		})
	}
}

func TestExtractReturnsFixedLength(t *testing.T) {
	e := NewExtractor(testDescriptorConfig())

	// Input size must not matter: everything is resized to the square first.
	for _, size := range []int{20, 96, 300} {
		features, err := e.Extract(checkerImage(size, size, 4))
		if err != nil {
			t.Fatalf("Extract failed for %dx%d: %v", size, size, err)
		}
		if len(features) != e.Dim() {
			t.Errorf("descriptor length = %d; want %d", len(features), e.Dim())
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(testDescriptorConfig())
	img := gradientImage(80, 80)

	first, err := e.Extract(img)
	if err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	second, err := e.Extract(img)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("descriptor differs at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestExtractRejectsMalformedRegions(t *testing.T) {
	e := NewExtractor(testDescriptorConfig())

	if _, err := e.Extract(nil); err == nil {
		t.Error("nil region should fail")
	}
	if _, err := e.Extract(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("empty region should fail")
	}
}

func TestVariantsCount(t *testing.T) {
	variants := Variants(checkerImage(40, 40, 4))
	if len(variants) != 4 {
		t.Fatalf("expected 4 variants, got %d", len(variants))
	}
}

func TestVariantsDeterministic(t *testing.T) {
	img := gradientImage(40, 40)
	e := NewExtractor(testDescriptorConfig())

	a := Variants(img)
	b := Variants(img)
	for i := range a {
		fa, err := e.Extract(a[i])
		if err != nil {
			t.Fatalf("variant %d extract failed: %v", i, err)
		}
		fb, err := e.Extract(b[i])
		if err != nil {
			t.Fatalf("variant %d extract failed: %v", i, err)
		}
		for j := range fa {
			if fa[j] != fb[j] {
				t.Fatalf("variant %d not deterministic at %d", i, j)
			}
		}
	}
}

func TestMirrorReversesGradient(t *testing.T) {
	img := gradientImage(40, 40)
	mirrored := mirrorHorizontal(img)

	// Leftmost column of the mirror equals the rightmost of the original.
	or, _, _, _ := img.At(39, 0).RGBA()
	mr, _, _, _ := mirrored.At(0, 0).RGBA()
	if or != mr {
		t.Errorf("mirror should swap columns: %v vs %v", or, mr)
	}
}

func TestScaleBrightnessClamps(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{250, 250, 250, 255})
	brighter := scaleBrightness(img, 1.2)

	r, _, _, _ := brighter.At(5, 5).RGBA()
	if uint8(r>>8) != 255 {
		t.Errorf("channel should clamp at 255, got %d", r>>8)
	}
}

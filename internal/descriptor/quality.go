package descriptor

import (
	"image"

	"github.com/minhvu/faceclock/internal/config"
)

// QualityGate decides whether a face region carries enough signal to be
// worth keeping. Dark, blurry or tiny regions pollute the training corpus
// and trigger false recognitions, so they are rejected up front.
type QualityGate struct {
	minRegionSize int
	minBrightness float64
	minSharpness  float64
}

// QualityReport carries the measured values alongside the verdict so callers
// can log why a frame was dropped.
type QualityReport struct {
	Brightness float64
	Sharpness  float64
	Width      int
	Height     int
	OK         bool
	Reason     string
}

// NewQualityGate builds a gate from config thresholds.
func NewQualityGate(cfg config.QualityConfig) *QualityGate {
	return &QualityGate{
		minRegionSize: cfg.MinRegionSize,
		minBrightness: cfg.MinBrightness,
		minSharpness:  cfg.MinSharpness,
	}
}

// Check evaluates one face region. Pure predicate, no side effects.
func (q *QualityGate) Check(region image.Image) QualityReport {
	bounds := region.Bounds()
	report := QualityReport{Width: bounds.Dx(), Height: bounds.Dy()}

	if report.Width < q.minRegionSize || report.Height < q.minRegionSize {
		report.Reason = "region too small"
		return report
	}

	gray := toGrayscale(region)
	report.Brightness = meanIntensity(gray)
	report.Sharpness = laplacianVariance(gray)

	switch {
	case report.Brightness <= q.minBrightness:
		report.Reason = "too dark"
	case report.Sharpness <= q.minSharpness:
		report.Reason = "too blurry"
	default:
		report.OK = true
	}
	return report
}

// meanIntensity returns the mean grayscale value.
func meanIntensity(gray [][]float64) float64 {
	var sum float64
	var count int
	for _, row := range gray {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// laplacianVariance measures sharpness as the variance of a 4-neighbor
// Laplacian response. Blurred and motion-smeared regions have a flat edge
// response and score low.
func laplacianVariance(gray [][]float64) float64 {
	height := len(gray)
	if height < 3 {
		return 0
	}
	width := len(gray[0])
	if width < 3 {
		return 0
	}

	responses := make([]float64, 0, (height-2)*(width-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			lap := gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1] - 4*gray[y][x]
			responses = append(responses, lap)
		}
	}

	var mean float64
	for _, r := range responses {
		mean += r
	}
	mean /= float64(len(responses))

	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

// Package descriptor turns cropped face regions into fixed-length
// gradient-histogram feature vectors and gates out low-quality regions.
package descriptor

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/minhvu/faceclock/internal/config"
)

// ErrExtractionFailed marks a region the extractor could not process at all.
// Callers skip the sample and move on.
var ErrExtractionFailed = errors.New("descriptor extraction failed")

// SizeMismatchError reports a descriptor whose width differs from the
// configured dimensionality. It is never silently coerced: a truncated or
// padded vector would corrupt every downstream invariant.
type SizeMismatchError struct {
	Got  int
	Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("feature size mismatch: got %d, want %d", e.Got, e.Want)
}

// Extractor computes histogram-of-oriented-gradients descriptors over a
// normalized square face region.
type Extractor struct {
	imageSize    int
	cellSize     int
	blockSize    int
	orientations int
}

// NewExtractor builds an extractor from config geometry.
func NewExtractor(cfg config.DescriptorConfig) *Extractor {
	return &Extractor{
		imageSize:    cfg.ImageSize,
		cellSize:     cfg.CellSize,
		blockSize:    cfg.BlockSize,
		orientations: cfg.Orientations,
	}
}

// cellsPerSide returns how many full histogram cells fit along one axis.
func (e *Extractor) cellsPerSide() int {
	return e.imageSize / e.cellSize
}

// blocksPerSide returns how many sliding normalization blocks fit along one
// axis (stride of one cell).
func (e *Extractor) blocksPerSide() int {
	return e.cellsPerSide() - e.blockSize + 1
}

// Dim returns the descriptor width implied by the geometry. Every descriptor
// produced by this extractor has exactly this length.
func (e *Extractor) Dim() int {
	b := e.blocksPerSide()
	return b * b * e.blockSize * e.blockSize * e.orientations
}

// Extract resizes the region to the normalization square, converts it to a
// single intensity channel and computes the gradient-histogram descriptor.
func (e *Extractor) Extract(region image.Image) ([]float32, error) {
	if region == nil {
		return nil, fmt.Errorf("%w: nil region", ErrExtractionFailed)
	}
	bounds := region.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty region %v", ErrExtractionFailed, bounds)
	}

	resized := resizeImage(region, e.imageSize, e.imageSize)
	gray := toGrayscale(resized)

	magnitude, orientation := gradients(gray)
	cells := e.cellHistograms(magnitude, orientation)
	features := e.normalizeBlocks(cells)

	if len(features) != e.Dim() {
		return nil, &SizeMismatchError{Got: len(features), Want: e.Dim()}
	}
	return features, nil
}

// gradients computes per-pixel gradient magnitude and unsigned orientation
// (0-180 degrees) using central differences.
func gradients(gray [][]float64) (magnitude, orientation [][]float64) {
	height := len(gray)
	width := len(gray[0])

	magnitude = make([][]float64, height)
	orientation = make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		orientation[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			switch {
			case x == 0:
				gx = gray[y][x+1] - gray[y][x]
			case x == width-1:
				gx = gray[y][x] - gray[y][x-1]
			default:
				gx = gray[y][x+1] - gray[y][x-1]
			}
			switch {
			case y == 0:
				gy = gray[y+1][x] - gray[y][x]
			case y == height-1:
				gy = gray[y][x] - gray[y-1][x]
			default:
				gy = gray[y+1][x] - gray[y-1][x]
			}

			magnitude[y][x] = math.Hypot(gx, gy)
			angle := math.Atan2(gy, gx) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			if angle >= 180 {
				angle -= 180
			}
			orientation[y][x] = angle
		}
	}
	return magnitude, orientation
}

// cellHistograms accumulates orientation histograms per cell. Each gradient
// splits its magnitude between the two nearest orientation bins.
func (e *Extractor) cellHistograms(magnitude, orientation [][]float64) [][][]float64 {
	cells := e.cellsPerSide()
	binWidth := 180.0 / float64(e.orientations)

	hist := make([][][]float64, cells)
	for cy := 0; cy < cells; cy++ {
		hist[cy] = make([][]float64, cells)
		for cx := 0; cx < cells; cx++ {
			hist[cy][cx] = make([]float64, e.orientations)
		}
	}

	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			for dy := 0; dy < e.cellSize; dy++ {
				for dx := 0; dx < e.cellSize; dx++ {
					y := cy*e.cellSize + dy
					x := cx*e.cellSize + dx
					mag := magnitude[y][x]
					if mag == 0 {
						continue
					}
					pos := orientation[y][x]/binWidth - 0.5
					lo := int(math.Floor(pos))
					frac := pos - float64(lo)
					hi := lo + 1
					if lo < 0 {
						lo += e.orientations
					}
					if hi >= e.orientations {
						hi -= e.orientations
					}
					hist[cy][cx][lo] += mag * (1 - frac)
					hist[cy][cx][hi] += mag * frac
				}
			}
		}
	}
	return hist
}

// normalizeBlocks concatenates L2-normalized sliding blocks of cells into
// the final descriptor.
func (e *Extractor) normalizeBlocks(cells [][][]float64) []float32 {
	blocks := e.blocksPerSide()
	features := make([]float32, 0, e.Dim())

	for by := 0; by < blocks; by++ {
		for bx := 0; bx < blocks; bx++ {
			block := make([]float64, 0, e.blockSize*e.blockSize*e.orientations)
			for dy := 0; dy < e.blockSize; dy++ {
				for dx := 0; dx < e.blockSize; dx++ {
					block = append(block, cells[by+dy][bx+dx]...)
				}
			}

			var norm float64
			for _, v := range block {
				norm += v * v
			}
			norm = math.Sqrt(norm) + 1e-6

			for _, v := range block {
				features = append(features, float32(v/norm))
			}
		}
	}
	return features
}

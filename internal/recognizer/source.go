package recognizer

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
)

// DirFrameSource yields the image files of a directory in name order. It
// backs the CLI flows where frames were captured ahead of time; a live
// camera implements the same FrameSource contract.
type DirFrameSource struct {
	paths []string
	pos   int
}

// NewDirFrameSource scans a directory for image files.
func NewDirFrameSource(dir string) (*DirFrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	return &DirFrameSource{paths: paths}, nil
}

// Next decodes the next frame, or returns io.EOF at end of stream.
func (s *DirFrameSource) Next() (image.Image, error) {
	if s.pos >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.pos]
	s.pos++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}

// FullFrameDetector treats the whole frame as one face region. It serves
// pipelines whose frames are already cropped to a face by an upstream
// detector.
type FullFrameDetector struct{}

// Detect returns the frame bounds as the single region.
func (FullFrameDetector) Detect(frame image.Image) []image.Rectangle {
	return []image.Rectangle{frame.Bounds()}
}

// CenterCropDetector returns a centered square region covering the given
// fraction of the shorter frame side. A cheap stand-in for a real face
// localizer when captures are framed head-and-shoulders.
type CenterCropDetector struct {
	Fraction float64 // (0, 1]; 0 defaults to 0.6
}

// Detect returns the centered square.
func (d CenterCropDetector) Detect(frame image.Image) []image.Rectangle {
	fraction := d.Fraction
	if fraction <= 0 || fraction > 1 {
		fraction = 0.6
	}

	bounds := frame.Bounds()
	short := bounds.Dx()
	if bounds.Dy() < short {
		short = bounds.Dy()
	}
	side := int(float64(short) * fraction)
	if side < 1 {
		return nil
	}

	cx := bounds.Min.X + bounds.Dx()/2
	cy := bounds.Min.Y + bounds.Dy()/2
	return []image.Rectangle{image.Rect(cx-side/2, cy-side/2, cx+side/2, cy+side/2)}
}

// Package collector runs the training data collection pipeline: frames are
// quality-gated, augmented, extracted and accumulated into the corpus.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/descriptor"
	"github.com/minhvu/faceclock/internal/logger"
	"github.com/minhvu/faceclock/internal/recognizer"
)

// Options tunes one collection run.
type Options struct {
	TargetSamples int  // stop once this many descriptors are collected
	ShowProgress  bool // render a terminal progress bar
}

// Result summarizes one collection run.
type Result struct {
	Collected         int            `json:"collected"`
	FramesRead        int            `json:"frames_read"`
	SkippedQuality    int            `json:"skipped_quality"`
	SkippedExtraction int            `json:"skipped_extraction"`
	Corpus            corpus.Summary `json:"corpus"`
}

// Collector accumulates labeled descriptors from a frame stream.
type Collector struct {
	quality   *descriptor.QualityGate
	extractor *descriptor.Extractor
	store     *corpus.Store
}

// New wires a collector.
func New(quality *descriptor.QualityGate, extractor *descriptor.Extractor, store *corpus.Store) *Collector {
	return &Collector{quality: quality, extractor: extractor, store: store}
}

// Collect pulls frames until the target sample count is reached or the
// stream ends, then merges the collected pairs into the persisted corpus.
// Each accepted face region contributes its augmented variants; variants
// that fail extraction are dropped, not retried.
func (c *Collector) Collect(ctx context.Context, frames recognizer.FrameSource, det recognizer.Detector, identity string, opts Options) (*Result, error) {
	if identity == "" {
		return nil, errors.New("identity is required")
	}
	if opts.TargetSamples <= 0 {
		opts.TargetSamples = 40
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(opts.TargetSamples), "collecting")
	}

	result := &Result{}
	var descriptors [][]float32
	var labels []string

	for len(descriptors) < opts.TargetSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame: %w", err)
		}
		result.FramesRead++

		for _, rect := range det.Detect(frame) {
			region := recognizer.Crop(frame, rect)

			report := c.quality.Check(region)
			if !report.OK {
				result.SkippedQuality++
				logger.L().WithFields(logger.Fields{
					"identity":   identity,
					"reason":     report.Reason,
					"brightness": report.Brightness,
					"sharpness":  report.Sharpness,
				}).Debug("sample rejected by quality gate")
				continue
			}

			for _, variant := range descriptor.Variants(region) {
				if len(descriptors) >= opts.TargetSamples {
					break
				}
				feat, err := c.extractor.Extract(variant)
				if err != nil {
					result.SkippedExtraction++
					continue
				}
				descriptors = append(descriptors, feat)
				labels = append(labels, identity)
				if bar != nil {
					bar.Add(1)
				}
			}
		}
	}

	if len(descriptors) == 0 {
		return nil, errors.New("no usable face samples collected")
	}

	merged, err := c.store.Accumulate(descriptors, labels)
	if err != nil {
		return nil, err
	}

	result.Collected = len(descriptors)
	result.Corpus = merged.Summarize()
	return result, nil
}

// Package corpus maintains the persisted training set: two parallel
// collections of descriptors and identity labels, read and written as a unit.
package corpus

import (
	"errors"
	"fmt"
)

// Validation failures. Schema errors are fatal to the current operation and
// never auto-repaired.
var (
	// ErrCountMismatch means the descriptor and label collections have
	// different lengths.
	ErrCountMismatch = errors.New("descriptor and label counts do not match")

	// ErrSchemaDrift means a persisted corpus was built under a different
	// descriptor configuration and must not be merged with new samples.
	ErrSchemaDrift = errors.New("corpus descriptor width does not match current configuration")

	// ErrInsufficientDiversity is the expected condition during incremental
	// collection: a single-class corpus cannot support a discriminative
	// classifier. Not a schema error.
	ErrInsufficientDiversity = errors.New("corpus needs at least two distinct labels")
)

// Corpus is the full accumulated set of (descriptor, label) training pairs.
// Invariant: len(Descriptors) == len(Labels) and every descriptor has the
// same width.
type Corpus struct {
	Descriptors [][]float32 `json:"descriptors"`
	Labels      []string    `json:"labels"`
}

// Summary is the read-only view exposed to callers deciding whether a
// training run is worthwhile yet.
type Summary struct {
	Samples        int            `json:"samples"`
	DistinctLabels int            `json:"distinct_labels"`
	Width          int            `json:"width"`
	PerLabel       map[string]int `json:"per_label"`
}

// Validate checks the corpus invariants against the expected descriptor
// width.
func (c *Corpus) Validate(width int) error {
	if len(c.Descriptors) != len(c.Labels) {
		return fmt.Errorf("%w: %d descriptors, %d labels",
			ErrCountMismatch, len(c.Descriptors), len(c.Labels))
	}
	for i, d := range c.Descriptors {
		if len(d) != width {
			return fmt.Errorf("%w: sample %d has width %d, want %d",
				ErrSchemaDrift, i, len(d), width)
		}
	}
	return nil
}

// Summarize computes the read-only summary.
func (c *Corpus) Summarize() Summary {
	perLabel := make(map[string]int)
	for _, l := range c.Labels {
		perLabel[l]++
	}

	width := 0
	if len(c.Descriptors) > 0 {
		width = len(c.Descriptors[0])
	}

	return Summary{
		Samples:        len(c.Labels),
		DistinctLabels: len(perLabel),
		Width:          width,
		PerLabel:       perLabel,
	}
}

// CheckDiversity returns ErrInsufficientDiversity unless the corpus holds at
// least two distinct labels.
func (c *Corpus) CheckDiversity() error {
	if c.Summarize().DistinctLabels < 2 {
		return ErrInsufficientDiversity
	}
	return nil
}

// merge appends the new samples after the existing ones, preserving order.
func merge(existing, fresh *Corpus) *Corpus {
	merged := &Corpus{
		Descriptors: make([][]float32, 0, len(existing.Descriptors)+len(fresh.Descriptors)),
		Labels:      make([]string, 0, len(existing.Labels)+len(fresh.Labels)),
	}
	merged.Descriptors = append(merged.Descriptors, existing.Descriptors...)
	merged.Descriptors = append(merged.Descriptors, fresh.Descriptors...)
	merged.Labels = append(merged.Labels, existing.Labels...)
	merged.Labels = append(merged.Labels, fresh.Labels...)
	return merged
}

// Package classifier trains and evaluates identity models over face
// descriptors, and persists the accepted model as a single artifact.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Kind selects a tabular learner family.
type Kind string

// Supported learner families. Adding a family means adding one variant, not
// branching existing code.
const (
	KindKNN    Kind = "knn"    // nearest-neighbor over an HNSW graph
	KindLinear Kind = "linear" // multinomial logistic regression
	KindBoost  Kind = "boost"  // boosted decision stumps
	KindMLP    Kind = "mlp"    // one-hidden-layer feed-forward network
)

// ErrNotFitted is returned by Predict before Fit has run.
var ErrNotFitted = errors.New("learner has not been fitted")

// Learner is a tabular classifier mapping a fixed-length descriptor to a
// label plus the probability mass assigned to that label.
type Learner interface {
	Kind() Kind

	// Fit trains on parallel descriptor and label slices.
	Fit(descriptors [][]float32, labels []string) error

	// Predict returns the top label and its confidence in [0, 1].
	Predict(descriptor []float32) (string, float64, error)

	// MarshalParams serializes the fitted parameters for the model artifact.
	MarshalParams() (json.RawMessage, error)

	// UnmarshalParams restores fitted parameters from an artifact.
	UnmarshalParams(data json.RawMessage) error
}

// ParseKind validates a learner family name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindKNN, KindLinear, KindBoost, KindMLP:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported learner kind %q", s)
	}
}

// New creates an unfitted learner of the given kind with default
// hyperparameters.
func New(kind Kind) (Learner, error) {
	switch kind {
	case KindKNN:
		return newKNN(3), nil
	case KindLinear:
		return newLinear(), nil
	case KindBoost:
		return newBoost(), nil
	case KindMLP:
		return newMLP(), nil
	default:
		return nil, fmt.Errorf("unsupported learner kind %q", kind)
	}
}

// distinctSorted returns the sorted set of labels present in the slice.
func distinctSorted(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// validateTrainingData checks the Fit preconditions shared by all learners.
func validateTrainingData(descriptors [][]float32, labels []string) error {
	if len(descriptors) == 0 {
		return errors.New("no training samples")
	}
	if len(descriptors) != len(labels) {
		return fmt.Errorf("descriptor count %d does not match label count %d",
			len(descriptors), len(labels))
	}
	width := len(descriptors[0])
	for i, d := range descriptors {
		if len(d) != width {
			return fmt.Errorf("sample %d has width %d, want %d", i, len(d), width)
		}
	}
	return nil
}

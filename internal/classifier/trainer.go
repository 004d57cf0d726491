package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/logger"
)

// Training acceptance failures. No partial model is persisted when either
// fires.
var (
	// ErrAccuracyBelowBar means held-out accuracy missed the configured bar.
	ErrAccuracyBelowBar = errors.New("test accuracy below acceptance bar")

	// ErrOverfitGapExceeded means train accuracy outran test accuracy by
	// more than the configured gap. Only fatal when severity is reject.
	ErrOverfitGapExceeded = errors.New("train/test accuracy gap exceeds overfitting bar")

	// ErrTooFewSamples means no label could spare a held-out sample, so the
	// acceptance bar has nothing to measure against.
	ErrTooFewSamples = errors.New("not enough samples per label for a validation split")
)

// Report carries the validation metrics of one training run, accepted or
// not. The recommended threshold is advisory output, computed as
// max(0.5, mean test confidence - 0.1).
type Report struct {
	Kind                 Kind     `json:"kind"`
	TrainSamples         int      `json:"train_samples"`
	TestSamples          int      `json:"test_samples"`
	TrainAccuracy        float64  `json:"train_accuracy"`
	TestAccuracy         float64  `json:"test_accuracy"`
	MeanConfidence       float64  `json:"mean_confidence"`
	RecommendedThreshold float64  `json:"recommended_threshold"`
	Classes              []string `json:"classes"`
	Warnings             []string `json:"warnings,omitempty"`
}

// Trainer fits a learner on a corpus snapshot and validates generalization
// before a model is allowed to exist.
type Trainer struct {
	cfg config.TrainerConfig
}

// NewTrainer builds a trainer from the acceptance policy config.
func NewTrainer(cfg config.TrainerConfig) *Trainer {
	return &Trainer{cfg: cfg}
}

// Train runs the full procedure: stratified split, fit on train, validate on
// test, and on acceptance refit on the entire corpus. The returned model is
// not persisted; callers decide where it lives.
func (t *Trainer) Train(c *corpus.Corpus) (*Report, *Model, error) {
	if err := c.CheckDiversity(); err != nil {
		return nil, nil, err
	}

	kind, err := ParseKind(t.cfg.Learner)
	if err != nil {
		return nil, nil, err
	}

	trainIdx, testIdx := stratifiedSplit(c.Labels, t.cfg.TestFraction, t.cfg.Seed)
	trainX, trainY := subset(c, trainIdx)
	testX, testY := subset(c, testIdx)
	if len(testY) == 0 {
		return nil, nil, fmt.Errorf("%w: every label needs at least 2 samples", ErrTooFewSamples)
	}

	learner, err := New(kind)
	if err != nil {
		return nil, nil, err
	}
	if err := learner.Fit(trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("fitting %s learner: %w", kind, err)
	}

	report := &Report{
		Kind:         kind,
		TrainSamples: len(trainY),
		TestSamples:  len(testY),
		Classes:      distinctSorted(c.Labels),
	}
	report.TrainAccuracy = accuracy(learner, trainX, trainY)

	var confidenceSum float64
	var correct int
	for i, x := range testX {
		label, confidence, err := learner.Predict(x)
		if err != nil {
			return nil, nil, fmt.Errorf("validating %s learner: %w", kind, err)
		}
		if label == testY[i] {
			correct++
		}
		confidenceSum += confidence
	}
	report.TestAccuracy = float64(correct) / float64(len(testY))
	report.MeanConfidence = confidenceSum / float64(len(testY))
	report.RecommendedThreshold = math.Max(0.5, report.MeanConfidence-0.1)

	log := logger.L().WithFields(logger.Fields{
		"kind":      kind,
		"train_acc": report.TrainAccuracy,
		"test_acc":  report.TestAccuracy,
		"mean_conf": report.MeanConfidence,
		"threshold": report.RecommendedThreshold,
	})

	gap := report.TrainAccuracy - report.TestAccuracy
	if gap > t.cfg.MaxOverfitGap {
		if t.cfg.OverfitSeverity == config.OverfitReject {
			return report, nil, fmt.Errorf("%w: gap %.2f > %.2f",
				ErrOverfitGapExceeded, gap, t.cfg.MaxOverfitGap)
		}
		warning := fmt.Sprintf("train/test accuracy gap %.2f exceeds %.2f", gap, t.cfg.MaxOverfitGap)
		report.Warnings = append(report.Warnings, warning)
		log.Warn(warning)
	}

	if report.TestAccuracy < t.cfg.MinTestAccuracy {
		return report, nil, fmt.Errorf("%w: %.2f < %.2f",
			ErrAccuracyBelowBar, report.TestAccuracy, t.cfg.MinTestAccuracy)
	}

	// Accepted: refit on the entire corpus so no labeled sample is wasted.
	final, err := New(kind)
	if err != nil {
		return nil, nil, err
	}
	if err := final.Fit(c.Descriptors, c.Labels); err != nil {
		return nil, nil, fmt.Errorf("refitting %s learner on full corpus: %w", kind, err)
	}

	log.Info("model accepted")

	return report, &Model{
		Learner:   final,
		Classes:   report.Classes,
		Width:     len(c.Descriptors[0]),
		Threshold: report.RecommendedThreshold,
		TrainedAt: time.Now().UTC(),
	}, nil
}

// stratifiedSplit partitions sample indices so that every label appears in
// both splits whenever it has at least two samples. The shuffle is seeded,
// so splits are reproducible.
func stratifiedSplit(labels []string, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, label := range distinctSorted(labels) {
		indices := byLabel[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		testCount := int(math.Round(float64(len(indices)) * testFraction))
		if len(indices) >= 2 {
			if testCount < 1 {
				testCount = 1
			}
			if testCount >= len(indices) {
				testCount = len(indices) - 1
			}
		} else {
			testCount = 0 // a singleton label can only train
		}

		testIdx = append(testIdx, indices[:testCount]...)
		trainIdx = append(trainIdx, indices[testCount:]...)
	}
	return trainIdx, testIdx
}

// subset materializes the samples selected by indices.
func subset(c *corpus.Corpus, indices []int) ([][]float32, []string) {
	descriptors := make([][]float32, len(indices))
	labels := make([]string, len(indices))
	for i, idx := range indices {
		descriptors[i] = c.Descriptors[idx]
		labels[i] = c.Labels[idx]
	}
	return descriptors, labels
}

// accuracy is the exact match rate between predicted and true labels.
func accuracy(l Learner, descriptors [][]float32, labels []string) float64 {
	var correct int
	for i, x := range descriptors {
		label, _, err := l.Predict(x)
		if err == nil && label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

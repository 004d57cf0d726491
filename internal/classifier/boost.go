package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// stump is a depth-1 decision tree: one feature, one threshold, one class
// predicted on each side.
type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      string  `json:"left"`  // predicted when x[feature] <= threshold
	Right     string  `json:"right"` // predicted otherwise
}

func (s *stump) predict(x []float32) string {
	if float64(x[s.Feature]) <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// boostLearner is a SAMME AdaBoost ensemble of decision stumps. Each round
// examines a random subset of features, which keeps fitting tractable on
// wide gradient-histogram descriptors.
type boostLearner struct {
	Classes []string  `json:"classes"`
	Stumps  []stump   `json:"stumps"`
	Alphas  []float64 `json:"alphas"`

	Rounds           int   `json:"rounds"`
	FeaturesPerRound int   `json:"features_per_round"`
	Seed             int64 `json:"seed"`
}

func newBoost() *boostLearner {
	return &boostLearner{Rounds: 50, FeaturesPerRound: 64, Seed: 1}
}

func (l *boostLearner) Kind() Kind { return KindBoost }

func (l *boostLearner) Fit(descriptors [][]float32, labels []string) error {
	if err := validateTrainingData(descriptors, labels); err != nil {
		return err
	}

	l.Classes = distinctSorted(labels)
	l.Stumps = nil
	l.Alphas = nil

	numSamples := len(descriptors)
	dim := len(descriptors[0])
	numClasses := len(l.Classes)
	rng := rand.New(rand.NewSource(l.Seed))

	weights := make([]float64, numSamples)
	for i := range weights {
		weights[i] = 1 / float64(numSamples)
	}

	for _i := 0; _i < l.Rounds; _i++ {
		best, bestErr := l.bestStump(descriptors, labels, weights, dim, rng)
		if best == nil {
			break
		}

		// SAMME: a stump is only useful if it beats random guessing.
		if bestErr >= 1-1/float64(numClasses) {
			break
		}
		if bestErr < 1e-10 {
			bestErr = 1e-10
		}
		alpha := math.Log((1-bestErr)/bestErr) + math.Log(float64(numClasses)-1)

		// Reweight: misclassified samples gain weight.
		var total float64
		for i, x := range descriptors {
			if best.predict(x) != labels[i] {
				weights[i] *= math.Exp(alpha)
			}
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}

		l.Stumps = append(l.Stumps, *best)
		l.Alphas = append(l.Alphas, alpha)
	}

	if len(l.Stumps) == 0 {
		return fmt.Errorf("boosting found no useful stump")
	}
	return nil
}

// bestStump searches a random feature subset for the stump with the lowest
// weighted error.
func (l *boostLearner) bestStump(descriptors [][]float32, labels []string, weights []float64, dim int, rng *rand.Rand) (*stump, float64) {
	candidates := l.FeaturesPerRound
	if candidates > dim {
		candidates = dim
	}

	var best *stump
	bestErr := math.Inf(1)

	for _i := 0; _i < candidates; _i++ {
		f := rng.Intn(dim)
		s, err := buildStump(descriptors, labels, weights, f)
		if s != nil && err < bestErr {
			best = s
			bestErr = err
		}
	}
	return best, bestErr
}

type weightedPoint struct {
	value  float64
	label  string
	weight float64
}

// buildStump finds the best threshold for one feature by scanning midpoints
// between consecutive sorted values.
func buildStump(descriptors [][]float32, labels []string, weights []float64, feature int) (*stump, float64) {
	points := make([]weightedPoint, len(descriptors))
	for i, d := range descriptors {
		points[i] = weightedPoint{float64(d[feature]), labels[i], weights[i]}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].value < points[j].value })

	var best *stump
	bestErr := math.Inf(1)

	for i := 0; i < len(points)-1; i++ {
		if points[i].value == points[i+1].value {
			continue
		}
		threshold := (points[i].value + points[i+1].value) / 2

		left := weightedMajority(points[:i+1])
		right := weightedMajority(points[i+1:])

		var errSum float64
		for _, p := range points[:i+1] {
			if p.label != left {
				errSum += p.weight
			}
		}
		for _, p := range points[i+1:] {
			if p.label != right {
				errSum += p.weight
			}
		}

		if errSum < bestErr {
			bestErr = errSum
			best = &stump{Feature: feature, Threshold: threshold, Left: left, Right: right}
		}
	}
	return best, bestErr
}

func weightedMajority(points []weightedPoint) string {
	votes := make(map[string]float64)
	for _, p := range points {
		votes[p.label] += p.weight
	}

	var best string
	var bestWeight float64
	for label, w := range votes {
		if w > bestWeight || (w == bestWeight && label < best) {
			best = label
			bestWeight = w
		}
	}
	return best
}

// Predict sums the weighted stump votes per class. Confidence is the winning
// share of the total vote mass.
func (l *boostLearner) Predict(descriptor []float32) (string, float64, error) {
	if len(l.Stumps) == 0 {
		return "", 0, ErrNotFitted
	}

	votes := make(map[string]float64)
	var total float64
	for i, s := range l.Stumps {
		votes[s.predict(descriptor)] += l.Alphas[i]
		total += l.Alphas[i]
	}

	var best string
	var bestWeight float64
	for label, w := range votes {
		if w > bestWeight || (w == bestWeight && label < best) {
			best = label
			bestWeight = w
		}
	}
	return best, bestWeight / total, nil
}

func (l *boostLearner) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(l)
}

func (l *boostLearner) UnmarshalParams(data json.RawMessage) error {
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("decoding boost params: %w", err)
	}
	if len(l.Stumps) == 0 || len(l.Stumps) != len(l.Alphas) {
		return fmt.Errorf("boost artifact has inconsistent stumps and alphas")
	}
	return nil
}

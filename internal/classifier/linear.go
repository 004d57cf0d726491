package classifier

import (
	"encoding/json"
	"fmt"
	"math"
)

// linearLearner is a multinomial logistic regression trained with batch
// gradient descent. Descriptors are block-normalized already, so no feature
// scaling is applied.
type linearLearner struct {
	Classes []string    `json:"classes"`
	Weights [][]float64 `json:"weights"` // per class: D weights + bias

	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
}

func newLinear() *linearLearner {
	return &linearLearner{Epochs: 300, LearningRate: 0.5}
}

func (l *linearLearner) Kind() Kind { return KindLinear }

func (l *linearLearner) Fit(descriptors [][]float32, labels []string) error {
	if err := validateTrainingData(descriptors, labels); err != nil {
		return err
	}

	l.Classes = distinctSorted(labels)
	classIndex := make(map[string]int, len(l.Classes))
	for i, c := range l.Classes {
		classIndex[c] = i
	}

	numClasses := len(l.Classes)
	dim := len(descriptors[0])
	numSamples := len(descriptors)

	l.Weights = make([][]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		l.Weights[c] = make([]float64, dim+1)
	}

	for _i := 0; _i < l.Epochs; _i++ {
		// Accumulate batch gradients.
		grads := make([][]float64, numClasses)
		for c := 0; c < numClasses; c++ {
			grads[c] = make([]float64, dim+1)
		}

		for i, x := range descriptors {
			probs := l.probabilities(x)
			target := classIndex[labels[i]]
			for c := 0; c < numClasses; c++ {
				diff := probs[c]
				if c == target {
					diff -= 1
				}
				for j, v := range x {
					grads[c][j] += diff * float64(v)
				}
				grads[c][dim] += diff // bias
			}
		}

		for c := 0; c < numClasses; c++ {
			for j := 0; j < dim + 1; j++ {
				l.Weights[c][j] -= l.LearningRate * grads[c][j] / float64(numSamples)
			}
		}
	}
	return nil
}

// probabilities computes the softmax distribution over classes.
func (l *linearLearner) probabilities(x []float32) []float64 {
	scores := make([]float64, len(l.Classes))
	maxScore := math.Inf(-1)
	for c, w := range l.Weights {
		s := w[len(w)-1]
		for j, v := range x {
			s += w[j] * float64(v)
		}
		scores[c] = s
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	for c, s := range scores {
		scores[c] = math.Exp(s - maxScore)
		sum += scores[c]
	}
	for c := range scores {
		scores[c] /= sum
	}
	return scores
}

func (l *linearLearner) Predict(descriptor []float32) (string, float64, error) {
	if len(l.Weights) == 0 {
		return "", 0, ErrNotFitted
	}
	if len(descriptor) != len(l.Weights[0])-1 {
		return "", 0, fmt.Errorf("descriptor width %d does not match model width %d",
			len(descriptor), len(l.Weights[0])-1)
	}

	probs := l.probabilities(descriptor)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return l.Classes[best], probs[best], nil
}

func (l *linearLearner) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(l)
}

func (l *linearLearner) UnmarshalParams(data json.RawMessage) error {
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("decoding linear params: %w", err)
	}
	if len(l.Classes) == 0 || len(l.Weights) != len(l.Classes) {
		return fmt.Errorf("linear artifact has inconsistent classes and weights")
	}
	return nil
}

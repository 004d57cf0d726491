package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// mlpLearner is a shallow feed-forward network: one ReLU hidden layer and a
// softmax output, trained with plain SGD.
type mlpLearner struct {
	Classes []string    `json:"classes"`
	W1      [][]float64 `json:"w1"` // hidden x (dim+1), bias folded in
	W2      [][]float64 `json:"w2"` // classes x (hidden+1)

	HiddenUnits  int     `json:"hidden_units"`
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	Seed         int64   `json:"seed"`
}

func newMLP() *mlpLearner {
	return &mlpLearner{HiddenUnits: 64, Epochs: 100, LearningRate: 0.05, Seed: 1}
}

func (l *mlpLearner) Kind() Kind { return KindMLP }

func (l *mlpLearner) Fit(descriptors [][]float32, labels []string) error {
	if err := validateTrainingData(descriptors, labels); err != nil {
		return err
	}

	l.Classes = distinctSorted(labels)
	classIndex := make(map[string]int, len(l.Classes))
	for i, c := range l.Classes {
		classIndex[c] = i
	}

	dim := len(descriptors[0])
	numClasses := len(l.Classes)
	rng := rand.New(rand.NewSource(l.Seed))

	// He initialization for the ReLU layer, small uniform for the output.
	l.W1 = make([][]float64, l.HiddenUnits)
	scale := math.Sqrt(2 / float64(dim))
	for h := range l.W1 {
		l.W1[h] = make([]float64, dim+1)
		for j := 0; j < dim; j++ {
			l.W1[h][j] = rng.NormFloat64() * scale
		}
	}
	l.W2 = make([][]float64, numClasses)
	for c := range l.W2 {
		l.W2[c] = make([]float64, l.HiddenUnits+1)
		for j := 0; j < l.HiddenUnits; j++ {
			l.W2[c][j] = (rng.Float64() - 0.5) * 0.1
		}
	}

	order := make([]int, len(descriptors))
	for i := range order {
		order[i] = i
	}

	for _i := 0; _i < l.Epochs; _i++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, i := range order {
			x := descriptors[i]
			hidden, probs := l.forward(x)
			target := classIndex[labels[i]]

			// Output layer gradient: softmax cross-entropy.
			dOut := make([]float64, numClasses)
			for c := 0; c < numClasses; c++ {
				dOut[c] = probs[c]
				if c == target {
					dOut[c] -= 1
				}
			}

			// Hidden layer gradient through ReLU.
			dHidden := make([]float64, l.HiddenUnits)
			for h := 0; h < l.HiddenUnits; h++ {
				if hidden[h] <= 0 {
					continue
				}
				var g float64
				for c := 0; c < numClasses; c++ {
					g += dOut[c] * l.W2[c][h]
				}
				dHidden[h] = g
			}

			for c := 0; c < numClasses; c++ {
				for h := 0; h < l.HiddenUnits; h++ {
					l.W2[c][h] -= l.LearningRate * dOut[c] * hidden[h]
				}
				l.W2[c][l.HiddenUnits] -= l.LearningRate * dOut[c]
			}
			for h := 0; h < l.HiddenUnits; h++ {
				if dHidden[h] == 0 {
					continue
				}
				for j, v := range x {
					l.W1[h][j] -= l.LearningRate * dHidden[h] * float64(v)
				}
				l.W1[h][dim] -= l.LearningRate * dHidden[h]
			}
		}
	}
	return nil
}

// forward runs one pass and returns the hidden activations and the softmax
// output distribution.
func (l *mlpLearner) forward(x []float32) (hidden, probs []float64) {
	dim := len(x)
	hidden = make([]float64, l.HiddenUnits)
	for h := 0; h < l.HiddenUnits; h++ {
		s := l.W1[h][dim]
		for j, v := range x {
			s += l.W1[h][j] * float64(v)
		}
		if s > 0 {
			hidden[h] = s
		}
	}

	scores := make([]float64, len(l.Classes))
	maxScore := math.Inf(-1)
	for c, w := range l.W2 {
		s := w[l.HiddenUnits]
		for h, v := range hidden {
			s += w[h] * v
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
	return hidden, scores
}

func (l *mlpLearner) Predict(descriptor []float32) (string, float64, error) {
	if len(l.W1) == 0 {
		return "", 0, ErrNotFitted
	}
	if len(descriptor) != len(l.W1[0])-1 {
		return "", 0, fmt.Errorf("descriptor width %d does not match model width %d",
			len(descriptor), len(l.W1[0])-1)
	}

	_, probs := l.forward(descriptor)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return l.Classes[best], probs[best], nil
}

func (l *mlpLearner) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(l)
}

func (l *mlpLearner) UnmarshalParams(data json.RawMessage) error {
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("decoding mlp params: %w", err)
	}
	if len(l.Classes) == 0 || len(l.W1) == 0 || len(l.W2) != len(l.Classes) {
		return fmt.Errorf("mlp artifact has inconsistent layers")
	}
	return nil
}

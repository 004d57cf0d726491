package classifier

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/coder/hnsw"
)

// knnLearner classifies by similarity-weighted vote among the k nearest
// training descriptors, found through an HNSW graph with cosine distance.
type knnLearner struct {
	K       int         `json:"k"`
	Samples [][]float32 `json:"samples"`
	Labels  []string    `json:"labels"`

	graph *hnsw.Graph[int]
}

func newKNN(k int) *knnLearner {
	return &knnLearner{K: k}
}

func (l *knnLearner) Kind() Kind { return KindKNN }

// Fit stores the training set and builds the search graph.
func (l *knnLearner) Fit(descriptors [][]float32, labels []string) error {
	if err := validateTrainingData(descriptors, labels); err != nil {
		return err
	}
	l.Samples = descriptors
	l.Labels = labels
	return l.buildGraph()
}

// buildGraph indexes the stored samples. Called after Fit and after
// restoring from an artifact; the graph itself is never persisted.
func (l *knnLearner) buildGraph() error {
	g := hnsw.NewGraph[int]()
	g.M = 16
	g.Ml = 1.0 / 16.0
	g.Distance = hnsw.CosineDistance

	for i, d := range l.Samples {
		g.Add(hnsw.MakeNode(i, d))
	}
	l.graph = g
	return nil
}

// Predict votes among the nearest neighbors, weighting each vote by cosine
// similarity. Confidence is the winning share of the total vote weight.
func (l *knnLearner) Predict(descriptor []float32) (string, float64, error) {
	if l.graph == nil || len(l.Samples) == 0 {
		return "", 0, ErrNotFitted
	}

	k := l.K
	if k > len(l.Samples) {
		k = len(l.Samples)
	}

	neighbors := l.graph.Search(descriptor, k)
	if len(neighbors) == 0 {
		return "", 0, fmt.Errorf("no neighbors found")
	}

	votes := make(map[string]float64)
	var total float64
	for _, n := range neighbors {
		similarity := 1 - cosineDistance(descriptor, n.Value)
		if similarity < 0 {
			similarity = 0
		}
		// A flat epsilon keeps zero-similarity neighbors from dividing by zero.
		weight := similarity + 1e-9
		votes[l.Labels[n.Key]] += weight
		total += weight
	}

	var best string
	var bestWeight float64
	for label, weight := range votes {
		if weight > bestWeight || (weight == bestWeight && label < best) {
			best = label
			bestWeight = weight
		}
	}
	return best, bestWeight / total, nil
}

func (l *knnLearner) MarshalParams() (json.RawMessage, error) {
	return json.Marshal(l)
}

func (l *knnLearner) UnmarshalParams(data json.RawMessage) error {
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("decoding knn params: %w", err)
	}
	if l.K <= 0 {
		l.K = 3
	}
	if len(l.Samples) != len(l.Labels) {
		return fmt.Errorf("knn artifact has %d samples but %d labels",
			len(l.Samples), len(l.Labels))
	}
	if len(l.Samples) == 0 {
		return fmt.Errorf("knn artifact has no samples")
	}
	return l.buildGraph()
}

// cosineDistance returns 1 - cosine similarity, in [0, 2].
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

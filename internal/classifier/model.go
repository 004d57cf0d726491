package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minhvu/faceclock/internal/corpus"
)

const artifactVersion = 1

// Artifact is the single persisted file holding the trained decision
// function, the label set it was trained on and the recommended recognition
// threshold. Model and classes are never persisted separately; splitting
// them invites class-list drift.
type Artifact struct {
	Version   int             `json:"version"`
	Kind      Kind            `json:"kind"`
	Classes   []string        `json:"classes"`
	Width     int             `json:"width"`
	Threshold float64         `json:"threshold"`
	TrainedAt time.Time       `json:"trained_at"`
	Params    json.RawMessage `json:"params"`
}

// Model is a loaded, ready-to-predict identity model.
type Model struct {
	Learner   Learner
	Classes   []string
	Width     int // descriptor width the model was trained at
	Threshold float64
	TrainedAt time.Time
}

// Predict runs the underlying learner. A descriptor whose width differs
// from the training width is rejected before it reaches the learner; a
// geometry change invalidates the model the same way it invalidates the
// corpus.
func (m *Model) Predict(descriptor []float32) (string, float64, error) {
	if m.Width > 0 && len(descriptor) != m.Width {
		return "", 0, fmt.Errorf("%w: descriptor width %d, model trained at width %d",
			corpus.ErrSchemaDrift, len(descriptor), m.Width)
	}
	return m.Learner.Predict(descriptor)
}

// SaveModel persists the model as one atomic artifact.
func SaveModel(path string, m *Model) error {
	params, err := m.Learner.MarshalParams()
	if err != nil {
		return fmt.Errorf("serializing model params: %w", err)
	}

	artifact := Artifact{
		Version:   artifactVersion,
		Kind:      m.Learner.Kind(),
		Classes:   m.Classes,
		Width:     m.Width,
		Threshold: m.Threshold,
		TrainedAt: m.TrainedAt,
		Params:    params,
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encoding model artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("creating temp model file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing model file: %w", err)
	}
	return nil
}

// LoadModel reads and validates a persisted artifact. Artifacts missing the
// decision function or the class list are rejected.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	if artifact.Kind == "" || len(artifact.Params) == 0 {
		return nil, fmt.Errorf("model %s is missing its decision function", path)
	}
	if len(artifact.Classes) == 0 {
		return nil, fmt.Errorf("model %s is missing its class list", path)
	}

	learner, err := New(artifact.Kind)
	if err != nil {
		return nil, err
	}
	if err := learner.UnmarshalParams(artifact.Params); err != nil {
		return nil, err
	}

	return &Model{
		Learner:   learner,
		Classes:   artifact.Classes,
		Width:     artifact.Width,
		Threshold: artifact.Threshold,
		TrainedAt: artifact.TrainedAt,
	}, nil
}

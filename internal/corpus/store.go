package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minhvu/faceclock/internal/logger"
)

// Store accumulates (descriptor, label) pairs into a single JSON artifact.
// Writes go through a temp file and rename so a crash mid-write never leaves
// a corpus with mismatched descriptor and label counts.
type Store struct {
	path  string
	width int
}

// NewStore creates a store for descriptors of the given width.
func NewStore(path string, width int) *Store {
	return &Store{path: path, width: width}
}

// Load reads the persisted corpus. A missing file yields an empty corpus.
func (s *Store) Load() (*Corpus, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Corpus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", s.path, err)
	}

	var c Corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", s.path, err)
	}
	if err := c.Validate(s.width); err != nil {
		return nil, err
	}
	return &c, nil
}

// Accumulate validates the new samples, merges them after the persisted
// corpus (existing first) and writes the result back atomically. Returns the
// merged corpus.
func (s *Store) Accumulate(descriptors [][]float32, labels []string) (*Corpus, error) {
	fresh := &Corpus{Descriptors: descriptors, Labels: labels}
	if err := fresh.Validate(s.width); err != nil {
		return nil, err
	}

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}

	merged := merge(existing, fresh)
	if err := s.write(merged); err != nil {
		return nil, err
	}

	summary := merged.Summarize()
	logger.L().WithFields(logger.Fields{
		"added":   len(labels),
		"samples": summary.Samples,
		"labels":  summary.DistinctLabels,
	}).Info("corpus updated")

	return merged, nil
}

// Summary loads the corpus and returns its read-only summary.
func (s *Store) Summary() (Summary, error) {
	c, err := s.Load()
	if err != nil {
		return Summary{}, err
	}
	return c.Summarize(), nil
}

// write persists the corpus with a two-phase temp-file-then-rename write.
func (s *Store) write(c *Corpus) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.json")
	if err != nil {
		return fmt.Errorf("creating temp corpus file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp corpus file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp corpus file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing corpus file: %w", err)
	}
	return nil
}

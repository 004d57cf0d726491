package handlers

import (
	"net/http"

	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
)

// StatusHandler exposes read-only corpus and model information.
type StatusHandler struct {
	config *config.Config
	store  *corpus.Store
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(cfg *config.Config, store *corpus.Store) *StatusHandler {
	return &StatusHandler{config: cfg, store: store}
}

// CorpusStats returns a summary of the collected training corpus.
func (h *StatusHandler) CorpusStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Model returns metadata about the currently trained model.
func (h *StatusHandler) Model(w http.ResponseWriter, r *http.Request) {
	model, err := classifier.LoadModel(h.config.Data.ModelPath)
	if err != nil {
		respondError(w, http.StatusNotFound, "no trained model available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"kind":       model.Learner.Kind(),
		"classes":    model.Classes,
		"threshold":  model.Threshold,
		"trained_at": model.TrainedAt,
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/logger"
	"github.com/minhvu/faceclock/internal/web/middleware"
)

// TrainHandler handles model training endpoints.
type TrainHandler struct {
	config     *config.Config
	store      *corpus.Store
	jobManager *JobManager
}

// NewTrainHandler creates a new training handler.
func NewTrainHandler(cfg *config.Config, store *corpus.Store, jm *JobManager) *TrainHandler {
	return &TrainHandler{
		config:     cfg,
		store:      store,
		jobManager: jm,
	}
}

// TrainRequest represents a training start request.
type TrainRequest struct {
	Kind string `json:"kind" validate:"omitempty,oneof=knn linear boost mlp"`
}

// Start starts a new training job. Admin only.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil || !principal.Admin {
		respondError(w, http.StatusForbidden, "training requires admin access")
		return
	}

	req := TrainRequest{}
	if r.ContentLength > 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}
	if req.Kind == "" {
		req.Kind = h.config.Trainer.Learner
	}

	jobID := uuid.New().String()
	job, ctx := h.jobManager.CreateJob(jobID, req.Kind)
	go h.runTrainJob(ctx, job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"kind":   req.Kind,
		"status": string(JobStatusPending),
	})
}

func (h *TrainHandler) runTrainJob(ctx context.Context, job *TrainJob) {
	job.SetRunning()

	c, err := h.store.Load()
	if err != nil {
		job.Fail(err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	cfg := h.config.Trainer
	cfg.Learner = job.Kind
	report, model, err := classifier.NewTrainer(cfg).Train(c)
	if err != nil {
		job.Fail(err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	if err := classifier.SaveModel(h.config.Data.ModelPath, model); err != nil {
		job.Fail(err)
		return
	}

	logger.L().WithFields(logger.Fields{
		"job_id":        job.ID,
		"kind":          report.Kind,
		"test_accuracy": report.TestAccuracy,
		"threshold":     report.RecommendedThreshold,
	}).Info("training job completed")
	job.Complete(report)
}

// Status returns the status of a training job.
func (h *TrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// List returns all training jobs.
func (h *TrainHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"jobs": h.jobManager.ListJobs(),
	})
}

// Cancel cancels a running training job. Admin only.
func (h *TrainHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil || !principal.Admin {
		respondError(w, http.StatusForbidden, "cancelling requires admin access")
		return
	}

	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(job.GetStatus()),
	})
}

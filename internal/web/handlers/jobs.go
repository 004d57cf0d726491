package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/minhvu/faceclock/internal/classifier"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// TrainJob represents an async model training job.
type TrainJob struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Status      JobStatus          `json:"status"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Report      *classifier.Report `json:"report,omitempty"`

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// GetStatus returns the current job status.
func (j *TrainJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot returns a copy of the job safe for JSON encoding.
func (j *TrainJob) Snapshot() TrainJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return TrainJob{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Report:      j.Report,
	}
}

// SetRunning marks the job as running.
func (j *TrainJob) SetRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

// Complete marks the job as completed with its training report.
func (j *TrainJob) Complete(report *classifier.Report) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Report = report
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Fail marks the job as failed.
func (j *TrainJob) Fail(err error) {
	now := time.Now()
	j.mu.Lock()
	if j.Status != JobStatusCancelled {
		j.Status = JobStatusFailed
		j.Error = err.Error()
	}
	j.CompletedAt = &now
	j.mu.Unlock()
}

// Cancel cancels the training job.
func (j *TrainJob) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Lock()
	if j.Status == JobStatusPending || j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
	}
	j.mu.Unlock()
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*TrainJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainJob),
	}
}

// CreateJob creates a new training job bound to a cancellable context.
func (m *JobManager) CreateJob(id, kind string) (*TrainJob, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &TrainJob{
		ID:        id,
		Kind:      kind,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		cancel:    cancel,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job, ctx
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]TrainJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	return jobs
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minhvu/faceclock/internal/corpus"
)

const testCorpusWidth = 16

// seedCorpus fills the store with two well-separated descriptor clusters.
func seedCorpus(t *testing.T, store *corpus.Store) {
	t.Helper()

	var descriptors [][]float32
	var labels []string
	for i := 0; i < 12; i++ {
		a := make([]float32, testCorpusWidth)
		a[0] = 1
		a[1] = float32(i%3) * 0.01
		descriptors = append(descriptors, a)
		labels = append(labels, "alice")

		b := make([]float32, testCorpusWidth)
		b[2] = 1
		b[3] = float32(i%3) * 0.01
		descriptors = append(descriptors, b)
		labels = append(labels, "bob")
	}
	if _, err := store.Accumulate(descriptors, labels); err != nil {
		t.Fatalf("seeding corpus: %v", err)
	}
}

func waitForJob(t *testing.T, jm *JobManager, id string) *TrainJob {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job := jm.GetJob(id)
		if job != nil {
			switch job.GetStatus() {
			case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
				return job
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("training job did not finish in time")
	return nil
}

func TestTrainStartRequiresAdmin(t *testing.T) {
	cfg := testConfig(t)
	h := NewTrainHandler(cfg, testStore(cfg, testCorpusWidth), NewJobManager())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	h.Start(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusForbidden)
}

func TestTrainJobCompletes(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(cfg, testCorpusWidth)
	seedCorpus(t, store)

	jm := NewJobManager()
	h := NewTrainHandler(cfg, store, jm)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train",
		strings.NewReader(`{"kind": "knn"}`))
	rec := httptest.NewRecorder()
	h.Start(rec, requestWithPrincipal(req, true))

	assertStatusCode(t, rec, http.StatusAccepted)

	var resp map[string]string
	parseJSONResponse(t, rec, &resp)
	if resp["job_id"] == "" {
		t.Fatal("response is missing job_id")
	}

	job := waitForJob(t, jm, resp["job_id"])
	if job.GetStatus() != JobStatusCompleted {
		t.Fatalf("job status = %s, error = %s", job.GetStatus(), job.Snapshot().Error)
	}

	snapshot := job.Snapshot()
	if snapshot.Report == nil {
		t.Fatal("completed job has no report")
	}
	if got := snapshot.Report.Classes; len(got) != 2 {
		t.Errorf("trained classes = %v, want 2 entries", got)
	}

	if _, err := os.Stat(cfg.Data.ModelPath); err != nil {
		t.Errorf("model artifact was not written: %v", err)
	}
}

func TestTrainJobFailsWithoutCorpus(t *testing.T) {
	cfg := testConfig(t)
	jm := NewJobManager()
	h := NewTrainHandler(cfg, testStore(cfg, testCorpusWidth), jm)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	h.Start(rec, requestWithPrincipal(req, true))
	assertStatusCode(t, rec, http.StatusAccepted)

	var resp map[string]string
	parseJSONResponse(t, rec, &resp)

	job := waitForJob(t, jm, resp["job_id"])
	if job.GetStatus() != JobStatusFailed {
		t.Fatalf("job status = %s, want %s", job.GetStatus(), JobStatusFailed)
	}
}

func TestTrainStatusUnknownJob(t *testing.T) {
	cfg := testConfig(t)
	h := NewTrainHandler(cfg, testStore(cfg, testCorpusWidth), NewJobManager())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/train/nope", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "nope"})
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
	assertJSONError(t, rec, "job not found")
}

func TestTrainRejectsUnknownKind(t *testing.T) {
	cfg := testConfig(t)
	h := NewTrainHandler(cfg, testStore(cfg, testCorpusWidth), NewJobManager())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train",
		strings.NewReader(`{"kind": "svm"}`))
	rec := httptest.NewRecorder()
	h.Start(rec, requestWithPrincipal(req, true))

	assertStatusCode(t, rec, http.StatusBadRequest)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/minhvu/faceclock/internal/attendance"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/web/middleware"
)

// testConfig creates a minimal config with stores rooted in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{
			Dir:        dir,
			CorpusPath: filepath.Join(dir, "corpus.json"),
			ModelPath:  filepath.Join(dir, "model.json"),
			LedgerDir:  dir,
		},
		Descriptor: config.DescriptorConfig{
			ImageSize:    32,
			CellSize:     8,
			BlockSize:    2,
			Orientations: 9,
		},
		Quality: config.QualityConfig{
			MinRegionSize: 10,
			MinBrightness: 50,
			MinSharpness:  100,
		},
		Trainer: config.TrainerConfig{
			Learner:         "knn",
			TestFraction:    0.3,
			MinTestAccuracy: 0.8,
			MaxOverfitGap:   0.15,
			OverfitSeverity: config.OverfitWarn,
			Seed:            42,
		},
		Recognition: config.RecognitionConfig{
			MaxAttempts: 10,
		},
	}
}

func testLedger(t *testing.T, cfg *config.Config) *attendance.Ledger {
	t.Helper()
	return attendance.NewLedger(cfg.Data.LedgerDir)
}

func testStore(cfg *config.Config, width int) *corpus.Store {
	return corpus.NewStore(cfg.Data.CorpusPath, width)
}

// requestWithPrincipal creates a request with an authenticated principal in context.
func requestWithPrincipal(r *http.Request, admin bool) *http.Request {
	ctx := middleware.SetPrincipalInContext(r.Context(), &middleware.Principal{Admin: admin})
	return r.WithContext(ctx)
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/descriptor"
)

func checkerImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func diagonalImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8((x * 255) / size)
			if y > x {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// saveTestModel trains a nearest-neighbor model whose alice class is built
// from the checker image and whose bob class comes from the diagonal image.
func saveTestModel(t *testing.T, cfg *config.Config) {
	t.Helper()

	extractor := descriptor.NewExtractor(cfg.Descriptor)
	var samples [][]float32
	var labels []string
	for _, variant := range descriptor.Variants(checkerImage(32)) {
		feat, err := extractor.Extract(variant)
		if err != nil {
			t.Fatalf("extracting alice sample: %v", err)
		}
		samples = append(samples, feat)
		labels = append(labels, "alice")
	}
	for _, variant := range descriptor.Variants(diagonalImage(32)) {
		feat, err := extractor.Extract(variant)
		if err != nil {
			t.Fatalf("extracting bob sample: %v", err)
		}
		samples = append(samples, feat)
		labels = append(labels, "bob")
	}

	learner, err := classifier.New(classifier.KindKNN)
	if err != nil {
		t.Fatalf("creating learner: %v", err)
	}
	if err := learner.Fit(samples, labels); err != nil {
		t.Fatalf("fitting model: %v", err)
	}

	model := &classifier.Model{
		Learner:   learner,
		Classes:   []string{"alice", "bob"},
		Width:     extractor.Dim(),
		Threshold: 0.5,
		TrainedAt: time.Now(),
	}
	if err := classifier.SaveModel(cfg.Data.ModelPath, model); err != nil {
		t.Fatalf("saving model: %v", err)
	}
}

// multipartRequest builds a recognition request with an encoded PNG image.
func multipartRequest(t *testing.T, frame image.Image, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("writing field %s: %v", key, err)
		}
	}
	if frame != nil {
		part, err := writer.CreateFormFile("image", "frame.png")
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if err := png.Encode(part, frame); err != nil {
			t.Fatalf("encoding frame: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestRecognizeWithoutModel(t *testing.T) {
	cfg := testConfig(t)
	h := NewRecognizeHandler(cfg, testLedger(t, cfg))

	req := multipartRequest(t, checkerImage(32), map[string]string{"identity": "alice"})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusServiceUnavailable)
}

func TestRecognizeAcceptsAndChecksIn(t *testing.T) {
	cfg := testConfig(t)
	saveTestModel(t, cfg)
	ledger := testLedger(t, cfg)
	h := NewRecognizeHandler(cfg, ledger)

	req := multipartRequest(t, checkerImage(32), map[string]string{
		"identity": "alice",
		"action":   "check_in",
		"position": "engineer",
	})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Outcome.Accepted() {
		t.Fatalf("outcome = %+v, want accepted", resp.Outcome)
	}
	if resp.Outcome.Label != "alice" {
		t.Errorf("Label = %q, want %q", resp.Outcome.Label, "alice")
	}
	if resp.Event == nil {
		t.Fatal("accepted check_in should produce a ledger event")
	}

	events, err := ledger.History("alice")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("ledger has %d events, want 1", len(events))
	}
}

func TestRecognizeRejectsMismatchedClaim(t *testing.T) {
	cfg := testConfig(t)
	saveTestModel(t, cfg)
	ledger := testLedger(t, cfg)
	h := NewRecognizeHandler(cfg, ledger)

	req := multipartRequest(t, checkerImage(32), map[string]string{
		"identity": "bob",
		"action":   "check_in",
	})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome.Accepted() {
		t.Fatal("mismatched claim should be rejected")
	}
	if resp.Event != nil {
		t.Error("rejected recognition must not touch the ledger")
	}

	events, err := ledger.History("bob")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ledger has %d events, want 0", len(events))
	}
}

func TestRecognizeAdminIsDryRun(t *testing.T) {
	cfg := testConfig(t)
	saveTestModel(t, cfg)
	ledger := testLedger(t, cfg)
	h := NewRecognizeHandler(cfg, ledger)

	req := multipartRequest(t, checkerImage(32), map[string]string{
		"identity": "alice",
		"action":   "check_in",
	})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, true))

	assertStatusCode(t, rec, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Outcome.Accepted() {
		t.Fatalf("outcome = %+v, want accepted", resp.Outcome)
	}
	if !resp.DryRun {
		t.Error("admin recognition should be reported as dry run")
	}
	if resp.Event != nil {
		t.Error("admin recognition must not produce a ledger event")
	}

	events, err := ledger.History("alice")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ledger has %d events, want 0", len(events))
	}
}

func TestRecognizeRequiresImage(t *testing.T) {
	cfg := testConfig(t)
	saveTestModel(t, cfg)
	h := NewRecognizeHandler(cfg, testLedger(t, cfg))

	req := multipartRequest(t, nil, map[string]string{"identity": "alice"})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecognizeRejectsUnknownAction(t *testing.T) {
	cfg := testConfig(t)
	saveTestModel(t, cfg)
	h := NewRecognizeHandler(cfg, testLedger(t, cfg))

	req := multipartRequest(t, checkerImage(32), map[string]string{
		"identity": "alice",
		"action":   "lunch",
	})
	rec := httptest.NewRecorder()
	h.Recognize(rec, requestWithPrincipal(req, false))

	assertStatusCode(t, rec, http.StatusBadRequest)
}

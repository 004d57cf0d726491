package handlers

import (
	"image"
	"io"
	"net/http"
	"time"

	"github.com/minhvu/faceclock/internal/attendance"
	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/descriptor"
	"github.com/minhvu/faceclock/internal/recognizer"
	"github.com/minhvu/faceclock/internal/web/middleware"
)

// maxUploadSize limits recognition image uploads to 10 MB.
const maxUploadSize = 10 << 20

// RecognizeHandler handles confidence-gated recognition requests.
type RecognizeHandler struct {
	config *config.Config
	ledger *attendance.Ledger
}

// NewRecognizeHandler creates a new recognition handler.
func NewRecognizeHandler(cfg *config.Config, ledger *attendance.Ledger) *RecognizeHandler {
	return &RecognizeHandler{config: cfg, ledger: ledger}
}

// RecognizeResponse represents the outcome of a recognition request.
type RecognizeResponse struct {
	Outcome recognizer.Outcome `json:"outcome"`
	Action  string             `json:"action,omitempty"`
	DryRun  bool               `json:"dry_run,omitempty"`
	Event   *attendance.Event  `json:"event,omitempty"`
}

// singleFrameSource feeds exactly one uploaded frame to the gate.
type singleFrameSource struct {
	frame image.Image
	done  bool
}

func (s *singleFrameSource) Next() (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.frame, nil
}

// Recognize accepts a multipart form with an "image" file, an "identity"
// field with the claimed identity, and an optional "action" field
// (check_in or check_out) applied to the ledger on acceptance. Admin
// callers get a dry run: the outcome is computed but never recorded.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	identity := r.FormValue("identity")
	if identity == "" {
		respondError(w, http.StatusBadRequest, "identity is required")
		return
	}

	action := r.FormValue("action")
	if action != "" && action != "check_in" && action != "check_out" {
		respondError(w, http.StatusBadRequest, "action must be check_in or check_out")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	frame, _, err := image.Decode(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	model, err := classifier.LoadModel(h.config.Data.ModelPath)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "no trained model available")
		return
	}

	principal := middleware.GetPrincipalFromContext(r.Context())
	claim := recognizer.Claim{
		Identity: identity,
		Admin:    principal != nil && principal.Admin,
	}

	gate := recognizer.NewGate(
		model,
		recognizer.FullFrameDetector{},
		descriptor.NewExtractor(h.config.Descriptor),
		descriptor.NewQualityGate(h.config.Quality),
		h.config.Recognition,
	)
	outcome := gate.Run(r.Context(), &singleFrameSource{frame: frame}, claim)

	resp := RecognizeResponse{
		Outcome: outcome,
		Action:  action,
		DryRun:  claim.Admin,
	}

	if outcome.Accepted() && action != "" && !claim.Admin {
		var event *attendance.Event
		switch action {
		case "check_in":
			event, err = h.ledger.CheckIn(identity, time.Now(), r.FormValue("position"))
		case "check_out":
			event, err = h.ledger.CheckOut(identity, time.Now())
		}
		if err != nil {
			respondLedgerError(w, err)
			return
		}
		resp.Event = event
	}

	respondJSON(w, http.StatusOK, resp)
}

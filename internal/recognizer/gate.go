// Package recognizer runs the confidence-gated recognition decision: it
// confirms a claimed identity from live frames, and refuses to act on
// uncertain or mismatched classifications.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/descriptor"
	"github.com/minhvu/faceclock/internal/logger"

	"golang.org/x/image/draw"
)

// State is a recognition attempt's position in its state machine.
type State string

// Recognition states. Accepted and Rejected are terminal.
const (
	StateScanning   State = "scanning"
	StateFaceFound  State = "face_found"
	StateClassified State = "classified"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
)

// Reason explains a rejection. These are typed outcomes, not errors: the
// caller re-attempts or reports, it never crashes.
type Reason string

// Rejection reasons.
const (
	ReasonNoFaceFound      Reason = "no_face_found"
	ReasonLowConfidence    Reason = "low_confidence"
	ReasonIdentityMismatch Reason = "identity_mismatch"
)

// Claim is the identity asserted by the calling session. Recognition
// verifies the claim; it never decides who is logging in.
type Claim struct {
	Identity string
	Admin    bool // admin recognitions are demo runs, never logged
}

// Outcome is the terminal result of one recognition attempt, always paired
// with a human-readable message.
type Outcome struct {
	State      State   `json:"state"`
	Reason     Reason  `json:"reason,omitempty"`
	Message    string  `json:"message"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	Attempts   int     `json:"attempts"`
}

// Accepted reports whether the identity claim was confirmed.
func (o Outcome) Accepted() bool { return o.State == StateAccepted }

// FrameSource is the pull-based frame provider. Next returns io.EOF when
// the stream ends; it is used identically for live capture and stored video.
type FrameSource interface {
	Next() (image.Image, error)
}

// Detector locates face regions in a frame. The gate only needs this
// contract, not the localization algorithm behind it.
type Detector interface {
	Detect(frame image.Image) []image.Rectangle
}

// Gate runs the bounded recognition state machine against a trained model.
type Gate struct {
	model     *classifier.Model
	detector  Detector
	extractor *descriptor.Extractor
	quality   *descriptor.QualityGate // nil disables the live quality check

	maxAttempts int
	threshold   float64
}

// NewGate wires a recognition gate. The confidence threshold comes from the
// model artifact unless the config provides an explicit override.
func NewGate(model *classifier.Model, det Detector, ext *descriptor.Extractor, quality *descriptor.QualityGate, cfg config.RecognitionConfig) *Gate {
	threshold := model.Threshold
	if cfg.Threshold > 0 {
		threshold = cfg.Threshold
	}

	g := &Gate{
		model:       model,
		detector:    det,
		extractor:   ext,
		maxAttempts: cfg.MaxAttempts,
		threshold:   threshold,
	}
	if cfg.UseQuality {
		g.quality = quality
	}
	return g
}

// Threshold returns the effective confidence threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// Run pulls frames until a face classifies or the attempt budget runs out.
// Extraction failures return the machine to scanning; only a classification
// reaches a terminal decision.
func (g *Gate) Run(ctx context.Context, frames FrameSource, claim Claim) Outcome {
	log := logger.L().WithFields(logger.Fields{"claim": claim.Identity})

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return rejected(ReasonNoFaceFound, attempt-1, "recognition cancelled")
		}

		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return rejected(ReasonNoFaceFound, attempt-1, "frame stream ended before a face was recognized")
		}
		if err != nil {
			log.WithFields(logger.Fields{"attempt": attempt}).Warnf("frame read failed: %v", err)
			continue
		}

		regions := g.detector.Detect(frame)
		if len(regions) == 0 {
			continue // still scanning
		}

		for _, rect := range regions {
			region := Crop(frame, rect)

			if g.quality != nil {
				if report := g.quality.Check(region); !report.OK {
					log.WithFields(logger.Fields{"attempt": attempt}).Debugf("region skipped: %s", report.Reason)
					continue
				}
			}

			feat, err := g.extractor.Extract(region)
			if err != nil {
				// Back to scanning; the sample is skipped, never retried.
				log.WithFields(logger.Fields{"attempt": attempt}).Debugf("extraction failed: %v", err)
				continue
			}

			label, confidence, err := g.model.Predict(feat)
			if err != nil {
				log.WithFields(logger.Fields{"attempt": attempt}).Warnf("inference failed: %v", err)
				continue
			}

			outcome := Decide(label, confidence, g.threshold, claim.Identity)
			outcome.Attempts = attempt
			log.WithFields(logger.Fields{
				"state":      outcome.State,
				"label":      label,
				"confidence": confidence,
			}).Info("recognition decided")
			return outcome
		}
	}

	return rejected(ReasonNoFaceFound, g.maxAttempts,
		fmt.Sprintf("no recognizable face in %d frames", g.maxAttempts))
}

// Decide applies the two-part anti-impersonation contract to one
// classification. An identity mismatch always rejects, regardless of the
// confidence value: a correctly classified other enrolled identity must
// never authorize this person's attendance action.
func Decide(predicted string, confidence, threshold float64, claimed string) Outcome {
	if predicted != claimed {
		o := rejected(ReasonIdentityMismatch, 0,
			fmt.Sprintf("face does not match the account %s", claimed))
		o.Label = predicted
		o.Confidence = confidence
		return o
	}
	if confidence < threshold {
		o := rejected(ReasonLowConfidence, 0,
			fmt.Sprintf("confidence %.0f%% below the %.0f%% threshold", confidence*100, threshold*100))
		o.Label = predicted
		o.Confidence = confidence
		return o
	}
	return Outcome{
		State:      StateAccepted,
		Message:    fmt.Sprintf("identity %s confirmed", predicted),
		Label:      predicted,
		Confidence: confidence,
	}
}

func rejected(reason Reason, attempts int, message string) Outcome {
	return Outcome{
		State:    StateRejected,
		Reason:   reason,
		Message:  message,
		Attempts: attempts,
	}
}

// Crop extracts a face region from a frame. Uses the source's SubImage when
// available, copying otherwise.
func Crop(frame image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(frame.Bounds())

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := frame.(subImager); ok {
		return si.SubImage(rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, frame, rect, draw.Over, nil)
	return dst
}

package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/upload"
)

// Detector runs one detection against one model.
type Detector interface {
	Detect(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error)
}

type DetectorFunc func(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error)

func (f DetectorFunc) Detect(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error) {
	return f(ctx, file, modelID)
}

// Outcome carries both slots of a comparison. A slot is nil when its model
// failed; the matching Err field says why.
type Outcome struct {
	ModelA  string
	ModelB  string
	ResultA *pothole.DetectionResult
	ResultB *pothole.DetectionResult
	ErrA    error
	ErrB    error
}

// Err joins the per-model failures, or returns nil when both succeeded.
func (o *Outcome) Err() error {
	var errs []error
	if o.ErrA != nil {
		errs = append(errs, fmt.Errorf("model %s: %w", o.ModelA, o.ErrA))
	}
	if o.ErrB != nil {
		errs = append(errs, fmt.Errorf("model %s: %w", o.ModelB, o.ErrB))
	}
	return errors.Join(errs...)
}

type Orchestrator struct {
	log zerolog.Logger
}

func NewOrchestrator(log zerolog.Logger) *Orchestrator {
	return &Orchestrator{log: log}
}

// Validate checks the comparison preconditions without touching the network.
func Validate(modelA, modelB string, file upload.MediaFile) error {
	modelA = strings.TrimSpace(modelA)
	modelB = strings.TrimSpace(modelB)

	if file.Empty() {
		return fmt.Errorf("%w: select a file first", pothole.ErrValidation)
	}
	if modelA == "" || modelB == "" {
		return fmt.Errorf("%w: select both models before proceeding", pothole.ErrValidation)
	}
	if modelA == modelB {
		return fmt.Errorf("%w: select different models for comparison", pothole.ErrValidation)
	}
	return nil
}

// Compare runs detector for modelA and then for modelB, never concurrently.
// A failure in one slot does not stop or undo the other.
func (o *Orchestrator) Compare(ctx context.Context, detector Detector, modelA, modelB string, file upload.MediaFile) (*Outcome, error) {
	if err := Validate(modelA, modelB, file); err != nil {
		return nil, err
	}

	out := &Outcome{
		ModelA: strings.TrimSpace(modelA),
		ModelB: strings.TrimSpace(modelB),
	}

	out.ResultA, out.ErrA = detector.Detect(ctx, file, out.ModelA)
	if out.ErrA != nil {
		out.ResultA = nil
		o.log.Warn().Err(out.ErrA).Str("model", out.ModelA).Msg("comparison slot A failed")
	}

	out.ResultB, out.ErrB = detector.Detect(ctx, file, out.ModelB)
	if out.ErrB != nil {
		out.ResultB = nil
		o.log.Warn().Err(out.ErrB).Str("model", out.ModelB).Msg("comparison slot B failed")
	}

	o.log.Info().
		Str("model_a", out.ModelA).
		Str("model_b", out.ModelB).
		Int("frames_a", out.ResultA.Len()).
		Int("frames_b", out.ResultB.Len()).
		Msg("comparison finished")

	return out, nil
}

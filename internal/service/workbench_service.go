package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"potholytics-service/internal/comparison"
	"potholytics-service/internal/dashboard"
	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/results"
	"potholytics-service/internal/upload"
)

type Detector interface {
	Detect(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error)
	StopDetection(ctx context.Context) error
}

type DetectionStore interface {
	SaveFrames(ctx context.Context, sessionID, model string, frames []pothole.DetectionFrame) (int, error)
}

type DashboardBuilder interface {
	Build(ctx context.Context) (*dashboard.Summary, error)
}

type Options struct {
	DefaultModel string
	Models       []string
	SessionTTL   time.Duration
}

type ModelCatalog struct {
	Default string   `json:"default"`
	Models  []string `json:"models"`
}

type CompareResult struct {
	Comparison comparison.View `json:"comparison"`
	Failures   []string        `json:"failures,omitempty"`
}

type StopResult struct {
	Cancelled    bool `json:"cancelled"`
	Acknowledged bool `json:"acknowledged"`
}

type WorkbenchService struct {
	sessions     *SessionStore
	previews     *upload.Manager
	detector     Detector
	orchestrator *comparison.Orchestrator
	store        DetectionStore
	dashboard    DashboardBuilder
	opts         Options
	log          zerolog.Logger

	summaryMu   sync.Mutex
	lastSummary *dashboard.Summary
}

// NewWorkbenchService wires the workflow. store may be nil when persistence is
// not configured.
func NewWorkbenchService(
	detector Detector,
	store DetectionStore,
	dash DashboardBuilder,
	previews *upload.Manager,
	opts Options,
	log zerolog.Logger,
) *WorkbenchService {
	s := &WorkbenchService{
		previews:     previews,
		detector:     detector,
		orchestrator: comparison.NewOrchestrator(log),
		store:        store,
		dashboard:    dash,
		opts:         opts,
		log:          log,
	}
	s.sessions = NewSessionStore(opts.SessionTTL, func(id string) {
		previews.Release(id)
		log.Debug().Str("session_id", id).Msg("session expired")
	})
	return s
}

func (s *WorkbenchService) Sessions() *SessionStore {
	return s.sessions
}

func (s *WorkbenchService) ActivePreviews() int {
	return s.previews.Active()
}

func (s *WorkbenchService) Models() ModelCatalog {
	return ModelCatalog{Default: s.opts.DefaultModel, Models: s.opts.Models}
}

func (s *WorkbenchService) CreateSession() SessionView {
	sess := s.sessions.Create()
	s.log.Info().Str("session_id", sess.ID).Msg("session created")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view()
}

func (s *WorkbenchService) GetSession(id string) (SessionView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// SelectFile makes file the session's current upload and issues its preview.
// Non-media files are kept but get no preview.
func (s *WorkbenchService) SelectFile(id string, file upload.MediaFile) (*upload.Preview, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if file.Empty() {
		return nil, fmt.Errorf("%w: file is required", pothole.ErrValidation)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.processing {
		return nil, pothole.ErrBusy
	}

	preview := s.previews.Accept(sess.ID, file)
	sess.file = file
	sess.preview = preview
	sess.touchedAt = time.Now()

	s.log.Debug().
		Str("session_id", sess.ID).
		Str("file", file.Name).
		Str("content_type", file.ContentType).
		Bool("preview", preview != nil).
		Msg("file selected")
	return preview, nil
}

func (s *WorkbenchService) OpenPreview(handle string) (upload.MediaFile, error) {
	return s.previews.Open(handle)
}

// Detect runs one detection for the session's file and loads the result into
// its panel. On failure nothing is stored.
func (s *WorkbenchService) Detect(ctx context.Context, id, model string) (results.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return results.View{}, err
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = s.opts.DefaultModel
	}

	sess.mu.Lock()
	file := sess.file
	sess.mu.Unlock()
	if file.Empty() {
		return results.View{}, fmt.Errorf("%w: select a file first", pothole.ErrValidation)
	}

	res, err := s.trackedDetect(ctx, sess, file, model)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("session_id", sess.ID).
			Str("model", model).
			Msg("detection failed")
		return results.View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.panel.Load(res)
	sess.model = model

	s.log.Info().
		Str("session_id", sess.ID).
		Str("model", model).
		Int("frames", res.Len()).
		Int("detections", res.TotalDetections()).
		Msg("detection loaded")
	return sess.panel.Snapshot(), nil
}

// Compare runs modelA then modelB over the session's file. Validation errors
// abort before any request; per-model failures come back in Failures.
func (s *WorkbenchService) Compare(ctx context.Context, id, modelA, modelB string) (CompareResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return CompareResult{}, err
	}

	sess.mu.Lock()
	file := sess.file
	sess.mu.Unlock()

	if err := comparison.Validate(modelA, modelB, file); err != nil {
		return CompareResult{}, err
	}

	// The session stays busy across both models.
	cctx, release, err := sess.beginProcessing(ctx)
	if err != nil {
		return CompareResult{}, err
	}
	defer release()

	stops := sess.stopCount()
	detector := comparison.DetectorFunc(func(ctx context.Context, file upload.MediaFile, model string) (*pothole.DetectionResult, error) {
		if sess.stopCount() != stops {
			return nil, fmt.Errorf("%w: detection stopped", pothole.ErrDetectionFailed)
		}
		return s.detector.Detect(ctx, file, model)
	})
	out, err := s.orchestrator.Compare(cctx, detector, modelA, modelB, file)
	if err != nil {
		return CompareResult{}, err
	}

	var failures []string
	for _, e := range []error{out.ErrA, out.ErrB} {
		if e != nil {
			failures = append(failures, e.Error())
		}
	}
	if joined := out.Err(); joined != nil {
		s.log.Warn().Err(joined).Str("session_id", sess.ID).Msg("comparison finished with failures")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.board.Apply(out)
	return CompareResult{Comparison: sess.board.Snapshot(), Failures: failures}, nil
}

// StopDetection cancels the session's in-flight request and tells the backend
// to stop. The backend signal is best effort: a failure is logged and reported
// as not acknowledged.
func (s *WorkbenchService) StopDetection(ctx context.Context, id string) (StopResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return StopResult{}, err
	}

	res := StopResult{Cancelled: sess.abort()}
	if err := s.detector.StopDetection(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("stop signal not delivered")
	} else {
		res.Acknowledged = true
	}
	return res, nil
}

func (s *WorkbenchService) trackedDetect(ctx context.Context, sess *Session, file upload.MediaFile, model string) (*pothole.DetectionResult, error) {
	dctx, release, err := sess.beginProcessing(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.detector.Detect(dctx, file, model)
}

func (s *WorkbenchService) Results(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return nil })
}

func (s *WorkbenchService) OpenResults(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error {
		p.OpenPanel()
		return nil
	})
}

func (s *WorkbenchService) CloseResults(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error {
		p.ClosePanel()
		return nil
	})
}

func (s *WorkbenchService) ToggleRow(id string, index int) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return p.ToggleRow(index) })
}

func (s *WorkbenchService) DeleteSelected(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error {
		removed, err := p.DeleteSelected()
		if err == nil && removed > 0 {
			s.log.Debug().Str("session_id", id).Int("removed", removed).Msg("rows deleted")
		}
		return err
	})
}

func (s *WorkbenchService) OpenDetail(id string, index int) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return p.OpenDetail(index) })
}

func (s *WorkbenchService) NextImage(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return p.Next() })
}

func (s *WorkbenchService) PreviousImage(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return p.Previous() })
}

func (s *WorkbenchService) CloseDetail(id string) (results.View, error) {
	return s.withPanel(id, func(p *results.Panel) error { return p.CloseDetail() })
}

func (s *WorkbenchService) withPanel(id string, op func(p *results.Panel) error) (results.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return results.View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touchedAt = time.Now()
	if err := op(sess.panel); err != nil {
		return results.View{}, err
	}
	return sess.panel.Snapshot(), nil
}

func (s *WorkbenchService) Comparison(id string) (comparison.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return comparison.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.board.Snapshot(), nil
}

func (s *WorkbenchService) ToggleComparison(id string) (comparison.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return comparison.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.board.TogglePanel(sess.processing)
	return sess.board.Snapshot(), nil
}

func (s *WorkbenchService) CloseComparison(id string) (comparison.View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return comparison.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.board.ClosePanel()
	return sess.board.Snapshot(), nil
}

// SaveDetections persists the frames currently shown in the session's panel,
// after any local row deletions.
func (s *WorkbenchService) SaveDetections(ctx context.Context, id string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: persistence is disabled", pothole.ErrValidation)
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	snapshot := sess.panel.Result().Clone()
	model := sess.model
	sess.mu.Unlock()

	if snapshot.Len() == 0 {
		return 0, fmt.Errorf("%w: no detections to save", pothole.ErrValidation)
	}

	saved, err := s.store.SaveFrames(ctx, sess.ID, model, snapshot.Frames)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("failed to save detections")
		return 0, fmt.Errorf("failed to save detections: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("model", model).
		Int("saved", saved).
		Msg("detections saved")
	return saved, nil
}

func (s *WorkbenchService) Dashboard(ctx context.Context) (*dashboard.Summary, error) {
	summary, err := s.dashboard.Build(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build dashboard")
		return nil, err
	}

	s.summaryMu.Lock()
	s.lastSummary = summary
	s.summaryMu.Unlock()
	return summary, nil
}

// MarkerOverlay resolves a marker against the last dashboard served, building
// one first if none exists yet.
func (s *WorkbenchService) MarkerOverlay(ctx context.Context, index int) (*dashboard.Overlay, error) {
	s.summaryMu.Lock()
	summary := s.lastSummary
	s.summaryMu.Unlock()

	if summary == nil {
		var err error
		if summary, err = s.Dashboard(ctx); err != nil {
			return nil, err
		}
	}
	return summary.MarkerOverlay(index)
}

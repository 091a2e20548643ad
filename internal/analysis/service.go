package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/storage"
)

// Repository is the narrow persistence port the controller depends on.
// Implementations must return an error satisfying errors.Is(err,
// ErrPatientNotFound) when the referenced patient is absent.
type Repository interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	UpdateAnalysis(ctx context.Context, id string, fields map[string]interface{}) error
	CreateAnalysisImage(ctx context.Context, img *models.AnalysisImage) error
}

// FileStore is the storage port for per-view artifacts.
type FileStore interface {
	Save(ctx context.Context, input storage.SaveInput) (*storage.FileRecord, error)
}

// Clock abstraction so lifecycle timestamps are testable
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ViewUpload is one raw image submitted under an anatomical view name.
type ViewUpload struct {
	Name        models.ImageViewType
	Data        []byte
	Filename    string
	ContentType string
}

// RunInput is the request for one analysis run. Views are ordered; the order
// fixes the tie-break iteration during aggregation.
type RunInput struct {
	Mode      models.AnalysisMode
	PatientID *string
	Views     []ViewUpload
}

// Result is returned to the caller on a completed analysis.
type Result struct {
	AnalysisID string                              `json:"analysis_id"`
	Mode       models.AnalysisMode                 `json:"mode"`
	Views      map[string]inference.ViewPrediction `json:"views"`
	Model      inference.ModelInfo                 `json:"model"`
}

// Service orchestrates one analysis: open a PROCESSING row, predict every
// view, aggregate, persist per-view artifacts best-effort, then close the
// row as COMPLETED or FAILED.
type Service struct {
	Repo      Repository
	Predictor inference.Service
	Files     FileStore
	Clock     Clock
}

// NewService wires the controller with its collaborators.
func NewService(repo Repository, predictor inference.Service, files FileStore) *Service {
	return &Service{Repo: repo, Predictor: predictor, Files: files, Clock: SystemClock{}}
}

// Run executes one full analysis lifecycle. A prediction failure on any view
// is fatal; a storage failure on one view is logged and skipped. Whatever
// fails after the analysis row exists triggers a best-effort FAILED update
// before the original error is returned.
func (s *Service) Run(ctx context.Context, input RunInput) (*Result, error) {
	if err := validateViews(input); err != nil {
		return nil, err
	}

	// Patient gate: fail before any analysis row is created.
	if input.PatientID != nil {
		if _, err := s.Repo.GetPatient(ctx, *input.PatientID); err != nil {
			return nil, err
		}
	}

	a := &models.Analysis{
		PatientID: input.PatientID,
		Mode:      input.Mode,
		Status:    models.AnalysisProcessing,
	}
	if err := s.Repo.CreateAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("%w: creating analysis row: %v", ErrInternal, err)
	}

	result, err := s.process(ctx, a, input)
	if err != nil {
		s.markFailed(a.ID)
		return nil, err
	}
	return result, nil
}

func (s *Service) process(ctx context.Context, a *models.Analysis, input RunInput) (*Result, error) {
	predictions, err := s.predictAll(ctx, input.Views)
	if err != nil {
		return nil, err
	}

	ordered := make([]ViewResult, len(input.Views))
	for i, view := range input.Views {
		ordered[i] = ViewResult{Name: view.Name, Prediction: predictions[i]}
	}
	agg := Summarise(input.Mode, ordered)

	// Persist per-view artifacts. Best-effort: one view failing to store
	// must not abort the analysis or its sibling views.
	for i, view := range input.Views {
		if err := s.storeView(ctx, a, view, predictions[i]); err != nil {
			log.Printf("analysis %s: failed to store %s view: %v", a.ID, view.Name, err)
		}
	}

	now := s.Clock.Now().UTC()
	fields := map[string]interface{}{
		"status":            models.AnalysisCompleted,
		"total_findings":    agg.TotalFindings,
		"dominant_label":    agg.DominantLabel,
		"dominant_category": agg.DominantCategory,
		"summary":           agg.Summary,
		"completed_at":      now,
	}
	if err := s.Repo.UpdateAnalysis(ctx, a.ID, fields); err != nil {
		return nil, fmt.Errorf("%w: completing analysis: %v", ErrInternal, err)
	}

	views := make(map[string]inference.ViewPrediction, len(ordered))
	for _, v := range ordered {
		views[string(v.Name)] = v.Prediction
	}
	return &Result{
		AnalysisID: a.ID,
		Mode:       input.Mode,
		Views:      views,
		Model:      s.Predictor.Info(),
	}, nil
}

// predictAll fans out one prediction per view. Views are independent, so they
// run concurrently; aggregation waits on all of them. Any failure is fatal.
func (s *Service) predictAll(ctx context.Context, views []ViewUpload) ([]inference.ViewPrediction, error) {
	predictions := make([]inference.ViewPrediction, len(views))
	errs := make([]error, len(views))

	var wg sync.WaitGroup
	for i, view := range views {
		wg.Add(1)
		go func(i int, view ViewUpload) {
			defer wg.Done()
			p, err := s.Predictor.Predict(ctx, inference.ImageInput{
				Data:        view.Data,
				Filename:    view.Filename,
				ContentType: view.ContentType,
			})
			if err != nil {
				errs[i] = fmt.Errorf("%s view: %w", view.Name, err)
				return
			}
			predictions[i] = *p
		}(i, view)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return predictions, nil
}

func (s *Service) storeView(ctx context.Context, a *models.Analysis, view ViewUpload, prediction inference.ViewPrediction) error {
	patientID := ""
	if a.PatientID != nil {
		patientID = *a.PatientID
	}
	record, err := s.Files.Save(ctx, storage.SaveInput{
		Data:             view.Data,
		OriginalFilename: view.Filename,
		ContentType:      view.ContentType,
		PatientID:        patientID,
		AnalysisID:       a.ID,
		ViewName:         string(view.Name),
	})
	if err != nil {
		return err
	}

	img := &models.AnalysisImage{
		AnalysisID:       a.ID,
		ViewType:         view.Name,
		FileID:           record.FileID,
		Filename:         record.Filename,
		OriginalFilename: record.OriginalFilename,
		FilePath:         record.FilePath,
		RelativePath:     record.RelativePath,
		ThumbnailPath:    record.ThumbnailPath,
		FileSize:         record.FileSize,
		FileHash:         record.FileHash,
		ContentType:      record.ContentType,
		Width:            prediction.Size.Width,
		Height:           prediction.Size.Height,
		DetectionsCount:  len(prediction.Detections),
		DetectionsData:   models.DetectionsData{Detections: prediction.Detections},
	}
	return s.Repo.CreateAnalysisImage(ctx, img)
}

// markFailed moves the analysis to FAILED. Best-effort: if even this update
// fails the row stays PROCESSING and has to be reconciled out-of-band. Runs
// on a fresh context so a cancelled request still gets its FAILED mark.
func (s *Service) markFailed(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fields := map[string]interface{}{"status": models.AnalysisFailed}
	if err := s.Repo.UpdateAnalysis(ctx, id, fields); err != nil {
		log.Printf("analysis %s: failed to mark FAILED, row left PROCESSING: %v", id, err)
	}
}

func validateViews(input RunInput) error {
	switch input.Mode {
	case models.ModeMulti:
		if len(input.Views) != len(models.MultiViewNames) {
			return fmt.Errorf("%w: multi mode requires exactly %d views", ErrInvalidViews, len(models.MultiViewNames))
		}
		seen := map[models.ImageViewType]bool{}
		for _, v := range input.Views {
			seen[v.Name] = true
		}
		for _, name := range models.MultiViewNames {
			if !seen[name] {
				return fmt.Errorf("%w: missing %s view", ErrInvalidViews, name)
			}
		}
	case models.ModeSingle:
		if len(input.Views) != 1 {
			return fmt.Errorf("%w: single mode requires exactly one view", ErrInvalidViews)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidViews, input.Mode)
	}
	for _, v := range input.Views {
		if len(v.Data) == 0 {
			return fmt.Errorf("%w: %s view is empty", ErrInvalidViews, v.Name)
		}
	}
	return nil
}

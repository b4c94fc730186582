package diagnosis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/diagnoflow/internal/application"
	"github.com/bryanwahyu/diagnoflow/internal/application/audit"
	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	"github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// Service implements analysis intake: store slide images, call the
// external classifier, persist the immutable record, audit the action.
type Service struct {
	Repo       domain.Repository
	Classifier domain.Classifier
	Images     domain.ImageStore
	Audit      *audit.Recorder
	Clock      application.Clock
	Logger     *zap.Logger
}

// CreateCommand carries a pre-classified result (the caller already ran
// the detector and holds verdict + confidence)
type CreateCommand struct {
	Disease    domain.Disease
	Facility   string
	Verdict    string
	Confidence float64
	ImageURL   string
}

// Create persists one immutable AnalysisRecord owned by the actor
func (s *Service) Create(ctx context.Context, actor staff.Actor, cmd CreateCommand) (*domain.Analysis, error) {
	if !cmd.Disease.Valid() {
		return nil, fmt.Errorf("%w: unknown disease type %q", reports.ErrValidation, cmd.Disease)
	}
	if cmd.Verdict == "" {
		return nil, fmt.Errorf("%w: verdict is required", reports.ErrValidation)
	}
	if cmd.Confidence < 0 || cmd.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be in [0,100]", reports.ErrValidation)
	}

	a := &domain.Analysis{
		ID:         domain.AnalysisID(uuid.New().String()),
		AccountID:  actor.ID,
		Disease:    cmd.Disease,
		Facility:   cmd.Facility,
		Verdict:    cmd.Verdict,
		Confidence: cmd.Confidence,
		ImageURL:   cmd.ImageURL,
		AnalyzedAt: s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, activity.ActionAnalysisCreated,
		fmt.Sprintf("created %s analysis, verdict: %s", a.Disease, a.Verdict), string(a.ID))
	return a, nil
}

// Detect uploads the slide images, runs the classifier and persists the
// aggregate result in one pass
func (s *Service) Detect(ctx context.Context, actor staff.Actor, disease domain.Disease, facility string, images [][]byte) (*domain.Analysis, error) {
	if !disease.Valid() {
		return nil, fmt.Errorf("%w: unknown disease type %q", reports.ErrValidation, disease)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", reports.ErrValidation)
	}

	res, err := s.Classifier.Classify(ctx, disease, images)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// store the first slide as the record's reference image
	key := fmt.Sprintf("%s/%s/%s.png", actor.ID, disease, uuid.New().String())
	url, err := s.Images.Put(ctx, key, images[0], "image/png")
	if err != nil {
		// keep the verdict even when object storage is down
		s.Logger.Warn("slide upload failed, persisting analysis without image",
			zap.String("key", key), zap.Error(err))
		url = ""
	}

	return s.Create(ctx, actor, CreateCommand{
		Disease:    disease,
		Facility:   facility,
		Verdict:    res.Verdict,
		Confidence: res.Confidence,
		ImageURL:   url,
	})
}

// Delete removes one analysis owned by the actor. Reviewer roles never
// delete records, and nobody deletes another account's work.
func (s *Service) Delete(ctx context.Context, actor staff.Actor, id domain.AnalysisID) error {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: analysis %s", reports.ErrNotFound, id)
	}
	if a.AccountID != actor.ID && actor.Role != staff.RoleAdmin {
		return fmt.Errorf("%w: analysis %s belongs to another account", reports.ErrInvalidTransition, id)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if a.ImageURL != "" {
		if err := s.Images.Remove(ctx, a.ImageURL); err != nil {
			s.Logger.Warn("orphaned slide image", zap.String("url", a.ImageURL), zap.Error(err))
		}
	}
	s.audit(ctx, actor, activity.ActionAnalysisDeleted,
		fmt.Sprintf("deleted %s analysis", a.Disease), string(id))
	return nil
}

// ListByAccount returns the actor's own analyses, newest first
func (s *Service) ListByAccount(ctx context.Context, accountID string, page, pageSize int) ([]*domain.Analysis, error) {
	return s.Repo.ListByAccount(ctx, accountID, page, pageSize)
}

func (s *Service) audit(ctx context.Context, actor staff.Actor, action, detail, relatedID string) {
	if _, err := s.Audit.Record(ctx, actor, action, detail, relatedID); err != nil {
		s.Logger.Warn("continuing with incomplete audit trail", zap.String("action", action))
	}
}

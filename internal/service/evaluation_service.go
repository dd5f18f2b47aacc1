package service

import (
	"errors"
	"fmt"
	"log/slog"

	"peer-jury/internal/models"
	"peer-jury/internal/repository"
	"peer-jury/internal/securestore"
)

// Score bounds for evaluations
const (
	MinScore = 1.0
	MaxScore = 10.0
)

// EvaluationService handles evaluation submission and grade aggregation.
// When a SecureStore is configured, feedback is encrypted at rest and only
// the ciphertext reference lands in the evaluations table.
type EvaluationService struct {
	evaluationRepo  *repository.EvaluationRepository
	assignmentRepo  *repository.JuryAssignmentRepository
	deliverableRepo *repository.DeliverableRepository
	projectRepo     *repository.ProjectRepository
	secureStore     *securestore.SecureStore
	auditService    *AuditService
}

// NewEvaluationService creates a new evaluation service. secureStore may be
// nil, in which case feedback is stored in plaintext.
func NewEvaluationService(
	evaluationRepo *repository.EvaluationRepository,
	assignmentRepo *repository.JuryAssignmentRepository,
	deliverableRepo *repository.DeliverableRepository,
	projectRepo *repository.ProjectRepository,
	secureStore *securestore.SecureStore,
	auditService *AuditService,
) *EvaluationService {
	return &EvaluationService{
		evaluationRepo:  evaluationRepo,
		assignmentRepo:  assignmentRepo,
		deliverableRepo: deliverableRepo,
		projectRepo:     projectRepo,
		secureStore:     secureStore,
		auditService:    auditService,
	}
}

// SubmitEvaluation records or replaces a juror's evaluation. Resubmission
// overwrites score and feedback but keeps the original submission time.
func (s *EvaluationService) SubmitEvaluation(callerID, juryAssignmentID uint, score float64, feedback string) (*models.Evaluation, error) {
	if score < MinScore || score > MaxScore {
		return nil, fmt.Errorf("%w: score must be between %.0f and %.0f", ErrValidation, MinScore, MaxScore)
	}
	if !hasAtMostTwoDecimals(score) {
		return nil, fmt.Errorf("%w: score precision is limited to two decimals", ErrValidation)
	}

	assignment, err := s.assignmentRepo.GetByID(juryAssignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if assignment.EvaluatorID != callerID {
		return nil, ErrNotEvaluator
	}

	deliverable, err := s.deliverableRepo.GetByID(assignment.DeliverableID)
	if err != nil {
		return nil, err
	}
	if deliverable.Status != models.DeliverableStatusOpenForGrading {
		return nil, ErrGradingClosed
	}

	evaluation := &models.Evaluation{
		JuryAssignmentID: juryAssignmentID,
		Score:            score,
		Feedback:         feedback,
	}

	if s.secureStore != nil && feedback != "" {
		existing, err := s.evaluationRepo.GetByAssignmentID(juryAssignmentID)
		if err != nil {
			return nil, err
		}

		recordID, err := s.encryptFeedback(existing, feedback)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt feedback: %w", err)
		}

		evaluation.EncryptedFeedbackID = &recordID
		// Only the ciphertext reference is persisted
		evaluation.Feedback = ""
	}

	if err := s.evaluationRepo.CreateOrUpdate(evaluation); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	// Hand the plaintext back to the caller regardless of storage mode
	evaluation.Feedback = feedback

	s.auditService.Log(callerID, "evaluation.submit", fmt.Sprintf("assignment:%d", juryAssignmentID), fmt.Sprintf("deliverable:%d", assignment.DeliverableID))

	slog.Info("Evaluation submitted",
		"assignment_id", juryAssignmentID,
		"deliverable_id", assignment.DeliverableID,
	)

	return evaluation, nil
}

// GetEvaluation retrieves an evaluation. Only the juror who submitted it may
// read it through this path.
func (s *EvaluationService) GetEvaluation(callerID, evaluationID uint) (*models.Evaluation, error) {
	evaluation, err := s.evaluationRepo.GetByID(evaluationID)
	if err != nil {
		if errors.Is(err, repository.ErrEvaluationNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(evaluation.JuryAssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.EvaluatorID != callerID {
		return nil, ErrNotEvaluator
	}

	s.loadFeedback(evaluation)

	return evaluation, nil
}

// GetFinalGrade computes the aggregated grade of a deliverable. callerID must
// be the project creator; professors use GetDeliverableSummary instead.
func (s *EvaluationService) GetFinalGrade(callerID, deliverableID uint) (*models.FinalGrade, error) {
	deliverable, err := s.deliverableRepo.GetByID(deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	project, err := s.projectRepo.GetByID(deliverable.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != callerID {
		return nil, ErrNotOwner
	}

	return s.evaluationRepo.GetGradeSummary(deliverableID)
}

// GetDeliverableSummary returns the grade and the anonymous evaluations of a
// deliverable for the professor view
func (s *EvaluationService) GetDeliverableSummary(deliverableID uint) (*models.DeliverableEvaluationSummary, error) {
	deliverable, err := s.deliverableRepo.GetByID(deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	grade, err := s.evaluationRepo.GetGradeSummary(deliverableID)
	if err != nil {
		return nil, err
	}

	evaluations, err := s.getAnonymousEvaluations(deliverableID)
	if err != nil {
		return nil, err
	}

	return &models.DeliverableEvaluationSummary{
		Deliverable:      *deliverable,
		FinalGrade:       grade.FinalGrade,
		TotalEvaluations: grade.TotalEvaluations,
		Evaluations:      evaluations,
	}, nil
}

// GetProjectSummaries returns the evaluation summaries of all deliverables of
// a project for the professor view
func (s *EvaluationService) GetProjectSummaries(projectID uint) ([]models.DeliverableEvaluationSummary, error) {
	if _, err := s.projectRepo.GetByID(projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	deliverables, err := s.deliverableRepo.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}

	// Initialize with empty slice instead of nil to avoid JSON null
	summaries := []models.DeliverableEvaluationSummary{}
	for _, d := range deliverables {
		summary, err := s.GetDeliverableSummary(d.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	return summaries, nil
}

// GetDeliverableStats returns the score distribution of a deliverable
func (s *EvaluationService) GetDeliverableStats(deliverableID uint) (*models.DeliverableStats, error) {
	if _, err := s.deliverableRepo.GetByID(deliverableID); err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.evaluationRepo.GetStatsByDeliverable(deliverableID)
}

// getAnonymousEvaluations projects evaluations down to score, feedback and
// submission time. Evaluator identity never crosses this boundary.
func (s *EvaluationService) getAnonymousEvaluations(deliverableID uint) ([]models.AnonymousEvaluation, error) {
	evaluations, err := s.evaluationRepo.GetByDeliverableID(deliverableID)
	if err != nil {
		return nil, err
	}

	// Initialize with empty slice instead of nil to avoid JSON null
	anonymous := []models.AnonymousEvaluation{}
	for i := range evaluations {
		s.loadFeedback(&evaluations[i])
		anonymous = append(anonymous, models.AnonymousEvaluation{
			Score:     evaluations[i].Score,
			Feedback:  evaluations[i].Feedback,
			CreatedAt: evaluations[i].CreatedAt,
		})
	}

	return anonymous, nil
}

// encryptFeedback stores feedback ciphertext, reusing the existing record on
// resubmission so the foreign key stays stable
func (s *EvaluationService) encryptFeedback(existing *models.Evaluation, feedback string) (int64, error) {
	if existing != nil && existing.EncryptedFeedbackID != nil {
		if err := s.secureStore.UpdateRecord(*existing.EncryptedFeedbackID, "evaluation_feedback", feedback); err != nil {
			return 0, err
		}
		return *existing.EncryptedFeedbackID, nil
	}

	return s.secureStore.EncryptRecord("evaluation_feedback", feedback)
}

// loadFeedback decrypts feedback in place when it is stored encrypted
func (s *EvaluationService) loadFeedback(evaluation *models.Evaluation) {
	if evaluation.EncryptedFeedbackID == nil || s.secureStore == nil {
		return
	}

	plaintext, err := s.secureStore.DecryptRecord(*evaluation.EncryptedFeedbackID)
	if err != nil {
		slog.Error("Failed to decrypt evaluation feedback",
			"evaluation_id", evaluation.ID,
			"record_id", *evaluation.EncryptedFeedbackID,
			"error", err,
		)
		return
	}

	evaluation.Feedback = plaintext
}

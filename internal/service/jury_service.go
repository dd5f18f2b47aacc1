package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"peer-jury/internal/config"
	"peer-jury/internal/email"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
)

// JuryService selects anonymous juries for deliverables
type JuryService struct {
	assignmentRepo  *repository.JuryAssignmentRepository
	deliverableRepo *repository.DeliverableRepository
	projectRepo     *repository.ProjectRepository
	userRepo        *repository.UserRepository
	emailSvc        *email.Service
	auditService    *AuditService
	juryConfig      *config.JuryConfig
}

// NewJuryService creates a new jury service
func NewJuryService(
	assignmentRepo *repository.JuryAssignmentRepository,
	deliverableRepo *repository.DeliverableRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	emailSvc *email.Service,
	auditService *AuditService,
	juryConfig *config.JuryConfig,
) *JuryService {
	return &JuryService{
		assignmentRepo:  assignmentRepo,
		deliverableRepo: deliverableRepo,
		projectRepo:     projectRepo,
		userRepo:        userRepo,
		emailSvc:        emailSvc,
		auditService:    auditService,
		juryConfig:      juryConfig,
	}
}

// SelectJury draws a random jury for a deliverable. The pool consists of
// active students who are not members of the owning project; selection
// happens at most once per deliverable. jurySize 0 uses the configured
// default.
func (s *JuryService) SelectJury(callerID, deliverableID uint, jurySize int) ([]models.JuryAssignment, error) {
	if jurySize == 0 {
		jurySize = s.juryConfig.DefaultSize
	}
	if jurySize < 1 || jurySize > s.juryConfig.MaxSize {
		return nil, fmt.Errorf("%w: jury size must be between 1 and %d", ErrValidation, s.juryConfig.MaxSize)
	}

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

	if deliverable.Status != models.DeliverableStatusOpenForGrading {
		return nil, fmt.Errorf("%w: deliverable must be open for grading", ErrInvalidState)
	}

	pool, err := s.userRepo.GetEligibleEvaluators(deliverable.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluator pool: %w", err)
	}

	if len(pool) < jurySize {
		return nil, fmt.Errorf("%w: pool has %d eligible students, %d requested", ErrInsufficientEvaluators, len(pool), jurySize)
	}

	selected, err := sampleUsers(pool, jurySize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample jury: %w", err)
	}

	evaluatorIDs := make([]uint, len(selected))
	for i, u := range selected {
		evaluatorIDs[i] = u.ID
	}

	assignments, err := s.assignmentRepo.SelectJury(deliverableID, evaluatorIDs)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrJurySelected):
			return nil, ErrJuryAlreadySelected
		case errors.Is(err, repository.ErrDeliverableNotOpen):
			return nil, fmt.Errorf("%w: deliverable must be open for grading", ErrInvalidState)
		case errors.Is(err, repository.ErrDeliverableNotFound):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("failed to persist jury: %w", err)
		}
	}

	s.auditService.Log(callerID, "jury.select", fmt.Sprintf("deliverable:%d", deliverableID), fmt.Sprintf("size:%d", jurySize))

	slog.Info("Jury selected",
		"deliverable_id", deliverableID,
		"jury_size", jurySize,
		"pool_size", len(pool),
	)

	// Notify jurors (best effort)
	go s.notifyJurors(selected, deliverable, project)

	return assignments, nil
}

// GetAssignmentsByEvaluator lists the caller's jury assignments with
// deliverable details and their own evaluation, if submitted
func (s *JuryService) GetAssignmentsByEvaluator(evaluatorID uint) ([]models.JuryAssignmentWithDetails, error) {
	return s.assignmentRepo.GetByEvaluator(evaluatorID)
}

// GetAssignmentCount returns how many jurors a deliverable has
func (s *JuryService) GetAssignmentCount(deliverableID uint) (int, error) {
	return s.assignmentRepo.CountByDeliverable(deliverableID)
}

func (s *JuryService) notifyJurors(jurors []models.User, deliverable *models.Deliverable, project *models.Project) {
	dueDate := ""
	if deliverable.DueDate != nil {
		dueDate = deliverable.DueDate.Format("2006-01-02 15:04")
	}

	for _, juror := range jurors {
		if err := s.emailSvc.SendJuryAssignmentEmail(juror.Email, juror.FullName, deliverable.Title, project.Title, dueDate); err != nil {
			slog.Warn("Failed to send jury assignment email", "email", juror.Email, "error", err)
		}
	}
}

// sampleUsers draws k users uniformly at random without replacement using a
// partial Fisher-Yates shuffle seeded from crypto/rand
func sampleUsers(pool []models.User, k int) ([]models.User, error) {
	shuffled := make([]models.User, len(pool))
	copy(shuffled, pool)

	for i := 0; i < k; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(shuffled)-i)))
		if err != nil {
			return nil, fmt.Errorf("failed to draw random index: %w", err)
		}
		j := i + int(n.Int64())
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:k], nil
}

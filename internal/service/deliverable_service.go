package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"peer-jury/internal/email"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
)

// DeliverableService handles the deliverable lifecycle
type DeliverableService struct {
	deliverableRepo *repository.DeliverableRepository
	projectRepo     *repository.ProjectRepository
	evaluationRepo  *repository.EvaluationRepository
	userRepo        *repository.UserRepository
	emailSvc        *email.Service
	auditService    *AuditService
}

// NewDeliverableService creates a new deliverable service
func NewDeliverableService(
	deliverableRepo *repository.DeliverableRepository,
	projectRepo *repository.ProjectRepository,
	evaluationRepo *repository.EvaluationRepository,
	userRepo *repository.UserRepository,
	emailSvc *email.Service,
	auditService *AuditService,
) *DeliverableService {
	return &DeliverableService{
		deliverableRepo: deliverableRepo,
		projectRepo:     projectRepo,
		evaluationRepo:  evaluationRepo,
		userRepo:        userRepo,
		emailSvc:        emailSvc,
		auditService:    auditService,
	}
}

// CreateDeliverable adds a deliverable to a project in pending status. Only
// the project creator may add deliverables.
func (s *DeliverableService) CreateDeliverable(callerID, projectID uint, title, description string, dueDate *time.Time, videoURL, serverURL *string) (*models.Deliverable, error) {
	if _, err := s.getOwnedProject(callerID, projectID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if dueDate != nil && dueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: due date must be in the future", ErrValidation)
	}

	deliverable := &models.Deliverable{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		VideoURL:    videoURL,
		ServerURL:   serverURL,
		Status:      models.DeliverableStatusPending,
	}

	if err := s.deliverableRepo.Create(deliverable); err != nil {
		return nil, fmt.Errorf("failed to create deliverable: %w", err)
	}

	s.auditService.Log(callerID, "deliverable.create", fmt.Sprintf("deliverable:%d", deliverable.ID), deliverable.Title)

	return deliverable, nil
}

// GetDeliverable retrieves a deliverable by ID
func (s *DeliverableService) GetDeliverable(deliverableID uint) (*models.Deliverable, error) {
	deliverable, err := s.deliverableRepo.GetByID(deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deliverable, nil
}

// GetDeliverablesByProject lists all deliverables of a project
func (s *DeliverableService) GetDeliverablesByProject(projectID uint) ([]models.Deliverable, error) {
	if _, err := s.projectRepo.GetByID(projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.deliverableRepo.GetByProjectID(projectID)
}

// UpdateDeliverable updates the metadata of a pending deliverable. Once
// grading has started, or the due date has passed, the deliverable is
// immutable.
func (s *DeliverableService) UpdateDeliverable(callerID, deliverableID uint, title, description string, dueDate *time.Time, videoURL, serverURL *string) (*models.Deliverable, error) {
	deliverable, _, err := s.getOwnedDeliverable(callerID, deliverableID)
	if err != nil {
		return nil, err
	}

	// The stored due date governs, not the one in the request
	if pastDue(deliverable) {
		return nil, ErrDeadlinePassed
	}

	if deliverable.Status != models.DeliverableStatusPending {
		return nil, fmt.Errorf("%w: deliverable can only be edited while pending", ErrInvalidState)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	deliverable.Title = title
	deliverable.Description = description
	deliverable.DueDate = dueDate
	deliverable.VideoURL = videoURL
	deliverable.ServerURL = serverURL

	if err := s.deliverableRepo.Update(deliverable); err != nil {
		return nil, fmt.Errorf("failed to update deliverable: %w", err)
	}

	return deliverable, nil
}

// DeleteDeliverable removes a pending deliverable
func (s *DeliverableService) DeleteDeliverable(callerID, deliverableID uint) error {
	deliverable, _, err := s.getOwnedDeliverable(callerID, deliverableID)
	if err != nil {
		return err
	}

	if pastDue(deliverable) {
		return ErrDeadlinePassed
	}

	if deliverable.Status != models.DeliverableStatusPending {
		return fmt.Errorf("%w: only pending deliverables can be deleted", ErrInvalidState)
	}

	if err := s.deliverableRepo.Delete(deliverableID); err != nil {
		return fmt.Errorf("failed to delete deliverable: %w", err)
	}

	s.auditService.Log(callerID, "deliverable.delete", fmt.Sprintf("deliverable:%d", deliverableID), deliverable.Title)

	return nil
}

// OpenForGrading transitions a deliverable from pending to open_for_grading.
// The owning project must be active and the due date, when set, must not have
// passed. Concurrent attempts resolve to a single winner.
func (s *DeliverableService) OpenForGrading(callerID, deliverableID uint) (*models.Deliverable, error) {
	deliverable, project, err := s.getOwnedDeliverable(callerID, deliverableID)
	if err != nil {
		return nil, err
	}

	if project.Status != models.ProjectStatusActive {
		return nil, fmt.Errorf("%w: project must be active before grading can open", ErrInvalidState)
	}
	if pastDue(deliverable) {
		return nil, ErrDeadlinePassed
	}

	updated, err := s.deliverableRepo.UpdateStatus(deliverableID, models.DeliverableStatusPending, models.DeliverableStatusOpenForGrading)
	if err != nil {
		return nil, fmt.Errorf("failed to open deliverable for grading: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: deliverable is not pending", ErrInvalidState)
	}

	deliverable.Status = models.DeliverableStatusOpenForGrading
	s.auditService.Log(callerID, "deliverable.open_grading", fmt.Sprintf("deliverable:%d", deliverableID), deliverable.Title)

	slog.Info("Deliverable opened for grading", "deliverable_id", deliverableID, "project_id", deliverable.ProjectID)

	return deliverable, nil
}

// CloseGrading transitions a deliverable from open_for_grading to closed and
// freezes the final grade. The project creator is notified by email. Closing
// stays possible after the due date: it is how a past-due grading window is
// sealed.
func (s *DeliverableService) CloseGrading(callerID, deliverableID uint) (*models.Deliverable, error) {
	deliverable, project, err := s.getOwnedDeliverable(callerID, deliverableID)
	if err != nil {
		return nil, err
	}

	updated, err := s.deliverableRepo.UpdateStatus(deliverableID, models.DeliverableStatusOpenForGrading, models.DeliverableStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("failed to close grading: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: deliverable is not open for grading", ErrInvalidState)
	}

	deliverable.Status = models.DeliverableStatusClosed
	s.auditService.Log(callerID, "deliverable.close_grading", fmt.Sprintf("deliverable:%d", deliverableID), deliverable.Title)

	slog.Info("Grading closed", "deliverable_id", deliverableID, "project_id", deliverable.ProjectID)

	// Notify the creator about the result (best effort)
	go s.notifyGradingClosed(project.CreatorID, deliverable)

	return deliverable, nil
}

func (s *DeliverableService) notifyGradingClosed(creatorID uint, deliverable *models.Deliverable) {
	creator, err := s.userRepo.GetByID(creatorID)
	if err != nil {
		slog.Warn("Failed to load creator for closing notification", "user_id", creatorID, "error", err)
		return
	}

	grade, err := s.evaluationRepo.GetGradeSummary(deliverable.ID)
	if err != nil {
		slog.Warn("Failed to compute grade for closing notification", "deliverable_id", deliverable.ID, "error", err)
		return
	}

	if err := s.emailSvc.SendGradingClosedEmail(creator.Email, creator.FullName, deliverable.Title, grade.TotalEvaluations); err != nil {
		slog.Warn("Failed to send grading closed email", "email", creator.Email, "error", err)
	}
}

// pastDue reports whether the deliverable's due date has passed
func pastDue(deliverable *models.Deliverable) bool {
	return deliverable.DueDate != nil && deliverable.DueDate.Before(time.Now())
}

// getOwnedProject loads a project and verifies the caller created it
func (s *DeliverableService) getOwnedProject(callerID, projectID uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if project.CreatorID != callerID {
		return nil, ErrNotOwner
	}

	return project, nil
}

// getOwnedDeliverable loads a deliverable and its project and verifies the
// caller created the project
func (s *DeliverableService) getOwnedDeliverable(callerID, deliverableID uint) (*models.Deliverable, *models.Project, error) {
	deliverable, err := s.deliverableRepo.GetByID(deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	project, err := s.projectRepo.GetByID(deliverable.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	if project.CreatorID != callerID {
		return nil, nil, ErrNotOwner
	}

	return deliverable, project, nil
}

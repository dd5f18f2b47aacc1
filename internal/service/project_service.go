package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"peer-jury/internal/models"
	"peer-jury/internal/repository"
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo     *repository.ProjectRepository
	deliverableRepo *repository.DeliverableRepository
	userRepo        *repository.UserRepository
	auditService    *AuditService
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	deliverableRepo *repository.DeliverableRepository,
	userRepo *repository.UserRepository,
	auditService *AuditService,
) *ProjectService {
	return &ProjectService{
		projectRepo:     projectRepo,
		deliverableRepo: deliverableRepo,
		userRepo:        userRepo,
		auditService:    auditService,
	}
}

// CreateProject creates a new project in draft status. The creator is
// automatically enrolled as a member.
func (s *ProjectService) CreateProject(creatorID uint, title, description string) (*models.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > 200 {
		return nil, fmt.Errorf("%w: title must not exceed 200 characters", ErrValidation)
	}

	project := &models.Project{
		Title:       title,
		Description: description,
		CreatorID:   creatorID,
		Status:      models.ProjectStatusDraft,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.auditService.Log(creatorID, "project.create", fmt.Sprintf("project:%d", project.ID), project.Title)

	return project, nil
}

// GetProject retrieves a project with its deliverables
func (s *ProjectService) GetProject(projectID uint) (*models.ProjectWithDeliverables, error) {
	project, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	deliverables, err := s.deliverableRepo.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}

	return &models.ProjectWithDeliverables{
		Project:      *project,
		Deliverables: deliverables,
	}, nil
}

// GetProjectsByCreator lists the caller's own projects
func (s *ProjectService) GetProjectsByCreator(creatorID uint) ([]models.Project, error) {
	return s.projectRepo.GetByCreator(creatorID)
}

// GetProjectsWithDeliverablesByCreator lists the caller's own projects with
// their deliverables nested
func (s *ProjectService) GetProjectsWithDeliverablesByCreator(creatorID uint) ([]models.ProjectWithDeliverables, error) {
	projects, err := s.projectRepo.GetByCreator(creatorID)
	if err != nil {
		return nil, err
	}
	return s.attachDeliverables(projects)
}

// GetAllProjects lists all projects, for the professor and admin views
func (s *ProjectService) GetAllProjects() ([]models.Project, error) {
	return s.projectRepo.GetAll()
}

// GetAllProjectsWithDeliverables lists every project with its deliverables,
// for the professor view
func (s *ProjectService) GetAllProjectsWithDeliverables() ([]models.ProjectWithDeliverables, error) {
	projects, err := s.projectRepo.GetAll()
	if err != nil {
		return nil, err
	}
	return s.attachDeliverables(projects)
}

func (s *ProjectService) attachDeliverables(projects []models.Project) ([]models.ProjectWithDeliverables, error) {
	// Initialize with empty slice instead of nil to avoid JSON null
	result := []models.ProjectWithDeliverables{}
	for _, project := range projects {
		deliverables, err := s.deliverableRepo.GetByProjectID(project.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.ProjectWithDeliverables{
			Project:      project,
			Deliverables: deliverables,
		})
	}
	return result, nil
}

// UpdateProject updates title and description of a draft or active project.
// Only the creator may update.
func (s *ProjectService) UpdateProject(callerID, projectID uint, title, description string) (*models.Project, error) {
	project, err := s.getOwnedProject(callerID, projectID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	project.Title = title
	project.Description = description

	if err := s.projectRepo.Update(project); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// ActivateProject transitions a project from draft to active. The transition
// is one-way; concurrent attempts resolve to a single winner.
func (s *ProjectService) ActivateProject(callerID, projectID uint) (*models.Project, error) {
	project, err := s.getOwnedProject(callerID, projectID)
	if err != nil {
		return nil, err
	}

	updated, err := s.projectRepo.UpdateStatus(projectID, models.ProjectStatusDraft, models.ProjectStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to activate project: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: project is not in draft status", ErrInvalidState)
	}

	project.Status = models.ProjectStatusActive
	s.auditService.Log(callerID, "project.activate", fmt.Sprintf("project:%d", projectID), "")

	slog.Info("Project activated", "project_id", projectID, "creator_id", callerID)

	return project, nil
}

// DeleteProject deletes a project and everything attached to it. Only the
// creator may delete, and only while the project is still in draft.
func (s *ProjectService) DeleteProject(callerID, projectID uint) error {
	project, err := s.getOwnedProject(callerID, projectID)
	if err != nil {
		return err
	}

	if project.Status != models.ProjectStatusDraft {
		return fmt.Errorf("%w: only draft projects can be deleted", ErrInvalidState)
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.auditService.Log(callerID, "project.delete", fmt.Sprintf("project:%d", projectID), project.Title)

	return nil
}

// AddMember enrolls a user into a project team. Members cannot serve on the
// jury of the project's deliverables.
func (s *ProjectService) AddMember(callerID, projectID, userID uint) error {
	if _, err := s.getOwnedProject(callerID, projectID); err != nil {
		return err
	}

	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}

	if err := s.projectRepo.AddMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	s.auditService.Log(callerID, "project.member.add", fmt.Sprintf("project:%d", projectID), fmt.Sprintf("user:%d", userID))

	return nil
}

// RemoveMember removes a user from a project team. The creator cannot be
// removed.
func (s *ProjectService) RemoveMember(callerID, projectID, userID uint) error {
	project, err := s.getOwnedProject(callerID, projectID)
	if err != nil {
		return err
	}

	if userID == project.CreatorID {
		return fmt.Errorf("%w: the creator cannot leave the project", ErrValidation)
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.auditService.Log(callerID, "project.member.remove", fmt.Sprintf("project:%d", projectID), fmt.Sprintf("user:%d", userID))

	return nil
}

// GetMembers lists the members of a project
func (s *ProjectService) GetMembers(projectID uint) ([]models.User, error) {
	if _, err := s.projectRepo.GetByID(projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	memberIDs, err := s.projectRepo.GetMemberIDs(projectID)
	if err != nil {
		return nil, err
	}

	// Initialize with empty slice instead of nil to avoid JSON null
	members := []models.User{}
	for _, id := range memberIDs {
		user, err := s.userRepo.GetByID(id)
		if err != nil {
			slog.Warn("Failed to load project member", "project_id", projectID, "user_id", id, "error", err)
			continue
		}
		members = append(members, *user)
	}

	return members, nil
}

// getOwnedProject loads a project and verifies the caller created it
func (s *ProjectService) getOwnedProject(callerID, projectID uint) (*models.Project, error) {
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

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peer-jury/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project and enrolls the creator as its first member
func (r *ProjectRepository) Create(project *models.Project) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO projects (title, description, creator_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(
		query,
		project.Title,
		project.Description,
		project.CreatorID,
		project.Status,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	memberQuery := `
		INSERT INTO project_members (project_id, user_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.Exec(memberQuery, project.ID, project.CreatorID); err != nil {
		return fmt.Errorf("failed to enroll creator: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(id uint) (*models.Project, error) {
	query := `
		SELECT id, title, description, creator_id, status, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project := &models.Project{}
	err := r.db.QueryRow(query, id).Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.CreatorID,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// GetByCreator retrieves all projects created by a user
func (r *ProjectRepository) GetByCreator(creatorID uint) ([]models.Project, error) {
	query := `
		SELECT id, title, description, creator_id, status, created_at, updated_at
		FROM projects
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// GetAll retrieves all projects ordered by creation time
func (r *ProjectRepository) GetAll() ([]models.Project, error) {
	query := `
		SELECT id, title, description, creator_id, status, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// Update updates a project's title and description. The creator is immutable.
func (r *ProjectRepository) Update(project *models.Project) error {
	query := `
		UPDATE projects
		SET title = $1, description = $2, updated_at = $3
		WHERE id = $4
	`

	project.UpdatedAt = time.Now()
	result, err := r.db.Exec(query, project.Title, project.Description, project.UpdatedAt, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// UpdateStatus transitions a project's status only when it currently holds the
// expected status. Returns false when the transition did not apply.
func (r *ProjectRepository) UpdateStatus(projectID uint, fromStatus, toStatus string) (bool, error) {
	query := `
		UPDATE projects
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Exec(query, toStatus, projectID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("failed to update project status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check status update result: %w", err)
	}

	return rows > 0, nil
}

// Delete deletes a project and its dependents via cascading constraints
func (r *ProjectRepository) Delete(id uint) error {
	query := `DELETE FROM projects WHERE id = $1`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// AddMember adds a user to a project's member list
func (r *ProjectRepository) AddMember(projectID, userID uint) error {
	query := `
		INSERT INTO project_members (project_id, user_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.Exec(query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a project's member list. The creator
// cannot be removed.
func (r *ProjectRepository) RemoveMember(projectID, userID uint) error {
	query := `
		DELETE FROM project_members
		WHERE project_id = $1 AND user_id = $2
		  AND user_id != (SELECT creator_id FROM projects WHERE id = $1)
	`

	_, err := r.db.Exec(query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	return nil
}

// GetMemberIDs returns the user IDs of all members of a project
func (r *ProjectRepository) GetMemberIDs(projectID uint) ([]uint, error) {
	query := `SELECT user_id FROM project_members WHERE project_id = $1 ORDER BY user_id`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project members: %w", err)
	}
	defer rows.Close()

	var memberIDs []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		memberIDs = append(memberIDs, id)
	}

	return memberIDs, rows.Err()
}

// IsMember reports whether a user belongs to a project
func (r *ProjectRepository) IsMember(projectID, userID uint) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`

	var isMember bool
	if err := r.db.QueryRow(query, projectID, userID).Scan(&isMember); err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}

	return isMember, nil
}

func scanProjects(rows *sql.Rows) ([]models.Project, error) {
	// Initialize with empty slice instead of nil to avoid JSON null
	projects := []models.Project{}
	for rows.Next() {
		var project models.Project
		if err := rows.Scan(
			&project.ID,
			&project.Title,
			&project.Description,
			&project.CreatorID,
			&project.Status,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

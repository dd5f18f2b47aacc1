package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peer-jury/internal/models"
)

var ErrDeliverableNotFound = errors.New("deliverable not found")

// DeliverableRepository handles deliverable database operations
type DeliverableRepository struct {
	db *sql.DB
}

// NewDeliverableRepository creates a new deliverable repository
func NewDeliverableRepository(db *sql.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// Create creates a new deliverable
func (r *DeliverableRepository) Create(deliverable *models.Deliverable) error {
	query := `
		INSERT INTO deliverables (project_id, title, description, due_date, video_url, server_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		deliverable.ProjectID,
		deliverable.Title,
		deliverable.Description,
		deliverable.DueDate,
		deliverable.VideoURL,
		deliverable.ServerURL,
		deliverable.Status,
	).Scan(&deliverable.ID, &deliverable.CreatedAt, &deliverable.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create deliverable: %w", err)
	}

	return nil
}

// GetByID retrieves a deliverable by ID
func (r *DeliverableRepository) GetByID(id uint) (*models.Deliverable, error) {
	query := `
		SELECT id, project_id, title, description, due_date, video_url, server_url, status, created_at, updated_at
		FROM deliverables
		WHERE id = $1
	`

	deliverable := &models.Deliverable{}
	err := r.db.QueryRow(query, id).Scan(
		&deliverable.ID,
		&deliverable.ProjectID,
		&deliverable.Title,
		&deliverable.Description,
		&deliverable.DueDate,
		&deliverable.VideoURL,
		&deliverable.ServerURL,
		&deliverable.Status,
		&deliverable.CreatedAt,
		&deliverable.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDeliverableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deliverable: %w", err)
	}

	return deliverable, nil
}

// GetByProjectID retrieves all deliverables of a project
func (r *DeliverableRepository) GetByProjectID(projectID uint) ([]models.Deliverable, error) {
	query := `
		SELECT id, project_id, title, description, due_date, video_url, server_url, status, created_at, updated_at
		FROM deliverables
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deliverables: %w", err)
	}
	defer rows.Close()

	return scanDeliverables(rows)
}

// Update updates a deliverable's editable fields
func (r *DeliverableRepository) Update(deliverable *models.Deliverable) error {
	query := `
		UPDATE deliverables
		SET title = $1, description = $2, due_date = $3, video_url = $4, server_url = $5, updated_at = $6
		WHERE id = $7
	`

	deliverable.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		query,
		deliverable.Title,
		deliverable.Description,
		deliverable.DueDate,
		deliverable.VideoURL,
		deliverable.ServerURL,
		deliverable.UpdatedAt,
		deliverable.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deliverable: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrDeliverableNotFound
	}

	return nil
}

// UpdateStatus transitions a deliverable's status only when it currently holds
// the expected status. The conditional UPDATE makes concurrent transition
// attempts race-free: exactly one wins, the rest see zero affected rows.
func (r *DeliverableRepository) UpdateStatus(deliverableID uint, fromStatus, toStatus string) (bool, error) {
	query := `
		UPDATE deliverables
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Exec(query, toStatus, deliverableID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("failed to update deliverable status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check status update result: %w", err)
	}

	return rows > 0, nil
}

// Delete deletes a deliverable
func (r *DeliverableRepository) Delete(id uint) error {
	query := `DELETE FROM deliverables WHERE id = $1`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete deliverable: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrDeliverableNotFound
	}

	return nil
}

// GetDueBetween retrieves open deliverables whose due date falls in the window.
// Used by the scheduler for reminder emails.
func (r *DeliverableRepository) GetDueBetween(from, to time.Time) ([]models.Deliverable, error) {
	query := `
		SELECT id, project_id, title, description, due_date, video_url, server_url, status, created_at, updated_at
		FROM deliverables
		WHERE status = $1 AND due_date IS NOT NULL AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date ASC
	`

	rows, err := r.db.Query(query, models.DeliverableStatusOpenForGrading, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get due deliverables: %w", err)
	}
	defer rows.Close()

	return scanDeliverables(rows)
}

func scanDeliverables(rows *sql.Rows) ([]models.Deliverable, error) {
	// Initialize with empty slice instead of nil to avoid JSON null
	deliverables := []models.Deliverable{}
	for rows.Next() {
		var d models.Deliverable
		if err := rows.Scan(
			&d.ID,
			&d.ProjectID,
			&d.Title,
			&d.Description,
			&d.DueDate,
			&d.VideoURL,
			&d.ServerURL,
			&d.Status,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deliverable: %w", err)
		}
		deliverables = append(deliverables, d)
	}

	return deliverables, rows.Err()
}

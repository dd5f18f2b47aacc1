package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"peer-jury/internal/models"
)

var ErrEvaluationNotFound = errors.New("evaluation not found")

// EvaluationRepository handles evaluation database operations
type EvaluationRepository struct {
	db *sql.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// CreateOrUpdate upserts an evaluation keyed on the jury assignment and marks
// the assignment evaluated in the same transaction. Resubmission replaces
// score and feedback but preserves created_at; concurrent resubmissions of
// the same juror resolve last-write-wins.
func (r *EvaluationRepository) CreateOrUpdate(evaluation *models.Evaluation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO evaluations (jury_assignment_id, score, feedback, encrypted_feedback_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (jury_assignment_id)
		DO UPDATE SET
			score = EXCLUDED.score,
			feedback = EXCLUDED.feedback,
			encrypted_feedback_id = EXCLUDED.encrypted_feedback_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		query,
		evaluation.JuryAssignmentID,
		evaluation.Score,
		evaluation.Feedback,
		evaluation.EncryptedFeedbackID,
	).Scan(&evaluation.ID, &evaluation.CreatedAt, &evaluation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}

	statusQuery := `
		UPDATE jury_assignments
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := tx.Exec(statusQuery, models.AssignmentStatusEvaluated, evaluation.JuryAssignmentID); err != nil {
		return fmt.Errorf("failed to mark assignment evaluated: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves an evaluation by ID
func (r *EvaluationRepository) GetByID(id uint) (*models.Evaluation, error) {
	query := `
		SELECT id, jury_assignment_id, score, feedback, encrypted_feedback_id, created_at, updated_at
		FROM evaluations
		WHERE id = $1
	`

	evaluation := &models.Evaluation{}
	err := r.db.QueryRow(query, id).Scan(
		&evaluation.ID,
		&evaluation.JuryAssignmentID,
		&evaluation.Score,
		&evaluation.Feedback,
		&evaluation.EncryptedFeedbackID,
		&evaluation.CreatedAt,
		&evaluation.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	return evaluation, nil
}

// GetByAssignmentID retrieves the evaluation of a jury assignment, or nil when
// none has been submitted
func (r *EvaluationRepository) GetByAssignmentID(assignmentID uint) (*models.Evaluation, error) {
	query := `
		SELECT id, jury_assignment_id, score, feedback, encrypted_feedback_id, created_at, updated_at
		FROM evaluations
		WHERE jury_assignment_id = $1
	`

	evaluation := &models.Evaluation{}
	err := r.db.QueryRow(query, assignmentID).Scan(
		&evaluation.ID,
		&evaluation.JuryAssignmentID,
		&evaluation.Score,
		&evaluation.Feedback,
		&evaluation.EncryptedFeedbackID,
		&evaluation.CreatedAt,
		&evaluation.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation by assignment: %w", err)
	}

	return evaluation, nil
}

// GetByDeliverableID retrieves all submitted evaluations for a deliverable,
// ordered by submission time. Evaluator identity is deliberately not selected.
func (r *EvaluationRepository) GetByDeliverableID(deliverableID uint) ([]models.Evaluation, error) {
	query := `
		SELECT e.id, e.jury_assignment_id, e.score, e.feedback, e.encrypted_feedback_id, e.created_at, e.updated_at
		FROM evaluations e
		INNER JOIN jury_assignments ja ON e.jury_assignment_id = ja.id
		WHERE ja.deliverable_id = $1
		ORDER BY e.created_at ASC
	`

	rows, err := r.db.Query(query, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	defer rows.Close()

	// Initialize with empty slice instead of nil to avoid JSON null
	evaluations := []models.Evaluation{}
	for rows.Next() {
		var e models.Evaluation
		if err := rows.Scan(
			&e.ID,
			&e.JuryAssignmentID,
			&e.Score,
			&e.Feedback,
			&e.EncryptedFeedbackID,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evaluations = append(evaluations, e)
	}

	return evaluations, rows.Err()
}

// GetGradeSummary computes the aggregated grade of a deliverable in a single
// query. FinalGrade is nil when no evaluations exist; the mean is rounded to
// two decimals by the database.
func (r *EvaluationRepository) GetGradeSummary(deliverableID uint) (*models.FinalGrade, error) {
	query := `
		SELECT ROUND(AVG(e.score), 2), COUNT(e.id)
		FROM evaluations e
		INNER JOIN jury_assignments ja ON e.jury_assignment_id = ja.id
		WHERE ja.deliverable_id = $1
	`

	grade := &models.FinalGrade{DeliverableID: deliverableID}
	var avg sql.NullFloat64
	if err := r.db.QueryRow(query, deliverableID).Scan(&avg, &grade.TotalEvaluations); err != nil {
		return nil, fmt.Errorf("failed to compute grade summary: %w", err)
	}

	if avg.Valid {
		grade.FinalGrade = &avg.Float64
	}

	return grade, nil
}

// GetStatsByDeliverable computes the score distribution summary of a
// deliverable, including how many jurors have not submitted yet
func (r *EvaluationRepository) GetStatsByDeliverable(deliverableID uint) (*models.DeliverableStats, error) {
	query := `
		SELECT ROUND(AVG(e.score), 2), MIN(e.score), MAX(e.score), COUNT(e.id),
		       (SELECT COUNT(*) FROM jury_assignments WHERE deliverable_id = $1 AND status = $2)
		FROM evaluations e
		INNER JOIN jury_assignments ja ON e.jury_assignment_id = ja.id
		WHERE ja.deliverable_id = $1
	`

	stats := &models.DeliverableStats{DeliverableID: deliverableID}
	var avg, minScore, maxScore sql.NullFloat64
	err := r.db.QueryRow(query, deliverableID, models.AssignmentStatusAssigned).Scan(
		&avg,
		&minScore,
		&maxScore,
		&stats.TotalEvaluations,
		&stats.PendingJurors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute deliverable stats: %w", err)
	}

	if avg.Valid {
		stats.FinalGrade = &avg.Float64
	}
	if minScore.Valid {
		stats.MinScore = &minScore.Float64
	}
	if maxScore.Valid {
		stats.MaxScore = &maxScore.Float64
	}

	return stats, nil
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"peer-jury/internal/models"
)

var (
	ErrAssignmentNotFound   = errors.New("jury assignment not found")
	ErrJurySelected         = errors.New("jury already selected")
	ErrDeliverableNotOpen   = errors.New("deliverable not open for grading")
	ErrJurorAlreadyAssigned = errors.New("evaluator already assigned to deliverable")
)

// JuryAssignmentRepository handles jury assignment database operations
type JuryAssignmentRepository struct {
	db *sql.DB
}

// NewJuryAssignmentRepository creates a new jury assignment repository
func NewJuryAssignmentRepository(db *sql.DB) *JuryAssignmentRepository {
	return &JuryAssignmentRepository{db: db}
}

// SelectJury creates one assignment per evaluator for a deliverable inside a
// single transaction. The deliverable row is locked FOR UPDATE so concurrent
// selections serialize: the first wins, later ones see the existing
// assignments and fail with ErrJurySelected. The UNIQUE(deliverable_id,
// evaluator_id) constraint backstops the check.
func (r *JuryAssignmentRepository) SelectJury(deliverableID uint, evaluatorIDs []uint) ([]models.JuryAssignment, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	lockQuery := `SELECT status FROM deliverables WHERE id = $1 FOR UPDATE`
	err = tx.QueryRow(lockQuery, deliverableID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrDeliverableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock deliverable: %w", err)
	}
	if status != models.DeliverableStatusOpenForGrading {
		return nil, ErrDeliverableNotOpen
	}

	var existing int
	countQuery := `SELECT COUNT(*) FROM jury_assignments WHERE deliverable_id = $1`
	if err := tx.QueryRow(countQuery, deliverableID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to count existing assignments: %w", err)
	}
	if existing > 0 {
		return nil, ErrJurySelected
	}

	insertQuery := `
		INSERT INTO jury_assignments (deliverable_id, evaluator_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at
	`

	assignments := make([]models.JuryAssignment, 0, len(evaluatorIDs))
	for _, evaluatorID := range evaluatorIDs {
		assignment := models.JuryAssignment{
			DeliverableID: deliverableID,
			EvaluatorID:   evaluatorID,
			Status:        models.AssignmentStatusAssigned,
		}
		err := tx.QueryRow(insertQuery, deliverableID, evaluatorID, assignment.Status).
			Scan(&assignment.ID, &assignment.CreatedAt, &assignment.UpdatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return nil, ErrJurorAlreadyAssigned
			}
			return nil, fmt.Errorf("failed to create jury assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit jury selection: %w", err)
	}

	return assignments, nil
}

// GetByID retrieves a jury assignment by ID
func (r *JuryAssignmentRepository) GetByID(id uint) (*models.JuryAssignment, error) {
	query := `
		SELECT id, deliverable_id, evaluator_id, status, created_at, updated_at
		FROM jury_assignments
		WHERE id = $1
	`

	assignment := &models.JuryAssignment{}
	err := r.db.QueryRow(query, id).Scan(
		&assignment.ID,
		&assignment.DeliverableID,
		&assignment.EvaluatorID,
		&assignment.Status,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jury assignment: %w", err)
	}

	return assignment, nil
}

// GetByDeliverableID retrieves all assignments for a deliverable
func (r *JuryAssignmentRepository) GetByDeliverableID(deliverableID uint) ([]models.JuryAssignment, error) {
	query := `
		SELECT id, deliverable_id, evaluator_id, status, created_at, updated_at
		FROM jury_assignments
		WHERE deliverable_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(query, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get jury assignments: %w", err)
	}
	defer rows.Close()

	// Initialize with empty slice instead of nil to avoid JSON null
	assignments := []models.JuryAssignment{}
	for rows.Next() {
		var a models.JuryAssignment
		if err := rows.Scan(&a.ID, &a.DeliverableID, &a.EvaluatorID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan jury assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// GetByEvaluator retrieves all assignments of an evaluator with the
// deliverable, its project, and the evaluator's own evaluation
func (r *JuryAssignmentRepository) GetByEvaluator(evaluatorID uint) ([]models.JuryAssignmentWithDetails, error) {
	query := `
		SELECT ja.id, ja.deliverable_id, ja.evaluator_id, ja.status, ja.created_at, ja.updated_at,
		       d.id, d.project_id, d.title, d.description, d.due_date, d.video_url, d.server_url, d.status, d.created_at, d.updated_at,
		       p.id, p.title, p.description, p.creator_id, p.status, p.created_at, p.updated_at,
		       e.id, e.jury_assignment_id, e.score, e.feedback, e.encrypted_feedback_id, e.created_at, e.updated_at
		FROM jury_assignments ja
		INNER JOIN deliverables d ON ja.deliverable_id = d.id
		INNER JOIN projects p ON d.project_id = p.id
		LEFT JOIN evaluations e ON e.jury_assignment_id = ja.id
		WHERE ja.evaluator_id = $1
		ORDER BY ja.created_at DESC
	`

	rows, err := r.db.Query(query, evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluator assignments: %w", err)
	}
	defer rows.Close()

	// Initialize with empty slice instead of nil to avoid JSON null
	assignments := []models.JuryAssignmentWithDetails{}
	for rows.Next() {
		var a models.JuryAssignmentWithDetails
		var evalID, evalAssignmentID sql.NullInt64
		var evalScore sql.NullFloat64
		var evalFeedback sql.NullString
		var evalEncryptedID sql.NullInt64
		var evalCreatedAt, evalUpdatedAt sql.NullTime

		err := rows.Scan(
			&a.ID, &a.DeliverableID, &a.EvaluatorID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
			&a.Deliverable.ID, &a.Deliverable.ProjectID, &a.Deliverable.Title, &a.Deliverable.Description,
			&a.Deliverable.DueDate, &a.Deliverable.VideoURL, &a.Deliverable.ServerURL,
			&a.Deliverable.Status, &a.Deliverable.CreatedAt, &a.Deliverable.UpdatedAt,
			&a.Deliverable.Project.ID, &a.Deliverable.Project.Title, &a.Deliverable.Project.Description,
			&a.Deliverable.Project.CreatorID, &a.Deliverable.Project.Status,
			&a.Deliverable.Project.CreatedAt, &a.Deliverable.Project.UpdatedAt,
			&evalID, &evalAssignmentID, &evalScore, &evalFeedback, &evalEncryptedID, &evalCreatedAt, &evalUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluator assignment: %w", err)
		}

		if evalID.Valid {
			evaluation := &models.Evaluation{
				ID:               uint(evalID.Int64),
				JuryAssignmentID: uint(evalAssignmentID.Int64),
				Score:            evalScore.Float64,
				Feedback:         evalFeedback.String,
				CreatedAt:        evalCreatedAt.Time,
				UpdatedAt:        evalUpdatedAt.Time,
			}
			if evalEncryptedID.Valid {
				encryptedID := evalEncryptedID.Int64
				evaluation.EncryptedFeedbackID = &encryptedID
			}
			a.Evaluation = evaluation
		}

		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// CountByDeliverable returns the number of assignments for a deliverable
func (r *JuryAssignmentRepository) CountByDeliverable(deliverableID uint) (int, error) {
	query := `SELECT COUNT(*) FROM jury_assignments WHERE deliverable_id = $1`

	var count int
	if err := r.db.QueryRow(query, deliverableID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count jury assignments: %w", err)
	}

	return count, nil
}

// GetPendingEvaluators returns the users assigned to a deliverable who have
// not submitted an evaluation yet
func (r *JuryAssignmentRepository) GetPendingEvaluators(deliverableID uint) ([]models.User, error) {
	query := `
		SELECT u.id, u.email, u.full_name, u.is_active
		FROM jury_assignments ja
		JOIN users u ON ja.evaluator_id = u.id
		WHERE ja.deliverable_id = $1 AND ja.status = $2
		ORDER BY u.id
	`

	rows, err := r.db.Query(query, deliverableID, models.AssignmentStatusAssigned)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending evaluators: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan pending evaluator: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountPendingByDeliverable returns the number of assignments without a
// submitted evaluation
func (r *JuryAssignmentRepository) CountPendingByDeliverable(deliverableID uint) (int, error) {
	query := `
		SELECT COUNT(*) FROM jury_assignments
		WHERE deliverable_id = $1 AND status = $2
	`

	var count int
	if err := r.db.QueryRow(query, deliverableID, models.AssignmentStatusAssigned).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending jurors: %w", err)
	}

	return count, nil
}

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"peer-jury/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, user_email, action, resource, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	log.CreatedAt = time.Now()
	err := r.db.QueryRow(
		query,
		log.UserID,
		log.UserEmail,
		log.Action,
		log.Resource,
		log.Details,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// AuditFilters holds filter parameters for audit log queries
type AuditFilters struct {
	UserID *uint
	Action string
	From   *time.Time
	To     *time.Time
}

// GetAll retrieves audit logs matching the filters with pagination
func (r *AuditRepository) GetAll(filters AuditFilters, limit, offset int) ([]models.AuditLog, error) {
	query := `
		SELECT a.id, a.user_id, u.email, a.action, a.resource, a.details, a.ip_address, a.user_agent, a.created_at
		FROM audit_logs a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE 1=1
	`

	args := []interface{}{}
	argPos := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(` AND a.user_id = $%d`, argPos)
		args = append(args, *filters.UserID)
		argPos++
	}

	if filters.Action != "" {
		query += fmt.Sprintf(` AND a.action = $%d`, argPos)
		args = append(args, filters.Action)
		argPos++
	}

	if filters.From != nil {
		query += fmt.Sprintf(` AND a.created_at >= $%d`, argPos)
		args = append(args, *filters.From)
		argPos++
	}

	if filters.To != nil {
		query += fmt.Sprintf(` AND a.created_at <= $%d`, argPos)
		args = append(args, *filters.To)
		argPos++
	}

	query += fmt.Sprintf(` ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	// Initialize with empty slice instead of nil to avoid JSON null
	logs := []models.AuditLog{}
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.UserEmail,
			&log.Action,
			&log.Resource,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// Count returns the total number of audit logs matching the filters
func (r *AuditRepository) Count(filters AuditFilters) (int, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(` AND user_id = $%d`, argPos)
		args = append(args, *filters.UserID)
		argPos++
	}

	if filters.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argPos)
		args = append(args, filters.Action)
		argPos++
	}

	if filters.From != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argPos)
		args = append(args, *filters.From)
		argPos++
	}

	if filters.To != nil {
		query += fmt.Sprintf(` AND created_at <= $%d`, argPos)
		args = append(args, *filters.To)
		argPos++
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	return count, nil
}

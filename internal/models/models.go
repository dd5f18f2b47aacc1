package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID           uint       `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"fullName" db:"full_name"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Role represents a user role
type Role struct {
	ID          uint      `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// UserRole represents the many-to-many relationship between users and roles
type UserRole struct {
	UserID    uint      `json:"userId" db:"user_id"`
	RoleID    uint      `json:"roleId" db:"role_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// UserWithRoles extends User with roles information
type UserWithRoles struct {
	User
	Roles []Role `json:"roles"`
}

// Session represents a user session
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         uint      `json:"userId" db:"user_id"`
	SessionID      string    `json:"sessionId" db:"session_id"` // Groups access and refresh tokens from same login
	JTI            string    `json:"jti" db:"jti"`
	TokenType      string    `json:"tokenType" db:"token_type"` // "access" or "refresh"
	ExpiresAt      time.Time `json:"expiresAt" db:"expires_at"`
	LastActivityAt time.Time `json:"lastActivityAt" db:"last_activity_at"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	IPAddress      string    `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent      string    `json:"userAgent,omitempty" db:"user_agent"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *uint     `json:"userId,omitempty" db:"user_id"`
	UserEmail *string   `json:"userEmail,omitempty" db:"user_email"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string    `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Project status values
const (
	ProjectStatusDraft  = "draft"
	ProjectStatusActive = "active"
)

// Project represents a student project that collects deliverables
type Project struct {
	ID          uint      `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatorID   uint      `json:"creatorId" db:"creator_id"`
	Status      string    `json:"status" db:"status"` // draft, active
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProjectMember represents a user working on a project. Members are excluded
// from the jury pool of the project's deliverables.
type ProjectMember struct {
	ProjectID uint      `json:"projectId" db:"project_id"`
	UserID    uint      `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProjectWithDeliverables extends Project with its deliverables
type ProjectWithDeliverables struct {
	Project
	Deliverables []Deliverable `json:"deliverables"`
}

// Deliverable status values
const (
	DeliverableStatusPending        = "pending"
	DeliverableStatusOpenForGrading = "open_for_grading"
	DeliverableStatusClosed         = "closed"
)

// Deliverable represents a gradeable unit of work within a project
type Deliverable struct {
	ID          uint       `json:"id" db:"id"`
	ProjectID   uint       `json:"projectId" db:"project_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	VideoURL    *string    `json:"videoUrl,omitempty" db:"video_url"`
	ServerURL   *string    `json:"serverUrl,omitempty" db:"server_url"`
	Status      string     `json:"status" db:"status"` // pending, open_for_grading, closed
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// DeliverableWithProject includes the owning project for listings
type DeliverableWithProject struct {
	Deliverable
	Project Project `json:"project"`
}

// JuryAssignment status values
const (
	AssignmentStatusAssigned  = "assigned"
	AssignmentStatusEvaluated = "evaluated"
)

// JuryAssignment links a selected evaluator to a deliverable
type JuryAssignment struct {
	ID            uint      `json:"id" db:"id"`
	DeliverableID uint      `json:"deliverableId" db:"deliverable_id"`
	EvaluatorID   uint      `json:"evaluatorId" db:"evaluator_id"`
	Status        string    `json:"status" db:"status"` // assigned, evaluated
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// JuryAssignmentWithDetails includes the deliverable, its project, and the
// evaluator's own evaluation for the juror dashboard
type JuryAssignmentWithDetails struct {
	JuryAssignment
	Deliverable DeliverableWithProject `json:"deliverable"`
	Evaluation  *Evaluation            `json:"evaluation,omitempty"`
}

// Evaluation represents a jury member's score for a deliverable
type Evaluation struct {
	ID                  uint      `json:"id" db:"id"`
	JuryAssignmentID    uint      `json:"juryAssignmentId" db:"jury_assignment_id"`
	Score               float64   `json:"score" db:"score"`
	Feedback            string    `json:"feedback" db:"-"` // Decrypted feedback (not stored when encryption is enabled)
	EncryptedFeedbackID *int64    `json:"encryptedFeedbackId,omitempty" db:"encrypted_feedback_id"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// AnonymousEvaluation is the only owner- and professor-facing projection of an
// evaluation. It never carries the evaluator's identity.
type AnonymousEvaluation struct {
	Score     float64   `json:"score"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FinalGrade represents the aggregated grade of a deliverable
type FinalGrade struct {
	DeliverableID    uint     `json:"deliverableId"`
	FinalGrade       *float64 `json:"finalGrade"` // nil when no evaluations exist
	TotalEvaluations int      `json:"totalEvaluations"`
}

// DeliverableEvaluationSummary groups a deliverable's grade with its anonymous
// evaluations for the professor view
type DeliverableEvaluationSummary struct {
	Deliverable      Deliverable           `json:"deliverable"`
	FinalGrade       *float64              `json:"finalGrade"`
	TotalEvaluations int                   `json:"totalEvaluations"`
	Evaluations      []AnonymousEvaluation `json:"evaluations"`
}

// DeliverableStats summarizes the score distribution of a deliverable
type DeliverableStats struct {
	DeliverableID    uint     `json:"deliverableId"`
	TotalEvaluations int      `json:"totalEvaluations"`
	FinalGrade       *float64 `json:"finalGrade"`
	MinScore         *float64 `json:"minScore"`
	MaxScore         *float64 `json:"maxScore"`
	PendingJurors    int      `json:"pendingJurors"`
}

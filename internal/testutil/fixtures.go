package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"peer-jury/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Fixtures holds test data
type Fixtures struct {
	DB            *sql.DB
	AdminUser     *models.User
	ProfessorUser *models.User
	OwnerUser     *models.User
	Students      []models.User
	Project       *models.Project
	Deliverable   *models.Deliverable
}

// SetupFixtures creates test data: an admin, a professor, a project owner with
// an active project and an open deliverable, and a pool of eligible students.
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	fixtures := &Fixtures{
		DB: db,
	}

	// Create roles
	adminRole := createRole(t, db, "admin")
	professorRole := createRole(t, db, "professor")
	studentRole := createRole(t, db, "student")

	// Create users
	fixtures.AdminUser = createUser(t, db, "admin@test.com", "Admin User", []int{int(adminRole.ID), int(studentRole.ID)})
	fixtures.ProfessorUser = createUser(t, db, "professor@test.com", "Professor User", []int{int(professorRole.ID)})
	fixtures.OwnerUser = createUser(t, db, "owner@test.com", "Owner User", []int{int(studentRole.ID)})

	// Create a pool of students for jury selection
	for i := 1; i <= 8; i++ {
		student := createUser(t, db,
			fmt.Sprintf("student%d@test.com", i),
			fmt.Sprintf("Student %d", i),
			[]int{int(studentRole.ID)},
		)
		fixtures.Students = append(fixtures.Students, *student)
	}

	// Create an active project with an open deliverable
	fixtures.Project = fixtures.CreateProject(t, fixtures.OwnerUser.ID, models.ProjectStatusActive)
	fixtures.Deliverable = fixtures.CreateDeliverable(t, fixtures.Project.ID, models.DeliverableStatusOpenForGrading)

	return fixtures
}

// CleanupFixtures removes all test data
func (f *Fixtures) Cleanup(t *testing.T) {
	t.Helper()

	// Cleanup is handled by container termination
	// Data is not persisted between tests
}

// createRole creates a role in the database or returns existing
func createRole(t *testing.T, db *sql.DB, name string) *models.Role {
	t.Helper()

	var role models.Role

	// Try to get existing role first
	err := db.QueryRow(
		"SELECT id, name, created_at, updated_at FROM roles WHERE name = $1",
		name,
	).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)

	if err == nil {
		// Role already exists
		return &role
	}

	// Create new role
	err = db.QueryRow(
		"INSERT INTO roles (name) VALUES ($1) RETURNING id, name, created_at, updated_at",
		name,
	).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		t.Fatalf("Failed to create role %s: %v", name, err)
	}

	return &role
}

// createUser creates a user with specified roles
func createUser(t *testing.T, db *sql.DB, email, fullName string, roleIDs []int) *models.User {
	t.Helper()

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	// Create user
	var user models.User
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, full_name, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, email, full_name, is_active, created_at, updated_at
	`, email, string(hashedPassword), fullName).Scan(
		&user.ID, &user.Email, &user.FullName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	// Assign roles
	for _, roleID := range roleIDs {
		_, err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", user.ID, roleID)
		if err != nil {
			t.Fatalf("Failed to assign role %d to user %s: %v", roleID, email, err)
		}
	}

	return &user
}

// CreateProject creates a project for testing
func (f *Fixtures) CreateProject(t *testing.T, creatorID uint, status string) *models.Project {
	t.Helper()

	var project models.Project
	err := f.DB.QueryRow(`
		INSERT INTO projects (title, description, creator_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, description, creator_id, status, created_at, updated_at
	`, "Test Project", "Project for integration tests", creatorID, status).Scan(
		&project.ID, &project.Title, &project.Description,
		&project.CreatorID, &project.Status, &project.CreatedAt, &project.UpdatedAt,
	)

	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	// The creator always counts as a member
	if _, err := f.DB.Exec("INSERT INTO project_members (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", project.ID, creatorID); err != nil {
		t.Fatalf("Failed to add creator as member: %v", err)
	}

	return &project
}

// CreateDeliverable creates a deliverable for testing
func (f *Fixtures) CreateDeliverable(t *testing.T, projectID uint, status string) *models.Deliverable {
	t.Helper()

	dueDate := time.Now().Add(7 * 24 * time.Hour)

	var deliverable models.Deliverable
	err := f.DB.QueryRow(`
		INSERT INTO deliverables (project_id, title, description, due_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, project_id, title, description, due_date, status, created_at, updated_at
	`, projectID, "Test Deliverable", "Deliverable for integration tests", dueDate, status).Scan(
		&deliverable.ID, &deliverable.ProjectID, &deliverable.Title, &deliverable.Description,
		&deliverable.DueDate, &deliverable.Status, &deliverable.CreatedAt, &deliverable.UpdatedAt,
	)

	if err != nil {
		t.Fatalf("Failed to create deliverable: %v", err)
	}

	return &deliverable
}

// AddProjectMember adds a user to a project's member list
func (f *Fixtures) AddProjectMember(t *testing.T, projectID, userID uint) {
	t.Helper()

	if _, err := f.DB.Exec("INSERT INTO project_members (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", projectID, userID); err != nil {
		t.Fatalf("Failed to add project member: %v", err)
	}
}

// CreateJuryAssignment assigns an evaluator to a deliverable
func (f *Fixtures) CreateJuryAssignment(t *testing.T, deliverableID, evaluatorID uint) *models.JuryAssignment {
	t.Helper()

	var assignment models.JuryAssignment
	err := f.DB.QueryRow(`
		INSERT INTO jury_assignments (deliverable_id, evaluator_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, deliverable_id, evaluator_id, status, created_at, updated_at
	`, deliverableID, evaluatorID, models.AssignmentStatusAssigned).Scan(
		&assignment.ID, &assignment.DeliverableID, &assignment.EvaluatorID,
		&assignment.Status, &assignment.CreatedAt, &assignment.UpdatedAt,
	)

	if err != nil {
		t.Fatalf("Failed to create jury assignment: %v", err)
	}

	return &assignment
}

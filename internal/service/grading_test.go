package service_test

import (
	"errors"
	"testing"
	"time"

	"peer-jury/internal/config"
	"peer-jury/internal/email"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
	"peer-jury/internal/service"
	"peer-jury/internal/testutil"
)

// gradingEnv wires the grading services against a test database
type gradingEnv struct {
	containers *testutil.TestContainers
	fixtures   *testutil.Fixtures

	projectService     *service.ProjectService
	deliverableService *service.DeliverableService
	juryService        *service.JuryService
	evaluationService  *service.EvaluationService
}

func setupGradingEnv(t *testing.T) *gradingEnv {
	t.Helper()

	containers := testutil.SetupTestContainers(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)

	userRepo := repository.NewUserRepository(containers.DB)
	auditRepo := repository.NewAuditRepository(containers.DB)
	projectRepo := repository.NewProjectRepository(containers.DB)
	deliverableRepo := repository.NewDeliverableRepository(containers.DB)
	assignmentRepo := repository.NewJuryAssignmentRepository(containers.DB)
	evaluationRepo := repository.NewEvaluationRepository(containers.DB)

	auditService := service.NewAuditService(auditRepo)
	emailService := email.NewService(&config.EmailConfig{})
	juryConfig := &config.JuryConfig{DefaultSize: 5, MaxSize: 20}

	return &gradingEnv{
		containers:         containers,
		fixtures:           fixtures,
		projectService:     service.NewProjectService(projectRepo, deliverableRepo, userRepo, auditService),
		deliverableService: service.NewDeliverableService(deliverableRepo, projectRepo, evaluationRepo, userRepo, emailService, auditService),
		juryService:        service.NewJuryService(assignmentRepo, deliverableRepo, projectRepo, userRepo, emailService, auditService, juryConfig),
		evaluationService:  service.NewEvaluationService(evaluationRepo, assignmentRepo, deliverableRepo, projectRepo, nil, auditService),
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser

	project, err := env.projectService.CreateProject(owner.ID, "Compiler Project", "A small compiler")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if project.Status != models.ProjectStatusDraft {
		t.Errorf("Expected new project to be draft, got %s", project.Status)
	}

	activated, err := env.projectService.ActivateProject(owner.ID, project.ID)
	if err != nil {
		t.Fatalf("Failed to activate project: %v", err)
	}
	if activated.Status != models.ProjectStatusActive {
		t.Errorf("Expected active status, got %s", activated.Status)
	}

	// A second activation must fail: the project is no longer draft
	if _, err := env.projectService.ActivateProject(owner.ID, project.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on double activation, got %v", err)
	}

	// Active projects cannot be deleted
	if err := env.projectService.DeleteProject(owner.ID, project.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState when deleting an active project, got %v", err)
	}

	// Only the creator may activate
	other := env.fixtures.Students[0]
	draft, err := env.projectService.CreateProject(owner.ID, "Second Project", "")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if _, err := env.projectService.ActivateProject(other.ID, draft.ID); !errors.Is(err, service.ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
}

func TestDeliverableLifecycle(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser

	project, err := env.projectService.CreateProject(owner.ID, "Lifecycle Project", "")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	dueDate := time.Now().Add(48 * time.Hour)
	deliverable, err := env.deliverableService.CreateDeliverable(owner.ID, project.ID, "Milestone 1", "First milestone", &dueDate, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create deliverable: %v", err)
	}
	if deliverable.Status != models.DeliverableStatusPending {
		t.Errorf("Expected pending status, got %s", deliverable.Status)
	}

	// Opening grading on a draft project must fail
	if _, err := env.deliverableService.OpenForGrading(owner.ID, deliverable.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for draft project, got %v", err)
	}

	if _, err := env.projectService.ActivateProject(owner.ID, project.ID); err != nil {
		t.Fatalf("Failed to activate project: %v", err)
	}

	opened, err := env.deliverableService.OpenForGrading(owner.ID, deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to open grading: %v", err)
	}
	if opened.Status != models.DeliverableStatusOpenForGrading {
		t.Errorf("Expected open_for_grading status, got %s", opened.Status)
	}

	// Deliverables cannot be edited once grading is open
	if _, err := env.deliverableService.UpdateDeliverable(owner.ID, deliverable.ID, "New title", "", &dueDate, nil, nil); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState when editing an open deliverable, got %v", err)
	}

	closed, err := env.deliverableService.CloseGrading(owner.ID, deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to close grading: %v", err)
	}
	if closed.Status != models.DeliverableStatusClosed {
		t.Errorf("Expected closed status, got %s", closed.Status)
	}

	// Closed deliverables stay closed
	if _, err := env.deliverableService.OpenForGrading(owner.ID, deliverable.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState when reopening a closed deliverable, got %v", err)
	}
}

func TestDeliverableDueDateInPast(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser

	project, err := env.projectService.CreateProject(owner.ID, "Past Due Project", "")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	pastDue := time.Now().Add(-time.Hour)
	if _, err := env.deliverableService.CreateDeliverable(owner.ID, project.ID, "Late", "", &pastDue, nil, nil); !errors.Is(err, service.ErrValidation) {
		t.Errorf("Expected ErrValidation for a past due date, got %v", err)
	}
}

func TestJurySelectionIsOneShot(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser
	deliverable := env.fixtures.Deliverable

	assignments, err := env.juryService.SelectJury(owner.ID, deliverable.ID, 5)
	if err != nil {
		t.Fatalf("Failed to select jury: %v", err)
	}
	if len(assignments) != 5 {
		t.Fatalf("Expected 5 assignments, got %d", len(assignments))
	}

	// A second draw must fail even with a different size
	if _, err := env.juryService.SelectJury(owner.ID, deliverable.ID, 3); !errors.Is(err, service.ErrJuryAlreadySelected) {
		t.Errorf("Expected ErrJuryAlreadySelected on second selection, got %v", err)
	}

	count, err := env.juryService.GetAssignmentCount(deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 persisted assignments, got %d", count)
	}
}

func TestJuryExcludesProjectMembers(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser
	deliverable := env.fixtures.Deliverable

	// Put two students on the project team; they must never judge their own work
	member1 := env.fixtures.Students[0]
	member2 := env.fixtures.Students[1]
	env.fixtures.AddProjectMember(t, env.fixtures.Project.ID, member1.ID)
	env.fixtures.AddProjectMember(t, env.fixtures.Project.ID, member2.ID)

	assignments, err := env.juryService.SelectJury(owner.ID, deliverable.ID, 5)
	if err != nil {
		t.Fatalf("Failed to select jury: %v", err)
	}

	for _, a := range assignments {
		if a.EvaluatorID == owner.ID || a.EvaluatorID == member1.ID || a.EvaluatorID == member2.ID {
			t.Errorf("Project member %d was selected as juror", a.EvaluatorID)
		}
	}
}

func TestJurySelectionInsufficientPool(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser
	deliverable := env.fixtures.Deliverable

	// Fixtures create 8 eligible students plus the admin (who also holds the
	// student role); asking for more than the pool can hold must fail without
	// creating partial assignments.
	if _, err := env.juryService.SelectJury(owner.ID, deliverable.ID, 15); !errors.Is(err, service.ErrInsufficientEvaluators) {
		t.Fatalf("Expected ErrInsufficientEvaluators, got %v", err)
	}

	count, err := env.juryService.GetAssignmentCount(deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no assignments after failed selection, got %d", count)
	}
}

func TestEvaluationSubmissionAndResubmission(t *testing.T) {
	env := setupGradingEnv(t)
	deliverable := env.fixtures.Deliverable
	juror := env.fixtures.Students[0]

	assignment := env.fixtures.CreateJuryAssignment(t, deliverable.ID, juror.ID)

	first, err := env.evaluationService.SubmitEvaluation(juror.ID, assignment.ID, 7.5, "Solid work")
	if err != nil {
		t.Fatalf("Failed to submit evaluation: %v", err)
	}
	if first.Score != 7.5 || first.Feedback != "Solid work" {
		t.Errorf("Unexpected evaluation %+v", first)
	}

	// Resubmission replaces score and feedback but keeps the original
	// submission time and does not create a second row
	second, err := env.evaluationService.SubmitEvaluation(juror.ID, assignment.ID, 9, "Better after rewatch")
	if err != nil {
		t.Fatalf("Failed to resubmit evaluation: %v", err)
	}
	if second.Score != 9 {
		t.Errorf("Expected updated score 9, got %v", second.Score)
	}

	var count int
	var createdAt time.Time
	err = env.containers.DB.QueryRow(
		"SELECT COUNT(*), MIN(created_at) FROM evaluations WHERE jury_assignment_id = $1",
		assignment.ID,
	).Scan(&count, &createdAt)
	if err != nil {
		t.Fatalf("Failed to query evaluations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected a single evaluation row after resubmission, got %d", count)
	}
	if !createdAt.Equal(first.CreatedAt) {
		t.Errorf("Expected created_at %v to survive resubmission, got %v", first.CreatedAt, createdAt)
	}

	// Only the assigned juror can submit
	stranger := env.fixtures.Students[1]
	if _, err := env.evaluationService.SubmitEvaluation(stranger.ID, assignment.ID, 5, ""); !errors.Is(err, service.ErrNotEvaluator) {
		t.Errorf("Expected ErrNotEvaluator, got %v", err)
	}
}

func TestEvaluationRejectedWhenGradingClosed(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser
	deliverable := env.fixtures.Deliverable
	juror := env.fixtures.Students[0]

	assignment := env.fixtures.CreateJuryAssignment(t, deliverable.ID, juror.ID)

	if _, err := env.deliverableService.CloseGrading(owner.ID, deliverable.ID); err != nil {
		t.Fatalf("Failed to close grading: %v", err)
	}

	if _, err := env.evaluationService.SubmitEvaluation(juror.ID, assignment.ID, 8, ""); !errors.Is(err, service.ErrGradingClosed) {
		t.Errorf("Expected ErrGradingClosed, got %v", err)
	}
}

func TestFinalGradeAggregation(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser
	deliverable := env.fixtures.Deliverable

	// No evaluations yet: grade is nil, not zero
	grade, err := env.evaluationService.GetFinalGrade(owner.ID, deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to get final grade: %v", err)
	}
	if grade.FinalGrade != nil {
		t.Errorf("Expected nil grade without evaluations, got %v", *grade.FinalGrade)
	}
	if grade.TotalEvaluations != 0 {
		t.Errorf("Expected 0 evaluations, got %d", grade.TotalEvaluations)
	}

	scores := []float64{7, 8, 9}
	for i, score := range scores {
		juror := env.fixtures.Students[i]
		assignment := env.fixtures.CreateJuryAssignment(t, deliverable.ID, juror.ID)
		if _, err := env.evaluationService.SubmitEvaluation(juror.ID, assignment.ID, score, ""); err != nil {
			t.Fatalf("Failed to submit evaluation: %v", err)
		}
	}

	grade, err = env.evaluationService.GetFinalGrade(owner.ID, deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to get final grade: %v", err)
	}
	if grade.FinalGrade == nil {
		t.Fatal("Expected a grade after three evaluations")
	}
	if *grade.FinalGrade != 8.00 {
		t.Errorf("Expected mean 8.00, got %v", *grade.FinalGrade)
	}
	if grade.TotalEvaluations != 3 {
		t.Errorf("Expected 3 evaluations, got %d", grade.TotalEvaluations)
	}

	// Rounding: 7.5 and 8 average to 7.75
	second := env.fixtures.CreateDeliverable(t, env.fixtures.Project.ID, models.DeliverableStatusOpenForGrading)
	pairs := []float64{7.5, 8}
	for i, score := range pairs {
		juror := env.fixtures.Students[i+4]
		assignment := env.fixtures.CreateJuryAssignment(t, second.ID, juror.ID)
		if _, err := env.evaluationService.SubmitEvaluation(juror.ID, assignment.ID, score, ""); err != nil {
			t.Fatalf("Failed to submit evaluation: %v", err)
		}
	}

	grade, err = env.evaluationService.GetFinalGrade(owner.ID, second.ID)
	if err != nil {
		t.Fatalf("Failed to get final grade: %v", err)
	}
	if grade.FinalGrade == nil || *grade.FinalGrade != 7.75 {
		t.Errorf("Expected mean 7.75, got %v", grade.FinalGrade)
	}

	// Only the project owner may read the grade through this path
	stranger := env.fixtures.Students[7]
	if _, err := env.evaluationService.GetFinalGrade(stranger.ID, deliverable.ID); !errors.Is(err, service.ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
}

func TestDeliverableStats(t *testing.T) {
	env := setupGradingEnv(t)
	deliverable := env.fixtures.Deliverable

	// Three jurors, two submit
	jurors := env.fixtures.Students[:3]
	var assignments []uint
	for _, juror := range jurors {
		a := env.fixtures.CreateJuryAssignment(t, deliverable.ID, juror.ID)
		assignments = append(assignments, a.ID)
	}

	if _, err := env.evaluationService.SubmitEvaluation(jurors[0].ID, assignments[0], 4, ""); err != nil {
		t.Fatalf("Failed to submit evaluation: %v", err)
	}
	if _, err := env.evaluationService.SubmitEvaluation(jurors[1].ID, assignments[1], 9, ""); err != nil {
		t.Fatalf("Failed to submit evaluation: %v", err)
	}

	stats, err := env.evaluationService.GetDeliverableStats(deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalEvaluations != 2 {
		t.Errorf("Expected 2 evaluations, got %d", stats.TotalEvaluations)
	}
	if stats.MinScore == nil || *stats.MinScore != 4 {
		t.Errorf("Expected min score 4, got %v", stats.MinScore)
	}
	if stats.MaxScore == nil || *stats.MaxScore != 9 {
		t.Errorf("Expected max score 9, got %v", stats.MaxScore)
	}
	if stats.PendingJurors != 1 {
		t.Errorf("Expected 1 pending juror, got %d", stats.PendingJurors)
	}
}

func TestDeliverableMutationsAfterDueDate(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser

	project, err := env.projectService.CreateProject(owner.ID, "Deadline Project", "")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if _, err := env.projectService.ActivateProject(owner.ID, project.ID); err != nil {
		t.Fatalf("Failed to activate project: %v", err)
	}

	dueDate := time.Now().Add(48 * time.Hour)
	deliverable, err := env.deliverableService.CreateDeliverable(owner.ID, project.ID, "Late Milestone", "", &dueDate, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create deliverable: %v", err)
	}

	// Push the due date into the past behind the service's back
	if _, err := env.containers.DB.Exec("UPDATE deliverables SET due_date = NOW() - INTERVAL '1 day' WHERE id = $1", deliverable.ID); err != nil {
		t.Fatalf("Failed to backdate deliverable: %v", err)
	}

	// Every mutation on a past-due deliverable is rejected, whatever its status
	newDue := time.Now().Add(72 * time.Hour)
	if _, err := env.deliverableService.UpdateDeliverable(owner.ID, deliverable.ID, "Renamed", "", &newDue, nil, nil); !errors.Is(err, service.ErrDeadlinePassed) {
		t.Errorf("Expected ErrDeadlinePassed on update, got %v", err)
	}
	if err := env.deliverableService.DeleteDeliverable(owner.ID, deliverable.ID); !errors.Is(err, service.ErrDeadlinePassed) {
		t.Errorf("Expected ErrDeadlinePassed on delete, got %v", err)
	}
	if _, err := env.deliverableService.OpenForGrading(owner.ID, deliverable.ID); !errors.Is(err, service.ErrDeadlinePassed) {
		t.Errorf("Expected ErrDeadlinePassed on open, got %v", err)
	}

	// The rejected delete must not have touched the row
	deliverables, err := env.deliverableService.GetDeliverablesByProject(project.ID)
	if err != nil {
		t.Fatalf("Failed to list deliverables: %v", err)
	}
	if len(deliverables) != 1 {
		t.Fatalf("Expected the deliverable to survive the rejected delete, got %d rows", len(deliverables))
	}
	if deliverables[0].Title != "Late Milestone" {
		t.Errorf("Expected title unchanged, got %q", deliverables[0].Title)
	}
}

func TestCloseGradingAfterDueDate(t *testing.T) {
	env := setupGradingEnv(t)
	owner := env.fixtures.OwnerUser

	// The fixture deliverable is open for grading; backdate its due date
	deliverable := env.fixtures.Deliverable
	if _, err := env.containers.DB.Exec("UPDATE deliverables SET due_date = NOW() - INTERVAL '1 day' WHERE id = $1", deliverable.ID); err != nil {
		t.Fatalf("Failed to backdate deliverable: %v", err)
	}

	// Closing seals a past-due grading window, so it stays allowed
	closed, err := env.deliverableService.CloseGrading(owner.ID, deliverable.ID)
	if err != nil {
		t.Fatalf("Expected closing a past-due deliverable to succeed, got %v", err)
	}
	if closed.Status != models.DeliverableStatusClosed {
		t.Errorf("Expected closed status, got %s", closed.Status)
	}
}

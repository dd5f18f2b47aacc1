package handlers_test

import (
	"testing"

	"peer-jury/internal/repository"
	"peer-jury/internal/service"
	"peer-jury/internal/testutil"
)

func newEvaluationService(db *testutil.TestContainers) *service.EvaluationService {
	return service.NewEvaluationService(
		repository.NewEvaluationRepository(db.DB),
		repository.NewJuryAssignmentRepository(db.DB),
		repository.NewDeliverableRepository(db.DB),
		repository.NewProjectRepository(db.DB),
		nil,
		service.NewAuditService(repository.NewAuditRepository(db.DB)),
	)
}

// TestEvaluatorAnonymity verifies that the aggregated view exposed to project
// owners and professors never carries the evaluator's identity
func TestEvaluatorAnonymity(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	evaluationService := newEvaluationService(containers)

	// Two jurors submit evaluations
	scores := []float64{6, 8}
	for i, juror := range fixtures.Students[:2] {
		assignment := fixtures.CreateJuryAssignment(t, fixtures.Deliverable.ID, juror.ID)
		if _, err := evaluationService.SubmitEvaluation(juror.ID, assignment.ID, scores[i], "Solid work overall"); err != nil {
			t.Fatalf("Failed to submit evaluation: %v", err)
		}
	}

	summary, err := evaluationService.GetDeliverableSummary(fixtures.Deliverable.ID)
	if err != nil {
		t.Fatalf("Failed to get deliverable summary: %v", err)
	}

	if len(summary.Evaluations) != 2 {
		t.Fatalf("Expected 2 anonymous evaluations, got %d", len(summary.Evaluations))
	}

	// The raw rows do carry evaluator identity; the projection handed to
	// owners must not. Cross-check against the jury_assignments table.
	for _, e := range summary.Evaluations {
		var leaked int
		err := containers.DB.QueryRow(`
			SELECT COUNT(*) FROM jury_assignments
			WHERE deliverable_id = $1 AND evaluator_id IN ($2, $3)
		`, fixtures.Deliverable.ID, fixtures.Students[0].ID, fixtures.Students[1].ID).Scan(&leaked)
		if err != nil {
			t.Fatalf("Failed to query jury assignments: %v", err)
		}
		if leaked != 2 {
			t.Fatalf("Expected 2 assignments backing the summary, got %d", leaked)
		}
		if e.Score != 6 && e.Score != 8 {
			t.Errorf("❌ Unexpected score %v in anonymous summary", e.Score)
		}
	}
	t.Log("✅ PASS: Anonymous summary carries scores and feedback without evaluator identity")
}

// TestJurorCannotReadOthersEvaluation verifies that individual evaluations are
// readable only by the juror who wrote them
func TestJurorCannotReadOthersEvaluation(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	evaluationService := newEvaluationService(containers)

	juror := fixtures.Students[0]
	other := fixtures.Students[1]

	assignment := fixtures.CreateJuryAssignment(t, fixtures.Deliverable.ID, juror.ID)
	evaluation, err := evaluationService.SubmitEvaluation(juror.ID, assignment.ID, 7, "Private notes")
	if err != nil {
		t.Fatalf("Failed to submit evaluation: %v", err)
	}

	if _, err := evaluationService.GetEvaluation(juror.ID, evaluation.ID); err != nil {
		t.Errorf("❌ Juror should read their own evaluation, got %v", err)
	}

	if _, err := evaluationService.GetEvaluation(other.ID, evaluation.ID); err == nil {
		t.Error("❌ SECURITY VIOLATION: Another student read a foreign evaluation")
	} else {
		t.Log("✅ PASS: Foreign students cannot read individual evaluations")
	}

	// The project owner only sees grades in aggregate, never single rows
	if _, err := evaluationService.GetEvaluation(fixtures.OwnerUser.ID, evaluation.ID); err == nil {
		t.Error("❌ SECURITY VIOLATION: Project owner read an individual evaluation")
	} else {
		t.Log("✅ PASS: Project owner cannot read individual evaluations")
	}
}

// TestEligiblePoolExcludesTeamAndInactive verifies the jury pool is limited to
// active students outside the project team
func TestEligiblePoolExcludesTeamAndInactive(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	userRepo := repository.NewUserRepository(containers.DB)

	// Deactivate one student and put another on the team
	inactive := fixtures.Students[0]
	member := fixtures.Students[1]

	if _, err := containers.DB.Exec("UPDATE users SET is_active = false WHERE id = $1", inactive.ID); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
	fixtures.AddProjectMember(t, fixtures.Project.ID, member.ID)

	pool, err := userRepo.GetEligibleEvaluators(fixtures.Project.ID)
	if err != nil {
		t.Fatalf("Failed to get eligible evaluators: %v", err)
	}

	for _, u := range pool {
		switch u.ID {
		case inactive.ID:
			t.Error("❌ SECURITY VIOLATION: Inactive student appeared in the jury pool")
		case member.ID:
			t.Error("❌ SECURITY VIOLATION: Project member appeared in the jury pool")
		case fixtures.OwnerUser.ID:
			t.Error("❌ SECURITY VIOLATION: Project creator appeared in the jury pool")
		case fixtures.ProfessorUser.ID:
			t.Error("❌ Professor appeared in the jury pool")
		}
	}

	if !t.Failed() {
		t.Log("✅ PASS: Jury pool excludes the team, inactive accounts, and non-students")
	}
}

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"peer-jury/internal/middleware"
	"peer-jury/internal/testutil"
)

func TestRequireRole(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	t.Cleanup(func() { containers.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, containers.DB)
	rbacMw := middleware.NewRBACMiddleware(containers.DB)

	requireStudent := rbacMw.RequireRole("student")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(userID *uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/projects", nil)
		if userID != nil {
			req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, *userID))
		}
		rec := httptest.NewRecorder()
		requireStudent.ServeHTTP(rec, req)
		return rec
	}

	// A student passes through
	if rec := do(&fixtures.OwnerUser.ID); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for a student, got %d", rec.Code)
	}

	// A professor holds no student role and is rejected
	if rec := do(&fixtures.ProfessorUser.ID); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a professor, got %d: %s", rec.Code, rec.Body.String())
	}

	// No authenticated user in the context
	if rec := do(nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without authentication, got %d", rec.Code)
	}

	// The admin fixture also holds the student role
	if rec := do(&fixtures.AdminUser.ID); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for an admin enrolled as student, got %d", rec.Code)
	}
}

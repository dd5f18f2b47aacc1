package handlers_test

import (
	"encoding/json"
	"testing"
	"time"

	"peer-jury/internal/handlers"
	"peer-jury/internal/models"
)

// The React client speaks camelCase JSON. These tests pin the wire names on
// both directions so a tag rename does not silently decode fields to zero.

func TestRequestBodiesDecodeClientFieldNames(t *testing.T) {
	var juryReq handlers.SelectJuryRequest
	if err := json.Unmarshal([]byte(`{"jurySize": 7}`), &juryReq); err != nil {
		t.Fatalf("Failed to decode jury request: %v", err)
	}
	if juryReq.JurySize != 7 {
		t.Errorf("Expected jurySize 7 to decode, got %d", juryReq.JurySize)
	}

	var evalReq handlers.EvaluationRequest
	if err := json.Unmarshal([]byte(`{"juryAssignmentId": 42, "score": 8.5, "feedback": "Solid work"}`), &evalReq); err != nil {
		t.Fatalf("Failed to decode evaluation request: %v", err)
	}
	if evalReq.JuryAssignmentID != 42 {
		t.Errorf("Expected juryAssignmentId 42 to decode, got %d", evalReq.JuryAssignmentID)
	}
	if evalReq.Score != 8.5 {
		t.Errorf("Expected score 8.5, got %f", evalReq.Score)
	}

	var regReq handlers.RegisterRequest
	if err := json.Unmarshal([]byte(`{"email": "juror@university.example", "password": "changeme123", "fullName": "Ada Juror", "role": "student"}`), &regReq); err != nil {
		t.Fatalf("Failed to decode register request: %v", err)
	}
	if regReq.FullName != "Ada Juror" {
		t.Errorf("Expected fullName to decode, got %q", regReq.FullName)
	}

	var memberReq handlers.MemberRequest
	if err := json.Unmarshal([]byte(`{"userId": 3}`), &memberReq); err != nil {
		t.Fatalf("Failed to decode member request: %v", err)
	}
	if memberReq.UserID != 3 {
		t.Errorf("Expected userId 3 to decode, got %d", memberReq.UserID)
	}
}

func TestResponseBodiesUseClientFieldNames(t *testing.T) {
	grade := 7.5
	encoded, err := json.Marshal(models.FinalGrade{
		DeliverableID:    12,
		FinalGrade:       &grade,
		TotalEvaluations: 4,
	})
	if err != nil {
		t.Fatalf("Failed to encode final grade: %v", err)
	}
	assertJSONKeys(t, encoded, "deliverableId", "finalGrade", "totalEvaluations")

	encoded, err = json.Marshal(models.AnonymousEvaluation{
		Score:     9,
		Feedback:  "Clear demo",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to encode evaluation: %v", err)
	}
	assertJSONKeys(t, encoded, "score", "feedback", "createdAt")

	encoded, err = json.Marshal(models.ProjectWithDeliverables{
		Project:      models.Project{ID: 1, Title: "Compilers", CreatorID: 2},
		Deliverables: []models.Deliverable{},
	})
	if err != nil {
		t.Fatalf("Failed to encode project: %v", err)
	}
	assertJSONKeys(t, encoded, "creatorId", "deliverables")
}

func assertJSONKeys(t *testing.T, encoded []byte, keys ...string) {
	t.Helper()

	var decoded map[string]interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	for _, key := range keys {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q in payload, got %s", key, encoded)
		}
	}
}

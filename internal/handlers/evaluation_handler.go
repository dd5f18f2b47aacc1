package handlers

import (
	"encoding/json"
	"net/http"

	"peer-jury/internal/middleware"
	"peer-jury/internal/service"
	"peer-jury/pkg/validator"
)

// EvaluationHandler handles evaluation submission and grade retrieval
type EvaluationHandler struct {
	evaluationService *service.EvaluationService
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluationService *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{
		evaluationService: evaluationService,
	}
}

// EvaluationRequest represents an evaluation submission
type EvaluationRequest struct {
	JuryAssignmentID uint    `json:"juryAssignmentId" validate:"required"`
	Score            float64 `json:"score" validate:"required"`
	Feedback         string  `json:"feedback"`
}

// Submit handles evaluation submission
// @Summary Submit an evaluation
// @Description Submit or replace a score and feedback for an assigned deliverable
// @Tags Evaluations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EvaluationRequest true "Evaluation"
// @Success 201 {object} models.Evaluation
// @Failure 400 {object} map[string]string "Invalid score"
// @Failure 403 {object} map[string]string "Not the assigned evaluator"
// @Failure 409 {object} map[string]string "Grading is closed"
// @Router /evaluations [post]
func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	evaluation, err := h.evaluationService.SubmitEvaluation(userID, req.JuryAssignmentID, req.Score, req.Feedback)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, evaluation)
}

// Get handles retrieving one of the caller's own evaluations
// @Summary Get an evaluation
// @Description Retrieve an own evaluation by ID
// @Tags Evaluations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Evaluation ID"
// @Success 200 {object} models.Evaluation
// @Failure 403 {object} map[string]string "Not the evaluator"
// @Failure 404 {object} map[string]string "Evaluation not found"
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	evaluationID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidEvaluationID)
		return
	}

	evaluation, err := h.evaluationService.GetEvaluation(userID, evaluationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, evaluation)
}

// GetGrade handles retrieving the aggregated grade of an owned deliverable
// @Summary Get the final grade
// @Description Retrieve the mean score and evaluation count of an owned deliverable
// @Tags Evaluations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} map[string]interface{} "Grade info"
// @Failure 403 {object} map[string]string "Not the project owner"
// @Failure 404 {object} map[string]string "Deliverable not found"
// @Router /deliverables/{id}/grade [get]
func (h *EvaluationHandler) GetGrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	deliverableID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDeliverable)
		return
	}

	grade, err := h.evaluationService.GetFinalGrade(userID, deliverableID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"gradeInfo": grade,
	})
}

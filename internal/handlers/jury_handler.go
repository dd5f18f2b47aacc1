package handlers

import (
	"encoding/json"
	"net/http"

	"peer-jury/internal/middleware"
	"peer-jury/internal/service"
)

// JuryHandler handles jury selection and juror dashboard requests
type JuryHandler struct {
	juryService *service.JuryService
}

// NewJuryHandler creates a new jury handler
func NewJuryHandler(juryService *service.JuryService) *JuryHandler {
	return &JuryHandler{
		juryService: juryService,
	}
}

// SelectJuryRequest represents a jury selection request. JurySize 0 uses the
// configured default.
type SelectJuryRequest struct {
	JurySize int `json:"jurySize"`
}

// SelectJury handles drawing a jury for a deliverable
// @Summary Select a jury
// @Description Randomly select anonymous jurors for an open deliverable. Can only happen once per deliverable.
// @Tags Jury
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Param request body SelectJuryRequest true "Jury size"
// @Success 201 {object} map[string]interface{} "Jury selected"
// @Failure 400 {object} map[string]string "Invalid jury size"
// @Failure 409 {object} map[string]string "Jury already selected or not enough evaluators"
// @Router /deliverables/{id}/select-jury [post]
func (h *JuryHandler) SelectJury(w http.ResponseWriter, r *http.Request) {
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

	var req SelectJuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	assignments, err := h.juryService.SelectJury(userID, deliverableID, req.JurySize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// Juror identities stay hidden from the project owner
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"deliverableId": deliverableID,
		"jurySize":      len(assignments),
		"message":       "Jury selected",
	})
}

// MyAssignments handles listing the caller's jury assignments
// @Summary List own jury assignments
// @Description List the caller's jury assignments with deliverable details and own evaluation
// @Tags Jury
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Assignments"
// @Router /jury/assignments [get]
func (h *JuryHandler) MyAssignments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	assignments, err := h.juryService.GetAssignmentsByEvaluator(userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
	})
}

package handlers

import (
	"net/http"

	"peer-jury/internal/service"
)

// ProfessorHandler handles the professor's read-only grading views
type ProfessorHandler struct {
	projectService    *service.ProjectService
	evaluationService *service.EvaluationService
}

// NewProfessorHandler creates a new professor handler
func NewProfessorHandler(projectService *service.ProjectService, evaluationService *service.EvaluationService) *ProfessorHandler {
	return &ProfessorHandler{
		projectService:    projectService,
		evaluationService: evaluationService,
	}
}

// ListProjects handles listing all projects for professors
// @Summary List all projects
// @Description List every project in the system with its deliverables, for professors
// @Tags Professor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Projects"
// @Router /professor/projects [get]
func (h *ProfessorHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.GetAllProjectsWithDeliverables()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
	})
}

// ProjectEvaluations handles the per-project evaluation summary
// @Summary Get project evaluation summaries
// @Description Return grades and anonymous evaluations for every deliverable of a project
// @Tags Professor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} map[string]interface{} "Evaluation summaries"
// @Failure 404 {object} map[string]string "Project not found"
// @Router /professor/projects/{id}/evaluations [get]
func (h *ProfessorHandler) ProjectEvaluations(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	summaries, err := h.evaluationService.GetProjectSummaries(projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": summaries,
	})
}

// DeliverableStats handles the per-deliverable score distribution
// @Summary Get deliverable statistics
// @Description Return average, minimum, maximum and pending juror count for a deliverable
// @Tags Professor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} models.DeliverableStats
// @Failure 404 {object} map[string]string "Deliverable not found"
// @Router /professor/deliverables/{id}/stats [get]
func (h *ProfessorHandler) DeliverableStats(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDeliverable)
		return
	}

	stats, err := h.evaluationService.GetDeliverableStats(deliverableID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

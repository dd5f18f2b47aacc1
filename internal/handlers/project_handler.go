package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"peer-jury/internal/middleware"
	"peer-jury/internal/service"
	"peer-jury/pkg/validator"
)

// ProjectHandler handles project requests
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// ProjectRequest represents a project create/update request
type ProjectRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// MemberRequest represents a project member mutation request
type MemberRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// Create handles project creation
// @Summary Create a project
// @Description Create a new project in draft status, owned by the caller
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProjectRequest true "Project details"
// @Success 201 {object} models.Project
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(userID, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, project)
}

// List handles listing the caller's projects
// @Summary List own projects
// @Description List all projects created by the caller, with their deliverables
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Projects"
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projects, err := h.projectService.GetProjectsWithDeliverablesByCreator(userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
	})
}

// Get handles retrieving a single project with its deliverables
// @Summary Get a project
// @Description Retrieve a project with its deliverables
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.ProjectWithDeliverables
// @Failure 404 {object} map[string]string "Project not found"
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	project, err := h.projectService.GetProject(projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, project)
}

// Update handles updating a project
// @Summary Update a project
// @Description Update title and description of an owned project
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body ProjectRequest true "Project details"
// @Success 200 {object} models.Project
// @Failure 403 {object} map[string]string "Not the project owner"
// @Failure 404 {object} map[string]string "Project not found"
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(userID, projectID, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, project)
}

// Delete handles deleting a draft project
// @Summary Delete a project
// @Description Delete an owned project while it is still in draft
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} map[string]string "Project deleted"
// @Failure 403 {object} map[string]string "Not the project owner"
// @Failure 409 {object} map[string]string "Project is not in draft"
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	if err := h.projectService.DeleteProject(userID, projectID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

// Activate handles activating a draft project
// @Summary Activate a project
// @Description Transition an owned project from draft to active
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 409 {object} map[string]string "Project is not in draft"
// @Router /projects/{id}/activate [post]
func (h *ProjectHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	project, err := h.projectService.ActivateProject(userID, projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, project)
}

// ListMembers handles listing project members
// @Summary List project members
// @Description List the members of a project
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {array} models.User
// @Failure 404 {object} map[string]string "Project not found"
// @Router /projects/{id}/members [get]
func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	members, err := h.projectService.GetMembers(projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, members)
}

// AddMember handles adding a member to a project
// @Summary Add a project member
// @Description Enroll a user into the project team
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body MemberRequest true "User to enroll"
// @Success 201 {object} map[string]string "Member added"
// @Failure 403 {object} map[string]string "Not the project owner"
// @Router /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.projectService.AddMember(userID, projectID, req.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "Member added"})
}

// RemoveMember handles removing a member from a project
// @Summary Remove a project member
// @Description Remove a user from the project team. The creator cannot be removed.
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 403 {object} map[string]string "Not the project owner"
// @Router /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	projectID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidProjectID)
		return
	}

	memberID, err := parseIDParam(r, "userId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.projectService.RemoveMember(userID, projectID, memberID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

// parseIDParam parses a numeric path parameter
func parseIDParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

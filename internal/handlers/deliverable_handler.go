package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"peer-jury/internal/middleware"
	"peer-jury/internal/service"
	"peer-jury/pkg/validator"
)

// DeliverableHandler handles deliverable requests
type DeliverableHandler struct {
	deliverableService *service.DeliverableService
}

// NewDeliverableHandler creates a new deliverable handler
func NewDeliverableHandler(deliverableService *service.DeliverableService) *DeliverableHandler {
	return &DeliverableHandler{
		deliverableService: deliverableService,
	}
}

// DeliverableRequest represents a deliverable create/update request
type DeliverableRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	VideoURL    *string    `json:"videoUrl,omitempty"`
	ServerURL   *string    `json:"serverUrl,omitempty"`
}

// Create handles deliverable creation
// @Summary Create a deliverable
// @Description Add a deliverable to an owned project, in pending status
// @Tags Deliverables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body DeliverableRequest true "Deliverable details"
// @Success 201 {object} models.Deliverable
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Not the project owner"
// @Router /projects/{id}/deliverables [post]
func (h *DeliverableHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req DeliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	deliverable, err := h.deliverableService.CreateDeliverable(userID, projectID, req.Title, req.Description, req.DueDate, req.VideoURL, req.ServerURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, deliverable)
}

// Get handles retrieving a single deliverable
// @Summary Get a deliverable
// @Description Retrieve a deliverable by ID
// @Tags Deliverables
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} models.Deliverable
// @Failure 404 {object} map[string]string "Deliverable not found"
// @Router /projects/deliverables/{id} [get]
func (h *DeliverableHandler) Get(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDeliverable)
		return
	}

	deliverable, err := h.deliverableService.GetDeliverable(deliverableID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, deliverable)
}

// Update handles updating a pending deliverable
// @Summary Update a deliverable
// @Description Update a pending deliverable of an owned project
// @Tags Deliverables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Param request body DeliverableRequest true "Deliverable details"
// @Success 200 {object} models.Deliverable
// @Failure 409 {object} map[string]string "Deliverable is not pending"
// @Router /projects/deliverables/{id} [put]
func (h *DeliverableHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req DeliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	deliverable, err := h.deliverableService.UpdateDeliverable(userID, deliverableID, req.Title, req.Description, req.DueDate, req.VideoURL, req.ServerURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, deliverable)
}

// Delete handles deleting a pending deliverable
// @Summary Delete a deliverable
// @Description Delete a pending deliverable of an owned project
// @Tags Deliverables
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} map[string]string "Deliverable deleted"
// @Failure 409 {object} map[string]string "Deliverable is not pending"
// @Router /projects/deliverables/{id} [delete]
func (h *DeliverableHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.deliverableService.DeleteDeliverable(userID, deliverableID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Deliverable deleted"})
}

// OpenForGrading handles opening a deliverable for grading
// @Summary Open a deliverable for grading
// @Description Transition a pending deliverable to open_for_grading
// @Tags Deliverables
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} models.Deliverable
// @Failure 409 {object} map[string]string "Invalid state or deadline passed"
// @Router /projects/deliverables/{id}/open-grading [post]
func (h *DeliverableHandler) OpenForGrading(w http.ResponseWriter, r *http.Request) {
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

	deliverable, err := h.deliverableService.OpenForGrading(userID, deliverableID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, deliverable)
}

// CloseGrading handles closing a deliverable's grading window
// @Summary Close grading
// @Description Transition an open deliverable to closed and freeze the grade
// @Tags Deliverables
// @Produce json
// @Security BearerAuth
// @Param id path int true "Deliverable ID"
// @Success 200 {object} models.Deliverable
// @Failure 409 {object} map[string]string "Deliverable is not open for grading"
// @Router /projects/deliverables/{id}/close-grading [post]
func (h *DeliverableHandler) CloseGrading(w http.ResponseWriter, r *http.Request) {
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

	deliverable, err := h.deliverableService.CloseGrading(userID, deliverableID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, deliverable)
}

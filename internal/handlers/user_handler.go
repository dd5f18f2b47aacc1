package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"peer-jury/internal/middleware"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
)

// UserHandler handles user self-service and admin user management requests
type UserHandler struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	auditMw  *middleware.AuditMiddleware
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	auditMw *middleware.AuditMiddleware,
) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		roleRepo: roleRepo,
		auditMw:  auditMw,
	}
}

// UpdateProfile updates the current user's profile
// @Summary Update user profile
// @Description Update authenticated user's profile information
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Profile update (full_name)"
// @Success 200 {object} map[string]interface{} "Profile updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		FullName string `json:"fullName"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if strings.TrimSpace(req.FullName) == "" {
		respondWithError(w, http.StatusBadRequest, "Full name is required")
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	user.FullName = strings.TrimSpace(req.FullName)

	if err := h.userRepo.Update(user); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.profile.update.error", "users", "Profile update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	_ = h.auditMw.LogAction(&userID, "user.profile.update", "users", "Profile updated", getIP(r), r.UserAgent())

	roles, _ := h.userRepo.GetUserRoles(userID)

	respondWithJSON(w, http.StatusOK, userPayload(user, roles))
}

// ChangePassword allows a user to change their own password
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Current and new password"
// @Success 200 {object} map[string]string "Password changed successfully"
// @Failure 400 {object} map[string]string "Invalid request or password too short"
// @Failure 401 {object} map[string]string "Unauthorized or incorrect current password"
// @Router /users/password/change [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if len(req.NewPassword) < 8 {
		respondWithError(w, http.StatusBadRequest, "New password must be at least 8 characters long")
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.failed", "users", "Incorrect current password", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.error", "users", "Password hash failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := h.userRepo.UpdatePassword(userID, string(hashedBytes)); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.error", "users", "Password update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	_ = h.auditMw.LogAction(&userID, "user.password.change", "users", "Password changed successfully", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// parsePaginationParams parses and validates pagination parameters from the request
func parsePaginationParams(r *http.Request) (page, limit, offset int) {
	page = 1
	limit = 20

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset = (page - 1) * limit
	return page, limit, offset
}

// parseUserFilters parses filter parameters from the request
func parseUserFilters(r *http.Request) repository.UserFilters {
	filters := repository.UserFilters{
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	// Parse role IDs filter
	if roleIDsStr := r.URL.Query().Get("role_ids"); roleIDsStr != "" {
		roleIDsStrs := strings.Split(roleIDsStr, ",")
		for _, idStr := range roleIDsStrs {
			if id, err := strconv.Atoi(strings.TrimSpace(idStr)); err == nil {
				filters.RoleIDs = append(filters.RoleIDs, id)
			}
		}
	}

	// Parse active filter
	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filters.IsActive = &active
		}
	}

	return filters
}

// buildUserListResponse builds the response for listing users with roles
func (h *UserHandler) buildUserListResponse(users []models.User) []map[string]interface{} {
	var userList []map[string]interface{}
	for i := range users {
		roles, err := h.userRepo.GetUserRoles(users[i].ID)
		if err != nil {
			roles = []models.Role{}
		}
		userList = append(userList, userPayload(&users[i], roles))
	}
	return userList
}

// ListUsers lists all users with pagination (admin only)
// @Summary List all users
// @Description Get a paginated list of all users (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{} "Paginated list of users"
// @Failure 403 {object} map[string]string "Forbidden - admin only"
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePaginationParams(r)
	filters := parseUserFilters(r)

	totalCount, err := h.userRepo.CountWithFilters(filters)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to count users")
		return
	}

	users, err := h.userRepo.GetAllWithFilters(filters, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	userList := h.buildUserListResponse(users)
	totalPages := (totalCount + limit - 1) / limit

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users":      userList,
		"total":      totalCount,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

// GetUser gets a user by ID (admin only)
// @Summary Get user by ID
// @Description Get any user's information by ID (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{} "User information with roles"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.userRepo.GetByID(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	roles, _ := h.userRepo.GetUserRoles(id)

	respondWithJSON(w, http.StatusOK, userPayload(user, roles))
}

// UpdateUserActiveStatus toggles a user's active status (admin only)
// @Summary Update user active status
// @Description Toggle a user's active/inactive status (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "User ID and active status"
// @Success 200 {object} map[string]string "Status updated successfully"
// @Failure 400 {object} map[string]string "Cannot deactivate the last active admin"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/update-status [post]
func (h *UserHandler) UpdateUserActiveStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   uint `json:"userId"`
		IsActive bool `json:"isActive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userRepo.GetByID(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	actorID, _ := middleware.GetUserID(r)

	// Deactivating the last active admin would lock everyone out
	if !req.IsActive {
		isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
		if err != nil {
			_ = h.auditMw.LogAction(&actorID, "user.status.update.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
			respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
			return
		}

		if isLastAdmin {
			respondWithError(w, http.StatusBadRequest, "Cannot deactivate the last active admin")
			return
		}
	}

	if err := h.userRepo.UpdateActiveStatus(req.UserID, req.IsActive); err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.status.update.error", "users", "User status update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update user status")
		return
	}

	statusStr := "inactive"
	if req.IsActive {
		statusStr = "active"
	}
	_ = h.auditMw.LogAction(&actorID, "user.status.update", "users",
		"User "+user.Email+" status changed to "+statusStr, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "User status updated successfully",
	})
}

// AssignRole assigns a role to a user (admin only)
// @Summary Assign role to user
// @Description Assign a role to a user (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "user_id and role_id"
// @Success 200 {object} map[string]string "Role assigned successfully"
// @Failure 403 {object} map[string]string "Cannot modify own roles"
// @Failure 404 {object} map[string]string "User or role not found"
// @Router /admin/users/assign-role [post]
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"userId"`
		RoleID uint `json:"roleId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	// Prevent admins from modifying their own roles
	adminID, _ := middleware.GetUserID(r)
	if adminID == req.UserID {
		_ = h.auditMw.LogAction(&adminID, "user.role.assign.error", "users", "Attempted to assign role to self", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusForbidden, "Cannot modify your own roles")
		return
	}

	if _, err := h.userRepo.GetByID(req.UserID); err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	if _, err := h.roleRepo.GetByID(req.RoleID); err != nil {
		respondWithError(w, http.StatusNotFound, "Role not found")
		return
	}

	if err := h.userRepo.AssignRole(req.UserID, req.RoleID); err != nil {
		_ = h.auditMw.LogAction(&adminID, "user.role.assign.error", "users", "Role assignment failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to assign role")
		return
	}

	_ = h.auditMw.LogAction(&adminID, "user.role.assign", "users", fmt.Sprintf("Role %d assigned to user %d", req.RoleID, req.UserID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Role assigned successfully",
	})
}

// RemoveRole removes a role from a user (admin only)
// @Summary Remove role from user
// @Description Remove a role from a user (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "user_id and role_id"
// @Success 200 {object} map[string]string "Role removed successfully"
// @Failure 400 {object} map[string]string "Cannot remove admin role from the last active admin"
// @Failure 403 {object} map[string]string "Cannot modify own roles"
// @Router /admin/users/remove-role [post]
func (h *UserHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"userId"`
		RoleID uint `json:"roleId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	// Prevent admins from modifying their own roles
	adminID, _ := middleware.GetUserID(r)
	if adminID == req.UserID {
		_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Attempted to remove role from self", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusForbidden, "Cannot modify your own roles")
		return
	}

	role, err := h.roleRepo.GetByID(req.RoleID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Role not found")
		return
	}

	if role.Name == "admin" {
		isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
		if err != nil {
			_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
			respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
			return
		}

		if isLastAdmin {
			respondWithError(w, http.StatusBadRequest, "Cannot remove admin role from the last active admin")
			return
		}
	}

	if err := h.userRepo.RemoveRole(req.UserID, req.RoleID); err != nil {
		_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Role removal failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to remove role")
		return
	}

	_ = h.auditMw.LogAction(&adminID, "user.role.remove", "users", fmt.Sprintf("Role %d removed from user %d", req.RoleID, req.UserID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Role removed successfully",
	})
}

// ListRoles lists all available roles (admin only)
// @Summary List all roles
// @Description Get a list of all available roles (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Role "List of roles"
// @Failure 403 {object} map[string]string "Forbidden - admin only"
// @Router /admin/roles [get]
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleRepo.GetAll()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve roles")
		return
	}

	respondWithJSON(w, http.StatusOK, roles)
}

// DeleteUser deletes a user (admin only)
// @Summary Delete user
// @Description Delete a user from the system (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "User ID"
// @Success 200 {object} map[string]string "User deleted successfully"
// @Failure 400 {object} map[string]string "Cannot delete own account or the last active admin"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/delete [post]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"userId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userRepo.GetByID(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	actorID, _ := middleware.GetUserID(r)
	if actorID == req.UserID {
		respondWithError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
	if err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.delete.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
		return
	}

	if isLastAdmin {
		respondWithError(w, http.StatusBadRequest, "Cannot delete the last active admin")
		return
	}

	if err := h.userRepo.Delete(req.UserID); err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.delete.error", "users", "User deletion failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	_ = h.auditMw.LogAction(&actorID, "user.delete", "users", "Deleted user "+user.Email, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}

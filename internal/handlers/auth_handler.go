package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"peer-jury/internal/middleware"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
	"peer-jury/internal/service"
	"peer-jury/pkg/validator"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	auditMw     *middleware.AuditMiddleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditMw *middleware.AuditMiddleware) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		auditMw:     auditMw,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account as student or professor
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} map[string]interface{} "Registration successful with tokens"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := validator.SanitizeEmail(req.Email)

	user, err := h.authService.Register(email, req.Password, req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			respondWithError(w, http.StatusConflict, "Email is already registered")
			return
		}
		if errors.Is(err, service.ErrInvalidRole) {
			respondWithError(w, http.StatusBadRequest, "Role must be student or professor")
			return
		}
		slog.Error("Registration failed", "email", email, "error", err)
		_ = h.auditMw.LogAction(nil, "user.register.error", "users", "Registration failed for "+email+": "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	slog.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	_ = h.auditMw.LogAction(&user.ID, "user.register", "users", "User registered", getIP(r), r.UserAgent())

	// Auto-login after registration
	accessToken, refreshToken, user, err := h.authService.Login(email, req.Password, getIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	setRefreshCookie(w, r, refreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"token":        accessToken,
		"refreshToken": refreshToken,
		"user":         userPayload(user, roles),
	})
}

// Login handles user login
// @Summary User login
// @Description Authenticate user and return JWT tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Login successful with tokens"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := validator.SanitizeEmail(req.Email)

	accessToken, refreshToken, user, err := h.authService.Login(email, req.Password, getIP(r), r.UserAgent())
	if err != nil {
		slog.Warn("Login failed", "email", email, "error", err, "ip", getIP(r))
		_ = h.auditMw.LogAction(nil, "user.login.failed", "users", "Failed login attempt for "+email, getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email, "ip", getIP(r))
	_ = h.auditMw.LogAction(&user.ID, "user.login", "users", "User logged in", getIP(r), r.UserAgent())

	setRefreshCookie(w, r, refreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":        accessToken,
		"refreshToken": refreshToken,
		"user":         userPayload(user, roles),
	})
}

// RefreshToken handles token refresh requests
// @Summary Refresh access token
// @Description Get a new access token using refresh token from cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "New token pair"
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, newRefreshToken, user, err := h.authService.RefreshToken(cookie.Value, getIP(r), r.UserAgent())
	if err != nil {
		_ = h.auditMw.LogAction(nil, "user.token.refresh.error", "users", "Token refresh failed: "+err.Error(), getIP(r), r.UserAgent())
		// Clear invalid cookie
		http.SetCookie(w, &http.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Path:     AuthAPIBasePath,
			MaxAge:   -1,
			HttpOnly: true,
		})
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	setRefreshCookie(w, r, newRefreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":        accessToken,
		"refreshToken": newRefreshToken,
		"user":         userPayload(user, roles),
	})
}

// Logout handles user logout
// @Summary User logout
// @Description Clear refresh token cookie and invalidate session
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, hasUserID := middleware.GetUserID(r)

	cookie, err := r.Cookie("refresh_token")
	if err == nil && cookie.Value != "" {
		// Invalidate the session pair of this login
		if err := h.authService.Logout(cookie.Value); err != nil {
			slog.Error("Failed to invalidate session during logout", "error", err)
			if hasUserID {
				_ = h.auditMw.LogAction(&userID, "user.logout.error", "users", "Failed to invalidate session: "+err.Error(), getIP(r), r.UserAgent())
			}
		}
	}

	if hasUserID {
		slog.Info("User logged out", "user_id", userID, "ip", getIP(r))
		_ = h.auditMw.LogAction(&userID, "user.logout", "users", "User logged out", getIP(r), r.UserAgent())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     AuthAPIBasePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// Profile returns the authenticated user's profile
// @Summary Get own profile
// @Description Return the authenticated user with their roles
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "User profile"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	roles, _ := h.authService.GetUserRoles(userID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user": userPayload(user, roles),
	})
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func getIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// userPayload shapes the user object returned by auth endpoints. The "role"
// field carries the user's primary role for clients that gate navigation on a
// single role.
func userPayload(user *models.User, roles []models.Role) map[string]interface{} {
	return map[string]interface{}{
		"id":          user.ID,
		"email":       user.Email,
		"fullName":    user.FullName,
		"isActive":    user.IsActive,
		"lastLoginAt": user.LastLoginAt,
		"createdAt":   user.CreatedAt,
		"updatedAt":   user.UpdatedAt,
		"role":        primaryRole(roles),
		"roles":       roles,
	}
}

// primaryRole picks the most specific role for the single-role "role" field
func primaryRole(roles []models.Role) string {
	for _, name := range []string{"admin", "professor", "student"} {
		for _, role := range roles {
			if role.Name == name {
				return name
			}
		}
	}
	return ""
}

func setRefreshCookie(w http.ResponseWriter, r *http.Request, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     AuthAPIBasePath,
		MaxAge:   7 * 24 * 60 * 60, // 7 days
		HttpOnly: true,
		Secure:   r.TLS != nil, // Only send over HTTPS in production
		SameSite: http.SameSiteStrictMode,
	})
}

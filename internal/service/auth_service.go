package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"peer-jury/internal/auth"
	"peer-jury/internal/email"
	"peer-jury/internal/models"
	"peer-jury/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidRole        = errors.New("invalid registration role")
)

// Roles a user can register with. Admin is only assigned to the first user.
var registrableRoles = []string{"student", "professor"}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	roleRepo    *repository.RoleRepository
	sessionRepo *repository.SessionRepository
	authSvc     *auth.Service
	emailSvc    *email.Service
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	sessionRepo *repository.SessionRepository,
	authSvc *auth.Service,
	emailSvc *email.Service,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		sessionRepo: sessionRepo,
		authSvc:     authSvc,
		emailSvc:    emailSvc,
	}
}

// Register registers a new user with the requested role
func (s *AuthService) Register(emailAddr, password, fullName, roleName string) (*models.User, error) {
	if !containsString(registrableRoles, roleName) {
		return nil, ErrInvalidRole
	}

	// Check if user already exists
	existing, _ := s.userRepo.GetByEmail(emailAddr)
	if existing != nil {
		return nil, repository.ErrUserExists
	}

	passwordHash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        emailAddr,
		PasswordHash: passwordHash,
		FullName:     fullName,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	role, err := s.roleRepo.GetByName(roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to find role %s: %w", roleName, err)
	}
	if err := s.userRepo.AssignRole(user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	// The first user in the system additionally becomes admin
	userCount, err := s.userRepo.CountAll()
	if err != nil {
		slog.Error("Failed to count users", "error", err)
	}
	if userCount == 1 {
		slog.Info("Assigning admin role to first user", "email", emailAddr)
		if adminRole, err := s.roleRepo.GetByName("admin"); err == nil {
			if err := s.userRepo.AssignRole(user.ID, adminRole.ID); err != nil {
				slog.Error("Failed to assign admin role", "user_id", user.ID, "error", err)
			}
		}
	}

	// Send welcome email (best effort)
	if err := s.emailSvc.SendWelcomeEmail(emailAddr, fullName); err != nil {
		slog.Warn("Failed to send welcome email", "email", emailAddr, "error", err)
	}

	return user, nil
}

// Login authenticates a user and returns an access/refresh token pair. Both
// tokens are tracked as sessions sharing one session ID so a logout
// invalidates the whole pair.
func (s *AuthService) Login(emailAddr, password, ipAddress, userAgent string) (accessToken, refreshToken string, user *models.User, err error) {
	user, err = s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", "", nil, ErrUserInactive
	}

	accessToken, accessClaims, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshClaims, err := s.authSvc.GenerateTokenWithSession(
		user.ID, user.Email, accessClaims.SessionID, auth.TokenTypeRefresh)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.createSession(user.ID, accessClaims, ipAddress, userAgent); err != nil {
		return "", "", nil, fmt.Errorf("failed to create access session: %w", err)
	}
	if err := s.createSession(user.ID, refreshClaims, ipAddress, userAgent); err != nil {
		return "", "", nil, fmt.Errorf("failed to create refresh session: %w", err)
	}

	_ = s.userRepo.UpdateLastLogin(user.ID)

	return accessToken, refreshToken, user, nil
}

// RefreshToken rotates a refresh token: the old session pair is invalidated
// and a new access/refresh pair is issued
func (s *AuthService) RefreshToken(refreshToken, ipAddress, userAgent string) (newAccessToken, newRefreshToken string, user *models.User, err error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	if claims.ID == "" {
		return "", "", nil, errors.New("token missing JTI")
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("session not found or expired: %w", err)
	}

	if session.UserID != claims.UserID {
		return "", "", nil, errors.New("session user mismatch")
	}
	if session.TokenType != auth.TokenTypeRefresh {
		return "", "", nil, errors.New("invalid token type")
	}

	user, err = s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", "", nil, fmt.Errorf("user not found: %w", err)
	}

	// Invalidate the old pair (token rotation)
	_ = s.sessionRepo.DeleteBySessionID(session.SessionID)

	newAccessToken, accessClaims, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, refreshClaims, err := s.authSvc.GenerateTokenWithSession(
		user.ID, user.Email, accessClaims.SessionID, auth.TokenTypeRefresh)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.createSession(user.ID, refreshClaims, ipAddress, userAgent); err != nil {
		return "", "", nil, fmt.Errorf("failed to create refresh session: %w", err)
	}
	if err := s.createSession(user.ID, accessClaims, ipAddress, userAgent); err != nil {
		// Access tokens can still work without session tracking
		slog.Warn("Failed to create access token session", "error", err)
	}

	return newAccessToken, newRefreshToken, user, nil
}

// Logout invalidates the session pair of the presented token
func (s *AuthService) Logout(token string) error {
	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	slog.Info("Deleting session", "session_id", session.SessionID, "user_id", session.UserID)
	return s.sessionRepo.DeleteBySessionID(session.SessionID)
}

// ExtractJTI validates a token and returns its JWT ID
func (s *AuthService) ExtractJTI(token string) (string, error) {
	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// InvalidateAllUserSessions invalidates all sessions for a user
func (s *AuthService) InvalidateAllUserSessions(userID uint) error {
	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetUserRoles retrieves all roles for a user
func (s *AuthService) GetUserRoles(userID uint) ([]models.Role, error) {
	return s.userRepo.GetUserRoles(userID)
}

func (s *AuthService) createSession(userID uint, claims *auth.Claims, ipAddress, userAgent string) error {
	// Unique ID for this specific token session entry
	id, err := auth.GenerateRandomToken(16)
	if err != nil {
		return fmt.Errorf("failed to generate session entry ID: %w", err)
	}

	session := &models.Session{
		ID:             id,
		UserID:         userID,
		SessionID:      claims.SessionID,
		JTI:            claims.ID,
		TokenType:      claims.TokenType,
		ExpiresAt:      claims.ExpiresAt.Time,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	}

	return s.sessionRepo.Create(session)
}

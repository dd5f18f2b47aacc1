package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"peer-jury/internal/config"
)

// Token types stored in session rows and JWT claims
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims for an issued token
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"` // Groups access and refresh tokens from same login
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service provides password hashing and JWT token handling
type Service struct {
	cfg *config.JWTConfig
}

// NewService creates a new auth service
func NewService(cfg *config.JWTConfig) *Service {
	return &Service{cfg: cfg}
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash with a plaintext password
func (s *Service) VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateToken generates an access token with a fresh session ID
func (s *Service) GenerateToken(userID uint, email string) (string, *Claims, error) {
	sessionID, err := GenerateRandomToken(16)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	return s.generate(userID, email, sessionID, TokenTypeAccess, s.cfg.Expiration)
}

// GenerateTokenWithSession generates a token of the given type bound to an
// existing session ID. Used for the refresh token of a login pair and for
// token rotation on refresh.
func (s *Service) GenerateTokenWithSession(userID uint, email, sessionID, tokenType string) (string, *Claims, error) {
	ttl := s.cfg.Expiration
	if tokenType == TokenTypeRefresh {
		ttl = s.cfg.RefreshExpiration
	}
	return s.generate(userID, email, sessionID, tokenType, ttl)
}

func (s *Service) generate(userID uint, email, sessionID, tokenType string, ttl time.Duration) (string, *Claims, error) {
	jti, err := GenerateRandomToken(16)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate jti: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, claims, nil
}

// ValidateToken parses and validates a JWT token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GenerateRandomToken generates a cryptographically random hex token
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

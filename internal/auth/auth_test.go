package auth

import (
	"testing"
	"time"

	"peer-jury/internal/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:            "grading-platform-unit-test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 7 * 24 * time.Hour,
	}
}

func TestHashPassword(t *testing.T) {
	svc := NewService(testJWTConfig())

	password := "jury-duty-2026"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal the original password")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(testJWTConfig())

	password := "jury-duty-2026"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}

	if err := svc.VerifyPassword(hash, "jury-duty-2025"); err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateToken(t *testing.T) {
	svc := NewService(testJWTConfig())

	token, _, err := svc.GenerateToken(7, "juror@university.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("Token should not be empty")
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewService(testJWTConfig())

	userID := uint(7)
	email := "juror@university.example"

	token, _, err := svc.GenerateToken(userID, email)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected user ID %d, got %d", userID, claims.UserID)
	}

	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Expiration = -1 * time.Hour // Already expired
	svc := NewService(cfg)

	token, _, err := svc.GenerateToken(7, "juror@university.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject expired token")
	}
}

func TestValidateTokenSignedWithOtherSecret(t *testing.T) {
	svc := NewService(testJWTConfig())

	otherCfg := testJWTConfig()
	otherCfg.Secret = "a-completely-different-secret"
	other := NewService(otherCfg)

	token, _, err := other.GenerateToken(7, "juror@university.example")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject a token signed with a different secret")
	}
}

func TestGenerateRandomToken(t *testing.T) {
	token1, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}

	if token1 == "" {
		t.Error("Token should not be empty")
	}

	token2, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate second random token: %v", err)
	}

	if token1 == token2 {
		t.Error("Random tokens should be different")
	}
}

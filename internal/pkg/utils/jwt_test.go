package utils

import (
	"testing"
	"time"

	"github.com/go-demo/matchmaker/internal/model"
)

func createTestManager() *JWTManager {
	return NewJWTManager(
		"test-secret-key-for-testing",
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
	)
}

func testSession() Session {
	return Session{
		UserID:   "user-123",
		Username: "testuser",
		Game:     model.GameLittleBigPlanet2,
		Platform: model.PlatformRPCS3,
	}
}

func TestJWTManager_GenerateTokenPair(t *testing.T) {
	manager := createTestManager()

	tokenPair, err := manager.GenerateTokenPair(testSession())
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	if tokenPair.AccessToken == "" {
		t.Error("Expected access token to be set")
	}

	if tokenPair.RefreshToken == "" {
		t.Error("Expected refresh token to be set")
	}

	if tokenPair.ExpiresAt.Before(time.Now()) {
		t.Error("Expected expiry to be in the future")
	}
}

func TestJWTManager_GenerateTokenPair_InvalidSession(t *testing.T) {
	manager := createTestManager()

	tests := []struct {
		name    string
		session Session
	}{
		{"missing user", Session{Game: model.GameLittleBigPlanet1, Platform: model.PlatformPS3}},
		{"unknown game", Session{UserID: "user-123", Game: model.Game(42), Platform: model.PlatformPS3}},
		{"unknown platform", Session{UserID: "user-123", Game: model.GameLittleBigPlanet1, Platform: model.Platform(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.GenerateTokenPair(tt.session); err != ErrInvalidSession {
				t.Errorf("Expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestJWTManager_ValidateAccessToken(t *testing.T) {
	manager := createTestManager()

	tokenPair, _ := manager.GenerateTokenPair(testSession())

	claims, err := manager.ValidateAccessToken(tokenPair.AccessToken)
	if err != nil {
		t.Fatalf("Failed to validate access token: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("Expected user_id 'user-123', got '%s'", claims.UserID)
	}

	if claims.Game != model.GameLittleBigPlanet2 {
		t.Errorf("Expected game %v, got %v", model.GameLittleBigPlanet2, claims.Game)
	}

	if claims.Platform != model.PlatformRPCS3 {
		t.Errorf("Expected platform %v, got %v", model.PlatformRPCS3, claims.Platform)
	}

	if claims.Type != AccessToken {
		t.Errorf("Expected token type 'access', got '%s'", claims.Type)
	}
}

func TestJWTManager_ValidateRefreshToken(t *testing.T) {
	manager := createTestManager()

	tokenPair, _ := manager.GenerateTokenPair(testSession())

	claims, err := manager.ValidateRefreshToken(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("Failed to validate refresh token: %v", err)
	}

	if claims.Type != RefreshToken {
		t.Errorf("Expected token type 'refresh', got '%s'", claims.Type)
	}

	// Try to validate refresh token as access token
	if _, err := manager.ValidateAccessToken(tokenPair.RefreshToken); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken when validating refresh token as access token")
	}

	if _, err := manager.ValidateRefreshToken(tokenPair.AccessToken); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken when validating access token as refresh token")
	}
}

func TestJWTManager_ValidateToken_Invalid(t *testing.T) {
	manager := createTestManager()

	_, err := manager.ValidateToken("invalid-token")
	if err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	manager := NewJWTManager(
		"test-secret-key",
		1*time.Millisecond,
		1*time.Millisecond,
		"test-issuer",
	)

	tokenPair, _ := manager.GenerateTokenPair(testSession())

	time.Sleep(10 * time.Millisecond)

	_, err := manager.ValidateToken(tokenPair.AccessToken)
	if err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_DifferentSecrets(t *testing.T) {
	manager1 := NewJWTManager("secret-1", 15*time.Minute, 7*24*time.Hour, "issuer")
	manager2 := NewJWTManager("secret-2", 15*time.Minute, 7*24*time.Hour, "issuer")

	tokenPair, _ := manager1.GenerateTokenPair(testSession())

	// Token from manager1 should not be valid with manager2
	_, err := manager2.ValidateToken(tokenPair.AccessToken)
	if err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for token validated with different secret")
	}
}

func TestJWTManager_ClaimsContent(t *testing.T) {
	manager := createTestManager()

	token, _, err := manager.GenerateAccessToken(testSession())
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}

	claims, _ := manager.ValidateAccessToken(token)

	if claims.Issuer != "test-issuer" {
		t.Errorf("Expected issuer 'test-issuer', got '%s'", claims.Issuer)
	}

	if claims.Subject != "user-123" {
		t.Errorf("Expected subject 'user-123', got '%s'", claims.Subject)
	}

	if claims.ID == "" {
		t.Error("Expected token ID (jti) to be set")
	}

	if claims.ExpiresAt == nil {
		t.Error("Expected expires_at to be set")
	}
}
